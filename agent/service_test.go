// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package agent_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rascaraficci/iotagent/agent"
	"github.com/rascaraficci/iotagent/agent/cache"
	agentmocks "github.com/rascaraficci/iotagent/agent/mocks"
	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/mocks"
	"github.com/rascaraficci/iotagent/pkg/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant    = "acme"
	deviceID  = "d1"
	reconnect = 20 * time.Millisecond

	lifecycleTopic = tenant + "." + agent.SubjectDeviceLifecycle
	tenancyTopic   = agent.SubjectTenancy
)

var device = directory.Device{
	ID:        deviceID,
	Label:     "thermostat",
	Templates: []int{1},
}

type testAgent struct {
	svc       agent.Service
	broker    *mocks.MockBroker
	publisher *mocks.MockPublisher
	directory *agentmocks.Directory
	down      int32
}

func newTestAgent(dir *agentmocks.Directory) *testAgent {
	ta := &testAgent{
		broker:    mocks.NewBroker(),
		publisher: mocks.NewPublisher(),
		directory: dir,
	}

	connect := func() (messaging.Publisher, error) {
		if atomic.LoadInt32(&ta.down) == 1 {
			return nil, errors.New("broker unreachable")
		}
		return ta.publisher, nil
	}

	conf := agent.Config{
		RetryDelay: time.Millisecond,
		Retry:      true,
		Reconnect:  reconnect,
	}

	ta.svc = agent.New(conf, dir, agentmocks.NewResolver(), ta.broker, connect, cache.New(time.Hour), uuid.NewMock(), logger.NewMock())

	return ta
}

func (ta *testAgent) event(t *testing.T, topic, event string, data any) {
	raw, err := json.Marshal(data)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	payload, err := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(raw)})
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	err = ta.broker.Publish(topic, payload)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
}

func TestStartBootstrap(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{"acme", "globex"}, nil))

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	assert.Equal(t, 1, ta.broker.Subscribers(tenancyTopic), "expected one tenancy subscription")
	assert.Equal(t, 1, ta.broker.Subscribers(lifecycleTopic), "expected one lifecycle subscription for acme")
	assert.Equal(t, 1, ta.broker.Subscribers("globex."+agent.SubjectDeviceLifecycle), "expected one lifecycle subscription for globex")

	// A repeated start must not bootstrap twice.
	err = ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, 1, ta.broker.Subscribers(tenancyTopic), "expected repeated start to be absorbed")
	assert.Equal(t, 1, ta.broker.Subscribers(lifecycleTopic), "expected repeated start to be absorbed")

	// A tenancy message naming a known tenant is a no-op, a new tenant
	// gets its own session.
	payload, _ := json.Marshal(map[string]string{"tenant": "acme"})
	err = ta.broker.Publish(tenancyTopic, payload)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, 1, ta.broker.Subscribers(lifecycleTopic), "expected duplicate tenant to be absorbed")

	payload, _ = json.Marshal(map[string]string{"tenant": "initech"})
	err = ta.broker.Publish(tenancyTopic, payload)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, 1, ta.broker.Subscribers("initech."+agent.SubjectDeviceLifecycle), "expected new tenant session")
}

func TestBootstrapRetry(t *testing.T) {
	dir := agentmocks.NewDirectory([]string{tenant}, nil)
	dir.FailTenants(2)
	ta := newTestAgent(dir)

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	assert.Equal(t, 3, dir.TenantCalls(), fmt.Sprintf("expected 3 tenant list calls got %d", dir.TenantCalls()))
	assert.Equal(t, 1, ta.broker.Subscribers(lifecycleTopic), "expected lifecycle subscription after retries")
}

func TestLifecycleEvents(t *testing.T) {
	dir := agentmocks.NewDirectory([]string{tenant}, map[string]map[string]directory.Device{
		tenant: {deviceID: device},
	})
	ta := newTestAgent(dir)

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	// A create event fills the cache, so the lookup needs no upstream call.
	ta.event(t, lifecycleTopic, agent.EventCreate, device)

	dev, err := ta.svc.GetDevice(context.Background(), deviceID, tenant)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, device, dev, fmt.Sprintf("expected %+v got %+v", device, dev))
	assert.Equal(t, 0, dir.DeviceCalls(), "expected lookup to be served from cache")

	// A remove event drops the entry and the next lookup goes upstream.
	ta.event(t, lifecycleTopic, agent.EventRemove, map[string]string{"id": deviceID})

	dev, err = ta.svc.GetDevice(context.Background(), deviceID, tenant)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, device, dev, fmt.Sprintf("expected %+v got %+v", device, dev))
	assert.Equal(t, 1, dir.DeviceCalls(), fmt.Sprintf("expected 1 upstream call got %d", dir.DeviceCalls()))

	// A template update invalidates every affected device.
	ta.event(t, lifecycleTopic, agent.EventUpdate, directory.Device{ID: "d2"})
	ta.event(t, lifecycleTopic, agent.EventTemplateUpdate, map[string]any{"affected": []string{deviceID, "d2"}})

	_, err = ta.svc.GetDevice(context.Background(), deviceID, tenant)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, 2, dir.DeviceCalls(), fmt.Sprintf("expected invalidated entry to refetch, got %d calls", dir.DeviceCalls()))

	_, err = ta.svc.GetDevice(context.Background(), "d2", tenant)
	assert.True(t, errors.Contains(err, errors.ErrUnknownDevice), fmt.Sprintf("expected unknown device got %s", err))
}

func TestGetDeviceNegativeCache(t *testing.T) {
	dir := agentmocks.NewDirectory([]string{tenant}, nil)
	ta := newTestAgent(dir)

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	_, err = ta.svc.GetDevice(context.Background(), deviceID, tenant)
	assert.True(t, errors.Contains(err, errors.ErrUnknownDevice), fmt.Sprintf("expected unknown device got %s", err))
	assert.Equal(t, 1, dir.DeviceCalls(), fmt.Sprintf("expected 1 upstream call got %d", dir.DeviceCalls()))

	// The negative entry short-circuits repeated lookups.
	_, err = ta.svc.GetDevice(context.Background(), deviceID, tenant)
	assert.True(t, errors.Contains(err, errors.ErrUnknownDevice), fmt.Sprintf("expected unknown device got %s", err))
	assert.Equal(t, 1, dir.DeviceCalls(), fmt.Sprintf("expected lookup to be served from negative cache, got %d calls", dir.DeviceCalls()))
}

func TestGetDeviceUpstreamFailure(t *testing.T) {
	dir := agentmocks.NewDirectory([]string{tenant}, nil)
	dir.FailDevices(errors.ErrFetchDevice)
	ta := newTestAgent(dir)

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	// Upstream failures other than not-found propagate and are not cached.
	for i := 1; i <= 2; i++ {
		_, err = ta.svc.GetDevice(context.Background(), deviceID, tenant)
		assert.True(t, errors.Contains(err, errors.ErrFetchDevice), fmt.Sprintf("expected fetch error got %s", err))
		assert.False(t, errors.Contains(err, errors.ErrUnknownDevice), fmt.Sprintf("fetch failure must not map to unknown device: %s", err))
		assert.Equal(t, i, dir.DeviceCalls(), fmt.Sprintf("expected %d upstream calls got %d", i, dir.DeviceCalls()))
	}
}

func TestMalformedMessage(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{tenant}, nil))

	var calls int32
	ta.svc.Subscribe("device.create", func(tenant string, e agent.Event) {
		atomic.AddInt32(&calls, 1)
	})

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	err = ta.broker.Publish(lifecycleTopic, []byte("{not json"))
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "expected malformed payload to be dropped")

	// The session survives and keeps dispatching well-formed events.
	ta.event(t, lifecycleTopic, agent.EventCreate, device)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "expected callback to fire once")
}

func TestSubscribeDispatchOrder(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{tenant}, nil))

	var mu sync.Mutex
	var order []string
	ta.svc.Subscribe("device.create", func(tenant string, e agent.Event) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first")
	})
	ta.svc.Subscribe("device.create", func(tenant string, e agent.Event) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second")
	})

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	ta.event(t, lifecycleTopic, agent.EventCreate, device)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order, fmt.Sprintf("expected registration-order dispatch got %v", order))
}

type outboundEvent struct {
	Metadata agent.Metadata `json:"metadata"`
	Attrs    map[string]any `json:"attrs"`
}

func decodeOutbound(t *testing.T, msgs []mocks.Message) []outboundEvent {
	events := make([]outboundEvent, 0, len(msgs))
	for _, msg := range msgs {
		var ev outboundEvent
		err := json.Unmarshal(msg.Payload, &ev)
		require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
		events = append(events, ev)
	}
	return events
}

func TestProducerBuffering(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{tenant}, nil))
	atomic.StoreInt32(&ta.down, 1)

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	for i := 0; i < 3; i++ {
		err := ta.svc.UpdateAttrs(context.Background(), deviceID, tenant, map[string]any{"seq": float64(i)})
		require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	}
	assert.Empty(t, ta.publisher.Messages(), "expected events to queue while disconnected")

	atomic.StoreInt32(&ta.down, 0)
	time.Sleep(4 * reconnect)

	events := decodeOutbound(t, ta.publisher.Messages())
	require.Len(t, events, 3, fmt.Sprintf("expected 3 published events got %d", len(events)))
	for i, ev := range events {
		assert.Equal(t, float64(i), ev.Attrs["seq"], fmt.Sprintf("expected FIFO drain, event %d carries seq %v", i, ev.Attrs["seq"]))
		assert.Equal(t, deviceID, ev.Metadata.DeviceID, fmt.Sprintf("expected completed metadata got %+v", ev.Metadata))
		assert.Equal(t, tenant, ev.Metadata.Tenant, fmt.Sprintf("expected completed metadata got %+v", ev.Metadata))
		assert.NotZero(t, ev.Metadata.Timestamp, "expected completed timestamp")
	}
}

func TestProducerReconnect(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{tenant}, nil))

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	err = ta.svc.UpdateAttrs(context.Background(), deviceID, tenant, map[string]any{"seq": float64(0)})
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	// A failing publish requeues the event and reconnects once; nothing
	// is lost or duplicated across the cycle.
	ta.publisher.Fail(errors.ErrPublishMessage)
	err = ta.svc.UpdateAttrs(context.Background(), deviceID, tenant, map[string]any{"seq": float64(1)})
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	err = ta.svc.UpdateAttrs(context.Background(), deviceID, tenant, map[string]any{"seq": float64(2)})
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	ta.publisher.Fail(nil)

	time.Sleep(4 * reconnect)

	events := decodeOutbound(t, ta.publisher.Messages())
	require.Len(t, events, 3, fmt.Sprintf("expected 3 published events got %d", len(events)))
	for i, ev := range events {
		assert.Equal(t, float64(i), ev.Attrs["seq"], fmt.Sprintf("expected FIFO order, event %d carries seq %v", i, ev.Attrs["seq"]))
	}
}

func TestSetOnlineOffline(t *testing.T) {
	ta := newTestAgent(agentmocks.NewDirectory([]string{tenant}, nil))

	err := ta.svc.Start(context.Background())
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	err = ta.svc.SetOnline(context.Background(), deviceID, tenant, time.Hour)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))
	err = ta.svc.SetOffline(context.Background(), deviceID, tenant)
	require.Nil(t, err, fmt.Sprintf("got unexpected error: %s", err))

	events := decodeOutbound(t, ta.publisher.Messages())
	require.Len(t, events, 2, fmt.Sprintf("expected 2 status events got %d", len(events)))

	online, offline := events[0], events[1]
	require.NotNil(t, online.Metadata.Status, "expected status metadata")
	require.NotNil(t, offline.Metadata.Status, "expected status metadata")
	assert.Equal(t, "online", online.Metadata.Status.Value, fmt.Sprintf("expected online status got %s", online.Metadata.Status.Value))
	assert.Greater(t, online.Metadata.Status.Expires, time.Now().UnixMilli(), "expected online status to expire in the future")
	assert.LessOrEqual(t, offline.Metadata.Status.Expires, time.Now().UnixMilli(), "expected offline status to expire immediately")
}
