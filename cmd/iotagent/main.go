// Copyright (c) Mainflux
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/rascaraficci/iotagent"
	"github.com/rascaraficci/iotagent/agent"
	"github.com/rascaraficci/iotagent/agent/api"
	httpapi "github.com/rascaraficci/iotagent/agent/api/http"
	"github.com/rascaraficci/iotagent/agent/cache"
	"github.com/rascaraficci/iotagent/logger"
	"github.com/rascaraficci/iotagent/pkg/auth"
	"github.com/rascaraficci/iotagent/pkg/directory"
	"github.com/rascaraficci/iotagent/pkg/errors"
	"github.com/rascaraficci/iotagent/pkg/messaging"
	"github.com/rascaraficci/iotagent/pkg/messaging/brokers"
	"github.com/rascaraficci/iotagent/pkg/servers"
	servershttp "github.com/rascaraficci/iotagent/pkg/servers/http"
	"github.com/rascaraficci/iotagent/pkg/topics"
	"github.com/rascaraficci/iotagent/pkg/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	svcName      = "iotagent"
	stopWaitTime = 5 * time.Second

	defBrokerURL        = "nats://localhost:4222"
	defLogLevel         = "error"
	defHTTPPort         = "9101"
	defServerCert       = ""
	defServerKey        = ""
	defAuthURL          = "http://localhost:5000"
	defDeviceManagerURL = "http://localhost:5001"
	defDataBrokerURL    = "http://localhost:5002"
	defTLSVerification  = "false"
	defTokenSecret      = "iotagent-secret"
	defTokenLifetime    = "0s"
	defDeviceTTL        = "60s"
	defInvalidTTL       = "5m"
	defBootstrapRetry   = "true"
	defRetryDelay       = "2500ms"
	defReconnect        = "20s"

	envBrokerURL        = "IOTAGENT_BROKER_URL"
	envLogLevel         = "IOTAGENT_LOG_LEVEL"
	envHTTPPort         = "IOTAGENT_HTTP_PORT"
	envServerCert       = "IOTAGENT_SERVER_CERT"
	envServerKey        = "IOTAGENT_SERVER_KEY"
	envAuthURL          = "IOTAGENT_AUTH_URL"
	envDeviceManagerURL = "IOTAGENT_DEVICE_MANAGER_URL"
	envDataBrokerURL    = "IOTAGENT_DATA_BROKER_URL"
	envTLSVerification  = "IOTAGENT_TLS_VERIFICATION"
	envTokenSecret      = "IOTAGENT_TOKEN_SECRET"
	envTokenLifetime    = "IOTAGENT_TOKEN_LIFETIME"
	envDeviceTTL        = "IOTAGENT_DEVICE_TTL"
	envInvalidTTL       = "IOTAGENT_INVALID_TTL"
	envBootstrapRetry   = "IOTAGENT_BOOTSTRAP_RETRY"
	envRetryDelay       = "IOTAGENT_BOOTSTRAP_RETRY_DELAY"
	envReconnect        = "IOTAGENT_RECONNECT_INTERVAL"
)

type config struct {
	brokerURL       string
	logLevel        string
	httpConfig      servers.Config
	directoryConfig directory.Config
	topicsConfig    topics.Config
	agentConfig     agent.Config
	tokenSecret     string
	tokenLifetime   time.Duration
}

func main() {
	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	logger, err := logger.New(os.Stdout, cfg.logLevel)
	if err != nil {
		log.Fatalf(err.Error())
	}

	pubSub, err := brokers.NewPubSub(cfg.brokerURL, svcName, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to connect to message broker: %s", err))
		os.Exit(1)
	}
	defer pubSub.Close()

	connect := func() (messaging.Publisher, error) {
		return brokers.NewPublisher(cfg.brokerURL)
	}

	tokens := auth.New(cfg.tokenSecret, cfg.tokenLifetime)
	dir := directory.NewClient(cfg.directoryConfig, tokens)
	resolver := topics.NewResolver(cfg.topicsConfig, tokens)

	deviceCache := cache.New(cfg.agentConfig.DeviceTTL / 3)
	defer deviceCache.Close()

	svc := newService(cfg, dir, resolver, pubSub, connect, deviceCache, logger)
	defer svc.Stop()

	g.Go(func() error {
		return svc.Start(ctx)
	})

	g.Go(func() error {
		return servershttp.Start(ctx, httpapi.MakeHandler(svc, logger), cfg.httpConfig, logger)
	})

	g.Go(func() error {
		if sig := errors.SignalHandler(ctx); sig != nil {
			cancel()
			logger.Info(fmt.Sprintf("IoT agent shutdown by signal: %s", sig))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("IoT agent terminated: %s", err))
	}
}

func newService(cfg config, dir directory.Client, resolver topics.Resolver, pubSub messaging.PubSub, connect agent.PublisherFactory, deviceCache agent.DeviceCache, logger logger.Logger) agent.Service {
	svc := agent.New(cfg.agentConfig, dir, resolver, pubSub, connect, deviceCache, uuid.New(), logger)
	svc = api.LoggingMiddleware(svc, logger)
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "iotagent",
		Subsystem: "agent",
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace: "iotagent",
		Subsystem: "agent",
		Name:      "request_latency_microseconds",
		Help:      "Total duration of requests in microseconds.",
	}, []string{"method"})
	svc = api.MetricsMiddleware(svc, counter, latency)

	return svc
}

func loadConfig() config {
	tlsVerification, err := strconv.ParseBool(iotagent.Env(envTLSVerification, defTLSVerification))
	if err != nil {
		log.Fatalf("Invalid value passed for %s\n", envTLSVerification)
	}

	retry, err := strconv.ParseBool(iotagent.Env(envBootstrapRetry, defBootstrapRetry))
	if err != nil {
		log.Fatalf("Invalid value passed for %s\n", envBootstrapRetry)
	}

	tokenLifetime := parseDuration(envTokenLifetime, defTokenLifetime)

	httpConfig := servers.Config{
		ServerName:   svcName,
		ServerCert:   iotagent.Env(envServerCert, defServerCert),
		ServerKey:    iotagent.Env(envServerKey, defServerKey),
		Port:         iotagent.Env(envHTTPPort, defHTTPPort),
		StopWaitTime: stopWaitTime,
	}

	directoryConfig := directory.Config{
		AuthURL:          iotagent.Env(envAuthURL, defAuthURL),
		DeviceManagerURL: iotagent.Env(envDeviceManagerURL, defDeviceManagerURL),
		TLSVerification:  tlsVerification,
	}

	topicsConfig := topics.Config{
		BrokerURL:       iotagent.Env(envDataBrokerURL, defDataBrokerURL),
		TLSVerification: tlsVerification,
	}

	agentConfig := agent.Config{
		DeviceTTL:  parseDuration(envDeviceTTL, defDeviceTTL),
		InvalidTTL: parseDuration(envInvalidTTL, defInvalidTTL),
		RetryDelay: parseDuration(envRetryDelay, defRetryDelay),
		Retry:      retry,
		Reconnect:  parseDuration(envReconnect, defReconnect),
	}

	return config{
		brokerURL:       iotagent.Env(envBrokerURL, defBrokerURL),
		logLevel:        iotagent.Env(envLogLevel, defLogLevel),
		httpConfig:      httpConfig,
		directoryConfig: directoryConfig,
		topicsConfig:    topicsConfig,
		agentConfig:     agentConfig,
		tokenSecret:     iotagent.Env(envTokenSecret, defTokenSecret),
		tokenLifetime:   tokenLifetime,
	}
}

func parseDuration(env, def string) time.Duration {
	d, err := time.ParseDuration(iotagent.Env(env, def))
	if err != nil {
		log.Fatalf("Invalid %s value: %s", env, err.Error())
	}
	return d
}
