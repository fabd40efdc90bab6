//go:build integration_test || all_tests

package integration_testing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/edgetrack/internal"
	"github.com/2beens/edgetrack/internal/config"
)

const (
	serverPort  = 9700
	serverHost  = "localhost"
	metricsPort = "9701"

	appSecret  = "integration-secret"
	dbName     = "edgetrack"
	dbUser     = "postgres"
	dbPassword = "postgres"
)

var serverEndpoint = fmt.Sprintf("http://%s:%d", serverHost, serverPort)

type Suite struct {
	dockerPool *dockertest.Pool
	server     *internal.Server
	teardown   []func()
}

func newSuite(ctx context.Context) (*Suite, error) {
	var err error
	suite := &Suite{
		teardown: make([]func(), 0),
	}

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	suite.dockerPool, err = dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not create new dockertest pool: %w", err)
	}
	suite.dockerPool.MaxWait = time.Minute

	// uses pool to try to connect to Docker
	if err = suite.dockerPool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping dockertest pool: %w", err)
	}

	redisPort, err := suite.redisSetup()
	if err != nil {
		suite.cleanup()
		return nil, fmt.Errorf("setup redis: %w", err)
	}

	pgPort, err := suite.postgresSetup()
	if err != nil {
		suite.cleanup()
		return nil, fmt.Errorf("setup postgres: %w", err)
	}

	cfg := getTestConfig(redisPort, pgPort)

	// the container accepts connections a bit after it reports running
	err = suite.dockerPool.Retry(func() error {
		suite.server, err = internal.NewServer(ctx, internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             "test-version-info",
			AppSecret:               appSecret,
			DBPassword:              dbPassword,
			RedisPassword:           "",
			HoneycombTracingEnabled: false,
		})
		return err
	})
	if err != nil {
		suite.cleanup()
		return nil, fmt.Errorf("new server: %w", err)
	}

	suite.server.Serve(cfg.Host, cfg.Port)

	err = suite.dockerPool.Retry(func() error {
		resp, err := http.Get(serverEndpoint + "/health")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health status: %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		suite.cleanup()
		return nil, fmt.Errorf("server never became healthy: %w", err)
	}

	return suite, nil
}

func (s *Suite) cleanup() {
	if s.server != nil {
		s.server.GracefulShutdown()
	}
	for _, teardown := range s.teardown {
		teardown()
	}
}

func getTestConfig(redisPort, postgresPort string) *config.Config {
	return &config.Config{
		Environment:           "development",
		Host:                  serverHost,
		Port:                  serverPort,
		LogLevel:              "debug",
		PrometheusMetricsHost: serverHost,
		PrometheusMetricsPort: metricsPort,
		PostgresHost:          "localhost",
		PostgresPort:          postgresPort,
		PostgresDBName:        dbName,
		PostgresUser:          dbUser,
		RunMigrations:         true,
		RedisHost:             "localhost",
		RedisPort:             redisPort,
		CheckpointTTL:         config.Duration{Duration: time.Hour},
		// refresh interval doubles as the analytics cache ttl
		AnalyticsRefreshInterval: config.Duration{Duration: time.Second},
		AnalyticsCacheSizeMB:     1,
		HistoryLimit:             100,
		StreakTimezone:           "UTC",
		AllowedOrigins:           []string{"http://localhost:5173"},
		MutationsAllowedPerMin:   1000,
	}
}

func (s *Suite) redisSetup() (string, error) {
	redisResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7.2",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		return "", fmt.Errorf("run redis: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := s.dockerPool.Purge(redisResource); err != nil {
			log.Errorf("purge redis: %s", err)
		}
	})

	return redisResource.GetPort("6379/tcp"), nil
}

func (s *Suite) postgresSetup() (string, error) {
	pgResource, err := s.dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + dbUser,
			"POSTGRES_PASSWORD=" + dbPassword,
			"POSTGRES_DB=" + dbName,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return "", fmt.Errorf("dockerpool run postgres: %w", err)
	}

	s.teardown = append(s.teardown, func() {
		if err := s.dockerPool.Purge(pgResource); err != nil {
			log.Errorf("purge postgres: %s", err)
		}
	})

	return pgResource.GetPort("5432/tcp"), nil
}
