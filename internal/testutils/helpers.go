package testutils

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"

	"textlens/internal/config"
)

// GetAppConfig builds a Config pointing at the suite's containers. Remote
// analytics is given an unreachable endpoint; tests that exercise it inject
// a mock client instead.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	ctx := context.Background()

	pgHost, err := s.pgContainer.Host(ctx)
	require.NoError(s.T, err)
	pgPort, err := s.pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)

	wHost, err := s.weaviateContainer.Host(ctx)
	require.NoError(s.T, err)
	wPort, err := s.weaviateContainer.MappedPort(ctx, "8080")
	require.NoError(s.T, err)

	nsqHost, err := s.nsqContainer.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := s.nsqContainer.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	nsqHTTPPort, err := s.nsqContainer.MappedPort(ctx, "4151")
	require.NoError(s.T, err)

	return &config.Config{
		DBHost: pgHost,
		DBPort: pgPort.Int(),
		DBUser: "test",
		DBPass: "test",
		DBName: "textlens_test",

		WeaviateHost:   fmt.Sprintf("%s:%s", wHost, wPort.Port()),
		WeaviateScheme: "http",

		NSQLookupd: "localhost:1",
		NSQDHost:   fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port()),
		NSQDHTTP:   fmt.Sprintf("%s:%s", nsqHost, nsqHTTPPort.Port()),

		AnalyticsEndpoint: "http://localhost:1",
		MaxPollTries:      3,
		PollDelayMS:       10,
		BackoffScheduleMS: "10,20",

		MaxBatchSize:        25,
		MaxDocumentChars:    5120,
		AnalysisConcurrency: 1,

		EnableAPI:         true,
		EnableIndexWorker: true,
		MigrationPath:     "file://../../migrations",

		ServerPort:      8081,
		MaxUploadSizeMB: 50,

		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,
	}
}

func (s *IntegrationSuite) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// ConsumeOne reads a single message from the given topic, or nil after a
// 10s timeout. Uses an ephemeral channel so runs do not leave state behind.
func (s *IntegrationSuite) ConsumeOne(topic string) *nsq.Message {
	ctx := context.Background()
	nsqHost, err := s.nsqContainer.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := s.nsqContainer.MappedPort(ctx, "4150")
	require.NoError(s.T, err)

	ch := make(chan *nsq.Message, 1)
	consumer, err := nsq.NewConsumer(topic, "test#ephemeral", nsq.NewConfig())
	require.NoError(s.T, err)
	defer consumer.Stop()

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		select {
		case ch <- m:
		default:
		}
		return nil
	}))
	require.NoError(s.T, consumer.ConnectToNSQD(fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())))

	select {
	case m := <-ch:
		return m
	case <-time.After(10 * time.Second):
		return nil
	}
}
