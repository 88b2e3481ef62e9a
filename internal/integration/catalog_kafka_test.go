//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/adapter/kafka"
	"github.com/couchcryptid/grib-catalog/internal/adapter/objstore"
	"github.com/couchcryptid/grib-catalog/internal/catalog"
	"github.com/couchcryptid/grib-catalog/internal/config"
	"github.com/couchcryptid/grib-catalog/internal/dataset/gefs"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/couchcryptid/grib-catalog/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSinkTopic = "test-catalog-entries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("grib-catalog-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func writeArchive(t *testing.T, paths ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fsys, "/archive/"+p, []byte("idx"), 0o644))
	}
	return fsys
}

// TestCatalogPublishesEntries runs an aggregation over a local archive and
// reads the published entries back from Kafka.
func TestCatalogPublishesEntries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	paths := []string{
		"gefs.20170101/00/gec00.t00z.pgrb2aanl.idx",
		"gefs.20170101/00/gep01.t00z.pgrb2af006.idx",
		"gefs.20170101/06/gec00.t06z.pgrb2aanl.idx",
	}
	metrics := observability.NewMetricsForTesting()
	store := objstore.NewLimited(objstore.NewFSStore(writeArchive(t, paths...), "/archive"), 4, metrics)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSinkTopic: testSinkTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	agg := catalog.New(store, gefs.New(), discardLogger(), metrics, catalog.WithSink(writer, 2))
	require.NoError(t, agg.Run(ctx))
	require.Equal(t, int64(3), agg.Stats().Published)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSinkTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = reader.Close() })

	got := make(map[string]domain.CatalogEntry)
	for range paths {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		var entry domain.CatalogEntry
		require.NoError(t, json.Unmarshal(msg.Value, &entry))
		assert.Equal(t, string(msg.Key), entry.Path)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, gefs.V0, headers["version"])
		assert.Equal(t, agg.Stats().RunID, headers["run_id"])
		got[entry.Path] = entry
	}

	for _, p := range paths {
		require.Contains(t, got, p)
	}
	entry := got["gefs.20170101/00/gep01.t00z.pgrb2af006.idx"]
	require.NotNil(t, entry.EnsembleMember)
	assert.Equal(t, domain.PerturbedMember(1), *entry.EnsembleMember)
	require.NotNil(t, entry.ForecastStepHours)
	assert.Equal(t, int64(6), *entry.ForecastStepHours)
}
