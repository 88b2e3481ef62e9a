package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/config"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	ref := time.Date(2017, 1, 1, 6, 0, 0, 0, time.UTC)
	member := domain.PerturbedMember(3)
	step := int64(6)
	entry := domain.CatalogEntry{
		Path:              "gefs.20170101/06/gep03.t06z.pgrb2af006.idx",
		Size:              1234,
		Version:           "V0",
		ReferenceDatetime: ref,
		EnsembleMember:    &member,
		ForecastStepHours: &step,
		ParameterSet:      "a",
		RunID:             "run-1",
		CatalogedAt:       time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(entry)
	require.NoError(t, err)

	assert.Equal(t, []byte(entry.Path), msg.Key)
	assert.Contains(t, string(msg.Value), `"forecast_step_hours":6`)
	assert.Contains(t, string(msg.Value), `"reference_datetime":"2017-01-01T06:00:00Z"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "version", msg.Headers[0].Key)
	assert.Equal(t, []byte("V0"), msg.Headers[0].Value)
	assert.Equal(t, "reference_datetime", msg.Headers[1].Key)
	assert.Equal(t, []byte("2017-01-01T06:00:00Z"), msg.Headers[1].Value)
	assert.Equal(t, "run_id", msg.Headers[2].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[2].Value)
}

func TestSerializeToMessage_OmitsEmptyFields(t *testing.T) {
	msg, err := serializeToMessage(domain.CatalogEntry{
		Path:      "gefs.20241008/00/chem/pgrb2ap25/gefs.chem.t00z.a2d_0p25.f000.grib2.idx",
		Version:   "V3",
		Component: "chem",
	})
	require.NoError(t, err)

	assert.NotContains(t, string(msg.Value), "ensemble_member")
	assert.NotContains(t, string(msg.Value), "forecast_step_hours")
	assert.Contains(t, string(msg.Value), `"component":"chem"`)
}

func TestWriter_LoadBatchEmpty(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaSinkTopic: "t"}, slog.Default())
	defer w.Close()

	assert.NoError(t, w.LoadBatch(context.Background(), nil))
}
