package idx

import (
	"testing"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gefsV0Idx = `1:0:d=2017010100:HGT:10 mb:anl:ENS=low-res ctl
2:50487:d=2017010100:HGT:50 mb:anl:ENS=low-res ctl
3:97637:d=2017010100:TMP:2 m above ground:anl:ENS=low-res ctl
`

func TestParse_GEFS(t *testing.T) {
	records, err := Parse([]byte(gefsV0Idx))
	require.NoError(t, err)
	require.Len(t, records, 3)

	control := domain.ControlMember()
	want := domain.IndexRecord{
		MessageID:         1,
		ByteOffset:        0,
		ReferenceDatetime: time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
		Parameter:         "HGT",
		VerticalLevel:     "10 mb",
		ForecastStep:      0,
		StepToken:         "anl",
		EnsembleMember:    &control,
		EnsembleToken:     "ENS=low-res ctl",
	}
	if diff := cmp.Diff(want, records[0]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "2 m above ground", records[2].VerticalLevel)
	assert.Equal(t, uint64(97637), records[2].ByteOffset)
}

func TestParse_NoEnsembleField(t *testing.T) {
	records, err := Parse([]byte("1:0:d=2024100800:PRMSL:mean sea level:6 hour fcst:\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].EnsembleMember)
	assert.Equal(t, 6*time.Hour, records[0].ForecastStep)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"too few fields", "1:0:d=2017010100:HGT:10 mb\n", 1},
		{"bad offset", "1:0:d=2017010100:HGT:10 mb:anl\n2:x:d=2017010100:HGT:50 mb:anl\n", 2},
		{"bad datetime", "1:0:2017010100:HGT:10 mb:anl\n", 1},
		{"bad step", "1:0:d=2017010100:HGT:10 mb:6 hour anl\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"anl", 0},
		{"6 hour fcst", 6 * time.Hour},
		{"384 hour fcst", 384 * time.Hour},
		{"0-6 hour acc fcst", 6 * time.Hour},
		{"114-120 hour ave fcst", 120 * time.Hour},
		{"12-18 hour max fcst", 18 * time.Hour},
		{"2 day fcst", 48 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStep(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStep("6 hour")
	assert.Error(t, err)
}

func TestParseEnsembleMember(t *testing.T) {
	tests := []struct {
		in   string
		want domain.EnsembleMember
		ok   bool
	}{
		{"ENS=low-res ctl", domain.ControlMember(), true},
		{"ENS=hi-res ctl", domain.ControlMember(), true},
		{"ENS=+1", domain.PerturbedMember(1), true},
		{"ENS=-20", domain.PerturbedMember(20), true},
		{"ens mean", domain.MeanMember(), true},
		{"ens spread", domain.SpreadMember(), true},
		{"ENS=+0", domain.EnsembleMember{}, false},
		{"", domain.EnsembleMember{}, false},
		{"prob >0.254", domain.EnsembleMember{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEnsembleMember(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocations(t *testing.T) {
	records, err := Parse([]byte(gefsV0Idx))
	require.NoError(t, err)

	path := "gefs.20170101/00/gec00.t00z.pgrb2aanl"
	got := Locations(path, 150000, records)
	want := []domain.MessageLocation{
		{Path: path, Offset: 0, Length: 50487},
		{Path: path, Offset: 50487, Length: 47150},
		{Path: path, Offset: 97637, Length: 52363},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locations mismatch (-want +got):\n%s", diff)
	}

	unknown := Locations(path, 0, records)
	assert.Equal(t, int64(-1), unknown[2].Length)

	// A size that ends before the last offset is stale, not negative.
	short := Locations(path, 90000, records)
	assert.Equal(t, int64(-1), short[2].Length)
	assert.Equal(t, int64(47150), short[1].Length)

	exact := Locations(path, 97637, records)
	assert.Equal(t, int64(-1), exact[2].Length)
}
