package breach

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachtrend/domain/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleSet(t *testing.T) *RecordSet {
	t.Helper()
	rs, err := NewRecordSet([]Record{
		NewRecord("1", day(2015, 1, 1), "Hacking", "Retail", 10, 1000),
		NewRecord("2", day(2016, 6, 1), "Insider", "Finance", 5, 0),
		NewRecord("3", day(2017, 3, 9), " ", "", 0, 250),
		NewRecord("4", day(2018, 2, 2), "Hacking", "Healthcare", 1, 99),
	})
	require.NoError(t, err)
	return rs
}

func TestNewRecordNormalizes(t *testing.T) {
	r := NewRecord("x", time.Date(2015, 1, 1, 17, 30, 0, 0, time.FixedZone("X", 3600)), "nan", " Finance ", 3, 99)
	assert.Equal(t, UnknownCategory, r.Cause)
	assert.Equal(t, "Finance", r.Sector)
	assert.Equal(t, 0, r.BreachDate.Hour())
	assert.InDelta(t, math.Log(100), r.LogTotalAmount, 1e-12)
}

func TestDaysSinceEpoch(t *testing.T) {
	assert.Equal(t, 0.0, DaysSinceEpoch(day(1970, 1, 1)))
	assert.Equal(t, 365.0, DaysSinceEpoch(day(1971, 1, 1)))
	assert.Equal(t, 16436.0, DaysSinceEpoch(day(2015, 1, 1)))
}

func TestNewRecordSetValidation(t *testing.T) {
	_, err := NewRecordSet(nil)
	assert.ErrorIs(t, err, core.ErrEmptyDataset)

	_, err = NewRecordSet([]Record{NewRecord("neg", day(2015, 1, 1), "A", "B", 1, -5)})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	_, err = NewRecordSet([]Record{{ID: "nodate", Cause: "A", TotalAmount: 3}})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestCausesAndCounts(t *testing.T) {
	rs := sampleSet(t)
	assert.Equal(t, []string{"Hacking", "Insider", UnknownCategory}, rs.Causes())
	assert.Equal(t, map[string]int{"Hacking": 2, "Insider": 1, UnknownCategory: 1}, rs.CauseCounts())

	first, last := rs.DateRange()
	assert.Equal(t, day(2015, 1, 1), first)
	assert.Equal(t, day(2018, 2, 2), last)
}

func TestResampleDrawsFromOriginal(t *testing.T) {
	rs := sampleSet(t)
	rng := rand.New(rand.NewPCG(1, 2))
	ids := map[string]bool{"1": true, "2": true, "3": true, "4": true}

	for i := 0; i < 20; i++ {
		boot := rs.Resample(rng)
		require.Equal(t, rs.Len(), boot.Len())
		for j := 0; j < boot.Len(); j++ {
			assert.True(t, ids[boot.At(j).ID])
		}
	}
	assert.Equal(t, "1", rs.At(0).ID)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	rs := sampleSet(t)
	records := rs.Records()
	records[0], records[3] = records[3], records[0]
	swapped, err := NewRecordSet(records)
	require.NoError(t, err)
	assert.Equal(t, rs.Fingerprint(), swapped.Fingerprint())

	records[1].TotalAmount = 1
	changed, err := NewRecordSet(records)
	require.NoError(t, err)
	assert.NotEqual(t, rs.Fingerprint(), changed.Fingerprint())
}
