package excel

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/internal"
)

func newReader() *BreachReader {
	return NewBreachReader(DefaultReaderConfig(), internal.NewNopLogger())
}

func TestReadCSVWithAliases(t *testing.T) {
	data := "Breach ID,Date,Type of Breach,Industry,Individuals Affected,Total Cost\n" +
		"b1,2019-03-04,Hacking,Healthcare,1200,\"$1,250.50\"\n" +
		"b2,05/06/2020,,Finance,0,0\n" +
		"b3,2021-07-08,nan,,,99\n" +
		",,,,,\n"

	rs, err := newReader().Read(context.Background(), strings.NewReader(data), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	first := rs.At(0)
	assert.Equal(t, "b1", first.ID)
	assert.Equal(t, time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC), first.BreachDate)
	assert.Equal(t, "Hacking", first.Cause)
	assert.Equal(t, int64(1200), first.AffectedCount)
	assert.InDelta(t, 1250.50, first.TotalAmount, 1e-9)

	second := rs.At(1)
	assert.Equal(t, time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC), second.BreachDate)
	assert.Equal(t, breach.UnknownCategory, second.Cause)
	assert.Equal(t, 0.0, second.LogTotalAmount)

	third := rs.At(2)
	assert.Equal(t, breach.UnknownCategory, third.Cause)
	assert.Equal(t, breach.UnknownCategory, third.Sector)
	assert.Equal(t, int64(0), third.AffectedCount)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"missing amount column", "date,cause\n2020-01-01,Hacking\n", core.ErrInvalidRecord},
		{"negative amount", "date,cause,total_amount\n2020-01-01,Hacking,-5\n", core.ErrInvalidRecord},
		{"bad date", "date,cause,total_amount\nyesterday,Hacking,5\n", core.ErrInvalidRecord},
		{"bad number", "date,cause,total_amount\n2020-01-01,Hacking,lots\n", core.ErrInvalidRecord},
		{"header only", "date,cause,total_amount\n", core.ErrEmptyDataset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newReader().Read(context.Background(), strings.NewReader(tt.data), FormatCSV)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func sampleRecords() []breach.Record {
	return []breach.Record{
		breach.NewRecord("r1", time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC), "Hacking", "Retail", 10, 5000),
		breach.NewRecord("r2", time.Date(2016, 3, 4, 0, 0, 0, 0, time.UTC), "Insider", "", 0, 0),
		breach.NewRecord("r3", time.Date(2017, 5, 6, 0, 0, 0, 0, time.UTC), "", "Finance", 300, 123456.78),
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRecords()))

	rs, err := newReader().Read(context.Background(), &buf, FormatXLSX)
	require.NoError(t, err)
	require.Equal(t, 3, rs.Len())

	want, err := breach.NewRecordSet(sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, want.Fingerprint(), rs.Fingerprint())
}

func TestReadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breaches.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, sampleRecords()))
	require.NoError(t, f.Close())

	rs, err := newReader().ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hacking", "Insider", breach.UnknownCategory}, rs.Causes())

	_, err = newReader().ReadFile(context.Background(), filepath.Join(t.TempDir(), "breaches.parquet"))
	assert.True(t, core.IsInputError(err))
}
