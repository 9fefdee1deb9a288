package breach

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"breachtrend/domain/core"
)

// UnknownCategory replaces absent cause and sector values before modeling
const UnknownCategory = "Unknown"

// Record is one breach row after cleaning
type Record struct {
	ID             string    `json:"id"`
	BreachDate     time.Time `json:"breach_date"`
	Cause          string    `json:"cause"`
	Sector         string    `json:"sector"`
	AffectedCount  int64     `json:"affected_count"`
	TotalAmount    float64   `json:"total_amount"`
	LogTotalAmount float64   `json:"log_total_amount"`
}

// NewRecord builds a normalized record with its derived log amount
func NewRecord(id string, date time.Time, cause, sector string, affected int64, amount float64) Record {
	r := Record{
		ID:            id,
		BreachDate:    date,
		Cause:         cause,
		Sector:        sector,
		AffectedCount: affected,
		TotalAmount:   amount,
	}
	r.normalize()
	return r
}

func (r *Record) normalize() {
	r.Cause = NormalizeCategory(r.Cause)
	r.Sector = NormalizeCategory(r.Sector)
	y, m, d := r.BreachDate.Date()
	r.BreachDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	r.LogTotalAmount = math.Log1p(r.TotalAmount)
}

// NormalizeCategory trims a categorical value and maps absent values to UnknownCategory
func NormalizeCategory(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") || strings.EqualFold(v, "n/a") {
		return UnknownCategory
	}
	return v
}

// Days returns the breach date as days since the Unix epoch
func (r Record) Days() float64 {
	return DaysSinceEpoch(r.BreachDate)
}

// DaysSinceEpoch converts a calendar date to whole days since 1970-01-01
func DaysSinceEpoch(t time.Time) float64 {
	y, m, d := t.Date()
	return float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func (r Record) validate(index int) error {
	switch {
	case r.BreachDate.IsZero():
		return core.NewInvalidRecordError(index, r.ID, "missing breach date")
	case r.Cause == "":
		return core.NewInvalidRecordError(index, r.ID, "cause not normalized")
	case r.Sector == "":
		return core.NewInvalidRecordError(index, r.ID, "sector not normalized")
	case r.AffectedCount < 0:
		return core.NewInvalidRecordError(index, r.ID, "negative affected count")
	case r.TotalAmount < 0 || math.IsNaN(r.TotalAmount) || math.IsInf(r.TotalAmount, 0):
		return core.NewInvalidRecordError(index, r.ID, fmt.Sprintf("total amount %v out of range", r.TotalAmount))
	case math.IsNaN(r.LogTotalAmount) || math.IsInf(r.LogTotalAmount, 0):
		return core.NewInvalidRecordError(index, r.ID, "non-finite log total amount")
	}
	return nil
}

// RecordSet is an ordered, immutable collection of breach records
type RecordSet struct {
	records []Record
}

// NewRecordSet copies, normalizes and validates the given records
func NewRecordSet(records []Record) (*RecordSet, error) {
	if len(records) == 0 {
		return nil, core.ErrEmptyDataset
	}
	out := make([]Record, len(records))
	for i, r := range records {
		r.normalize()
		if err := r.validate(i); err != nil {
			return nil, err
		}
		out[i] = r
	}
	return &RecordSet{records: out}, nil
}

// Len returns the number of records
func (rs *RecordSet) Len() int {
	return len(rs.records)
}

// At returns a copy of the i-th record
func (rs *RecordSet) At(i int) Record {
	return rs.records[i]
}

// Records returns a copy of all records in order
func (rs *RecordSet) Records() []Record {
	out := make([]Record, len(rs.records))
	copy(out, rs.records)
	return out
}

// Causes returns the distinct causes in encounter order
func (rs *RecordSet) Causes() []string {
	seen := make(map[string]bool)
	var causes []string
	for _, r := range rs.records {
		if !seen[r.Cause] {
			seen[r.Cause] = true
			causes = append(causes, r.Cause)
		}
	}
	return causes
}

// CauseCounts returns the number of records per cause
func (rs *RecordSet) CauseCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range rs.records {
		counts[r.Cause]++
	}
	return counts
}

// Resample draws Len() records uniformly with replacement.
// The result shares no mutable state with the receiver.
func (rs *RecordSet) Resample(rng *rand.Rand) *RecordSet {
	n := len(rs.records)
	out := make([]Record, n)
	for i := range out {
		out[i] = rs.records[rng.IntN(n)]
	}
	return &RecordSet{records: out}
}

// Fingerprint hashes the record contents independently of row order
func (rs *RecordSet) Fingerprint() core.Hash {
	digests := make([][32]byte, len(rs.records))
	for i, r := range rs.records {
		h := sha256.New()
		var buf [8]byte
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(r.BreachDate.Unix()))
		h.Write(buf[:])
		h.Write([]byte(r.Cause))
		h.Write([]byte{0})
		h.Write([]byte(r.Sector))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(r.AffectedCount))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r.TotalAmount))
		h.Write(buf[:])
		copy(digests[i][:], h.Sum(nil))
	}
	sort.Slice(digests, func(i, j int) bool {
		return string(digests[i][:]) < string(digests[j][:])
	})
	all := make([]byte, 0, len(digests)*32)
	for _, d := range digests {
		all = append(all, d[:]...)
	}
	return core.NewHash(all)
}

// DateRange returns the earliest and latest breach dates
func (rs *RecordSet) DateRange() (time.Time, time.Time) {
	first, last := rs.records[0].BreachDate, rs.records[0].BreachDate
	for _, r := range rs.records[1:] {
		if r.BreachDate.Before(first) {
			first = r.BreachDate
		}
		if r.BreachDate.After(last) {
			last = r.BreachDate
		}
	}
	return first, last
}
