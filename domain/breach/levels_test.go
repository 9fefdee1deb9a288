package breach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferenceRule(t *testing.T) {
	tests := []struct {
		in      string
		want    ReferenceRule
		wantErr bool
	}{
		{"", ReferenceRule{Kind: RuleFirstSeen}, false},
		{"First", ReferenceRule{Kind: RuleFirstSeen}, false},
		{"alphabetical", ReferenceRule{Kind: RuleAlphabetical}, false},
		{"explicit:Hacking", ReferenceRule{Kind: RuleExplicit, Cause: "Hacking"}, false},
		{"explicit: Insider ", ReferenceRule{Kind: RuleExplicit, Cause: "Insider"}, false},
		{"explicit:", ReferenceRule{}, true},
		{"largest", ReferenceRule{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReferenceRule(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "explicit:Hacking", ReferenceRule{Kind: RuleExplicit, Cause: "Hacking"}.String())
	assert.Equal(t, "first", ReferenceRule{}.String())
}

func TestLevelsByRule(t *testing.T) {
	rs := sampleSet(t) // encounter order: Hacking, Insider, Unknown

	first, err := rs.Levels(ReferenceRule{Kind: RuleFirstSeen})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hacking", "Insider", UnknownCategory}, first.Order)
	assert.Equal(t, "Hacking", first.Reference())
	assert.Equal(t, []string{"Insider", UnknownCategory}, first.NonReference())

	alpha, err := rs.Levels(ReferenceRule{Kind: RuleAlphabetical})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hacking", "Insider", UnknownCategory}, alpha.Order)

	explicit, err := rs.Levels(ReferenceRule{Kind: RuleExplicit, Cause: "Insider"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Insider", "Hacking", UnknownCategory}, explicit.Order)
	assert.True(t, explicit.Contains(UnknownCategory))
	assert.Equal(t, -1, explicit.Index("Physical"))

	_, err = rs.Levels(ReferenceRule{Kind: RuleExplicit, Cause: "Physical"})
	assert.Error(t, err)
}

func TestSingleLevelHasNoNonReference(t *testing.T) {
	assert.Nil(t, Levels{Order: []string{"A"}}.NonReference())
	assert.Equal(t, "", Levels{}.Reference())
}
