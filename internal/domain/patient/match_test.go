package patient

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dob(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+254 712-345 678": "0712345678",
		"254712345678":     "0712345678",
		"0712 345 678":     "0712345678",
		"":                 "",
		"(020) 123-4567":   "0201234567",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "wanjiru kamau", NormalizeName("  Wanjiru   KAMAU "))
	assert.Equal(t, "o brien", NormalizeName("O'Brien"))
}

func TestSimilarNames(t *testing.T) {
	assert.True(t, similarNames("Otieno", "Ouma", "otieno", "ouma"))
	assert.True(t, similarNames("Otieno", "Ouma", "Otiena", "Ouma"))
	assert.True(t, similarNames("Ouma", "Otieno", "Otieno", "Ouma"))
	assert.True(t, similarNames("Wanjirü", "Kamau", "Wanjiru", "Kamau"))
	assert.False(t, similarNames("Kitten", "Ouma", "Sitting", "Ouma"))
	assert.False(t, similarNames("", "Ouma", "Otieno", "Ouma"))
}

func TestScore(t *testing.T) {
	existing := &Patient{
		FirstName:   "Achieng",
		LastName:    "Odhiambo",
		DateOfBirth: dob(1990, time.March, 14),
		NationalID:  "12345678",
		NHIFNumber:  "NH-0099",
		ContactInfo: ContactInfo{Phone: "0712345678"},
	}

	tests := []struct {
		name    string
		c       MatchCriteria
		score   int
		reasons []MatchReason
	}{
		{
			name:    "national id",
			c:       MatchCriteria{NationalID: "12345678"},
			score:   100,
			reasons: []MatchReason{ReasonNationalID},
		},
		{
			name:    "nhif ignores case and spaces",
			c:       MatchCriteria{NHIFNumber: "nh-0099 "},
			score:   90,
			reasons: []MatchReason{ReasonNHIF},
		},
		{
			name:    "phone in international format",
			c:       MatchCriteria{Phone: "+254712345678"},
			score:   60,
			reasons: []MatchReason{ReasonPhone},
		},
		{
			name:    "misspelt name with same dob",
			c:       MatchCriteria{FirstName: "Achien", LastName: "Odhiambo", DateOfBirth: dob(1990, time.March, 14)},
			score:   70,
			reasons: []MatchReason{ReasonNameDOB},
		},
		{
			name:    "swapped names with same dob",
			c:       MatchCriteria{FirstName: "Odhiambo", LastName: "Achieng", DateOfBirth: dob(1990, time.March, 14)},
			score:   70,
			reasons: []MatchReason{ReasonNameDOB},
		},
		{
			name:  "same name different dob",
			c:     MatchCriteria{FirstName: "Achieng", LastName: "Odhiambo", DateOfBirth: dob(1991, time.March, 14)},
			score: 0,
		},
		{
			name:    "phone and name capped at 100",
			c:       MatchCriteria{FirstName: "Achieng", LastName: "Odhiambo", DateOfBirth: dob(1990, time.March, 14), Phone: "0712345678"},
			score:   100,
			reasons: []MatchReason{ReasonPhone, ReasonNameDOB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons := Score(tt.c, existing)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}

func TestRankMatches(t *testing.T) {
	now := time.Now()
	byPhone := &Patient{ID: uuid.New(), FirstName: "Juma", LastName: "Hassan", ContactInfo: ContactInfo{Phone: "0700111222"}, CreatedAt: now}
	byID := &Patient{ID: uuid.New(), FirstName: "Juma", LastName: "Hasan", NationalID: "A1", CreatedAt: now}
	merged := &Patient{ID: uuid.New(), NationalID: "A1", Status: StatusMerged}
	weak := &Patient{ID: uuid.New(), FirstName: "Other", LastName: "Person", DateOfBirth: dob(2000, 1, 1)}

	c := MatchCriteria{NationalID: "A1", Phone: "0700 111 222"}
	got := RankMatches(c, []*Patient{byPhone, weak, merged, byID}, nil)

	require.Len(t, got, 2)
	assert.Equal(t, byID.ID, got[0].Patient.ID)
	assert.Equal(t, 100, got[0].Score)
	assert.Equal(t, byPhone.ID, got[1].Patient.ID)
	assert.Equal(t, 60, got[1].Score)

	excluded := RankMatches(c, []*Patient{byID}, &byID.ID)
	assert.Empty(t, excluded)
}

func TestMatchCriteria_IsEmpty(t *testing.T) {
	assert.True(t, MatchCriteria{FirstName: "a", LastName: "b"}.IsEmpty())
	assert.False(t, MatchCriteria{Phone: "0700"}.IsEmpty())
	assert.False(t, MatchCriteria{FirstName: "a", LastName: "b", DateOfBirth: dob(2000, 1, 1)}.IsEmpty())
}
