package patient

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

const (
	scoreNationalID = 100
	scoreNHIF       = 90
	scoreNameDOB    = 70
	scorePhone      = 60

	// MinMatchScore is the lowest score reported as a possible duplicate.
	MinMatchScore = 50
	// BlockingMatchScore rejects registration unless the caller forces it.
	BlockingMatchScore = 90

	maxNameDistance = 2
)

type MatchReason string

const (
	ReasonNationalID MatchReason = "national_id"
	ReasonNHIF       MatchReason = "nhif_number"
	ReasonPhone      MatchReason = "phone"
	ReasonNameDOB    MatchReason = "name_and_date_of_birth"
)

// MatchCriteria is the demographic fingerprint compared against existing records.
type MatchCriteria struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	NationalID  string
	NHIFNumber  string
	Phone       string
}

func (c MatchCriteria) IsEmpty() bool {
	return c.NationalID == "" && c.NHIFNumber == "" && c.Phone == "" &&
		(c.DateOfBirth.IsZero() || c.FirstName == "" || c.LastName == "")
}

func CriteriaFor(p *Patient) MatchCriteria {
	return MatchCriteria{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
		NationalID:  p.NationalID,
		NHIFNumber:  p.NHIFNumber,
		Phone:       p.Phone,
	}
}

type MatchCandidate struct {
	Patient *Patient      `json:"patient"`
	Score   int           `json:"score"`
	Reasons []MatchReason `json:"reasons"`
}

// Score compares c with an existing record. Rule scores add up and are capped at 100.
func Score(c MatchCriteria, p *Patient) (int, []MatchReason) {
	var score int
	var reasons []MatchReason

	if id := normalizeIdentifier(c.NationalID); id != "" && id == normalizeIdentifier(p.NationalID) {
		score += scoreNationalID
		reasons = append(reasons, ReasonNationalID)
	}
	if nhif := normalizeIdentifier(c.NHIFNumber); nhif != "" && nhif == normalizeIdentifier(p.NHIFNumber) {
		score += scoreNHIF
		reasons = append(reasons, ReasonNHIF)
	}
	if phone := NormalizePhone(c.Phone); phone != "" && phone == NormalizePhone(p.Phone) {
		score += scorePhone
		reasons = append(reasons, ReasonPhone)
	}
	if !c.DateOfBirth.IsZero() && sameDay(c.DateOfBirth, p.DateOfBirth) && similarNames(c.FirstName, c.LastName, p.FirstName, p.LastName) {
		score += scoreNameDOB
		reasons = append(reasons, ReasonNameDOB)
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

// RankMatches scores every candidate, drops those under MinMatchScore and
// sorts the rest by descending score. Merged records and excludeID are skipped.
func RankMatches(c MatchCriteria, candidates []*Patient, excludeID *uuid.UUID) []MatchCandidate {
	var out []MatchCandidate
	for _, p := range candidates {
		if p.Status == StatusMerged {
			continue
		}
		if excludeID != nil && p.ID == *excludeID {
			continue
		}
		score, reasons := Score(c, p)
		if score < MinMatchScore {
			continue
		}
		out = append(out, MatchCandidate{Patient: p, Score: score, Reasons: reasons})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Patient.CreatedAt.Before(out[j].Patient.CreatedAt)
	})
	return out
}

// NormalizePhone strips formatting and rewrites the Kenyan country code to a
// leading zero: "+254 712-345 678" becomes "0712345678".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "254") && len(digits) == 12 {
		digits = "0" + digits[3:]
	}
	return digits
}

// NormalizeName lowercases and collapses whitespace and punctuation.
func NormalizeName(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return strings.Join(fields, " ")
}

func normalizeIdentifier(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func similarNames(firstA, lastA, firstB, lastB string) bool {
	fa, la := NormalizeName(firstA), NormalizeName(lastA)
	fb, lb := NormalizeName(firstB), NormalizeName(lastB)
	if fa == "" || la == "" || fb == "" || lb == "" {
		return false
	}
	if levenshtein.ComputeDistance(fa+" "+la, fb+" "+lb) <= maxNameDistance {
		return true
	}
	// Registrations often swap given name and surname.
	return levenshtein.ComputeDistance(fa+" "+la, lb+" "+fb) <= maxNameDistance
}
