package patient

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckUsable(t *testing.T) {
	deleted := time.Now()
	tests := []struct {
		name string
		p    Patient
		want error
	}{
		{"active", Patient{Status: StatusActive}, nil},
		{"soft deleted", Patient{Status: StatusActive, DeletedAt: &deleted}, ErrPatientInactive},
		{"inactive", Patient{Status: StatusInactive}, ErrPatientInactive},
		{"deceased", Patient{Status: StatusDeceased}, ErrPatientDeceased},
		{"merged", Patient{Status: StatusMerged}, ErrPatientMerged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.p.CheckUsable(), tt.want)
		})
	}
}

func TestDeactivate(t *testing.T) {
	p := Patient{Status: StatusActive}
	require.NoError(t, p.Deactivate())
	assert.Equal(t, StatusInactive, p.Status)

	dead := Patient{Status: StatusDeceased}
	assert.ErrorIs(t, dead.Deactivate(), ErrPatientDeceased)
}

func TestMergeInto(t *testing.T) {
	target := uuid.New()
	p := Patient{ID: uuid.New(), Status: StatusActive}

	require.NoError(t, p.MergeInto(target))
	assert.Equal(t, StatusMerged, p.Status)
	assert.Equal(t, target, *p.MergedIntoID)

	assert.ErrorIs(t, p.MergeInto(uuid.New()), ErrPatientMerged)

	self := Patient{ID: target, Status: StatusActive}
	assert.ErrorIs(t, self.MergeInto(target), ErrMergeSamePatient)
}

func TestAbsorbIdentifiers(t *testing.T) {
	target := &Patient{
		NationalID: "12345678",
		BloodType:  BloodTypeUnknown,
		Allergies:  []string{"Penicillin"},
	}
	src := &Patient{
		NationalID:  "87654321",
		NHIFNumber:  "NH-555",
		ContactInfo: ContactInfo{
			Phone: "0712345678",
			Email: "wanjiku@example.com",
		},
		BloodType: BloodTypeOPos,
		Allergies: []string{"penicillin", "Sulfa"},
	}

	target.AbsorbIdentifiers(src)

	assert.Equal(t, "12345678", target.NationalID)
	assert.Equal(t, "NH-555", target.NHIFNumber)
	assert.Equal(t, "0712345678", target.Phone)
	assert.Equal(t, "wanjiku@example.com", target.Email)
	assert.Equal(t, BloodTypeOPos, target.BloodType)
	assert.Equal(t, []string{"Penicillin", "Sulfa"}, target.Allergies)
}

func TestAge(t *testing.T) {
	p := Patient{DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 34, p.Age(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, p.Age(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestUpdateCommandApply(t *testing.T) {
	p := &Patient{FirstName: "Achieng", LastName: "Otieno"}
	first := "  Akinyi "
	phone := "+254 712-345 678"
	cmd := UpdatePatientCommand{FirstName: &first, Phone: &phone}

	cmd.Apply(p)

	assert.Equal(t, "Akinyi", p.FirstName)
	assert.Equal(t, "Otieno", p.LastName)
	assert.Equal(t, "0712345678", p.Phone)
}
