package ward

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBedOccupyAndVacate(t *testing.T) {
	b := &Bed{Status: BedAvailable}
	pid, aid := uuid.New(), uuid.New()
	now := time.Now()

	require.NoError(t, b.Occupy(pid, &aid, now))
	assert.Equal(t, BedOccupied, b.Status)
	assert.Equal(t, pid, *b.CurrentPatientID)

	assert.ErrorIs(t, b.Occupy(uuid.New(), nil, now), ErrBedUnavailable)

	require.NoError(t, b.Vacate())
	assert.Equal(t, BedCleaning, b.Status)
	assert.Nil(t, b.CurrentPatientID)
	assert.Nil(t, b.CurrentAdmissionID)
	assert.Nil(t, b.OccupiedSince)

	assert.ErrorIs(t, b.Vacate(), ErrBedNotOccupied)
}

func TestBedSetStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    BedStatus
		to      BedStatus
		wantErr error
	}{
		{"cleaning to available", BedCleaning, BedAvailable, nil},
		{"available to maintenance", BedAvailable, BedMaintenance, nil},
		{"maintenance to cleaning", BedMaintenance, BedCleaning, nil},
		{"occupied cannot change", BedOccupied, BedCleaning, ErrBedOccupied},
		{"cannot set occupied directly", BedAvailable, BedOccupied, ErrInvalidBedStatus},
		{"unknown status", BedAvailable, BedStatus("broken"), ErrInvalidBedStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bed{Status: tt.from}
			err := b.SetStatus(tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, b.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, b.Status)
		})
	}
}

func TestBedDays(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same hour", start, 1},
		{"few hours", start.Add(5 * time.Hour), 1},
		{"exactly one day", start.Add(24 * time.Hour), 1},
		{"one day and a minute", start.Add(24*time.Hour + time.Minute), 2},
		{"three and a half days", start.Add(84 * time.Hour), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BedDays(start, tt.end))
		})
	}
}

func TestAdmissionDischarge(t *testing.T) {
	a := &Admission{Status: AdmissionAdmitted}
	by := uuid.New()
	require.NoError(t, a.Discharge("recovered", DispositionHome, by, time.Now()))
	assert.False(t, a.IsOpen())
	assert.Equal(t, DispositionHome, a.Disposition)
	assert.ErrorIs(t, a.Discharge("", DispositionHome, by, time.Now()), ErrAdmissionClosed)
}

func TestSummarize(t *testing.T) {
	w := &Ward{ID: uuid.New(), Code: "MW1", Name: "Medical Ward 1"}
	beds := []*Bed{
		{Status: BedOccupied}, {Status: BedOccupied}, {Status: BedOccupied},
		{Status: BedAvailable}, {Status: BedCleaning},
	}
	o := Summarize(w, beds)
	assert.Equal(t, 5, o.Total)
	assert.Equal(t, 3, o.ByStatus[BedOccupied])
	assert.Equal(t, 0, o.ByStatus[BedMaintenance])
	assert.InDelta(t, 0.6, o.Rate, 1e-9)

	empty := Summarize(w, nil)
	assert.Zero(t, empty.Rate)
}

func TestWardAccepts(t *testing.T) {
	assert.True(t, (&Ward{}).Accepts("male"))
	assert.True(t, (&Ward{GenderRestriction: GenderFemale}).Accepts("female"))
	assert.False(t, (&Ward{GenderRestriction: GenderFemale}).Accepts("male"))
}
