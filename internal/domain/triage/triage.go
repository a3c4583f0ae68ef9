package triage

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Priority levels follow a five-level acuity scale; 1 is resuscitation.
const (
	PriorityMin = 1
	PriorityMax = 5
)

func ValidPriority(p int) bool {
	return p >= PriorityMin && p <= PriorityMax
}

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCalled    Status = "called"
	StatusCompleted Status = "completed"
	StatusLeft      Status = "left"
)

type Vitals struct {
	BloodPressure    string   `json:"blood_pressure,omitempty"`
	HeartRateBPM     *int     `json:"heart_rate_bpm,omitempty"`
	TemperatureC     *float64 `json:"temperature_celsius,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate_bpm,omitempty"`
}

type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID      uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	EncounterID    *uuid.UUID `gorm:"column:encounter_id;type:uuid" json:"encounter_id,omitempty"`
	Queue          string     `gorm:"column:queue;type:varchar(50);not null;index:idx_triage_queue_order,priority:1" json:"queue"`
	Priority       int        `gorm:"column:priority;not null;index:idx_triage_queue_order,priority:3" json:"priority"`
	ChiefComplaint string     `gorm:"column:chief_complaint;type:text" json:"chief_complaint,omitempty"`
	Vitals         *Vitals    `gorm:"column:vitals;serializer:json" json:"vitals,omitempty"`
	Status         Status     `gorm:"column:status;type:varchar(20);not null;default:'waiting';index:idx_triage_queue_order,priority:2" json:"status"`

	QueuedAt    time.Time  `gorm:"column:queued_at;not null;index:idx_triage_queue_order,priority:4" json:"queued_at"`
	CalledAt    *time.Time `gorm:"column:called_at" json:"called_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CalledBy    *uuid.UUID `gorm:"column:called_by;type:uuid" json:"called_by,omitempty"`
	TriagedBy   uuid.UUID  `gorm:"column:triaged_by;type:uuid;not null" json:"triaged_by"`

	Position int `gorm:"-" json:"position,omitempty"`
}

func (Entry) TableName() string {
	return "clinical.triage_entries"
}

// Less orders entries the way the queue is served.
func Less(a, b *Entry) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.QueuedAt.Before(b.QueuedAt)
}

// Sort orders entries in place and numbers their positions from 1.
func Sort(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return Less(entries[i], entries[j]) })
	for i, e := range entries {
		e.Position = i + 1
	}
}

func (e *Entry) Call(by uuid.UUID, at time.Time) error {
	if e.Status != StatusWaiting {
		return ErrNotWaiting
	}
	e.Status = StatusCalled
	e.CalledAt = &at
	e.CalledBy = &by
	return nil
}

func (e *Entry) Reprioritize(p int) error {
	if !ValidPriority(p) {
		return ErrInvalidPriority
	}
	if e.Status != StatusWaiting {
		return ErrNotWaiting
	}
	e.Priority = p
	return nil
}

func (e *Entry) Complete(at time.Time) error {
	if e.Status != StatusCalled {
		return ErrNotCalled
	}
	e.Status = StatusCompleted
	e.CompletedAt = &at
	return nil
}

// MarkLeft records a patient who left before being seen.
func (e *Entry) MarkLeft(at time.Time) error {
	if e.Status != StatusWaiting && e.Status != StatusCalled {
		return ErrNotWaiting
	}
	e.Status = StatusLeft
	e.CompletedAt = &at
	return nil
}

// Stats is a snapshot of a queue. Wait times are in seconds.
type Stats struct {
	Queue             string      `json:"queue"`
	Since             time.Time   `json:"since"`
	Waiting           int         `json:"waiting"`
	WaitingByPriority map[int]int `json:"waiting_by_priority"`
	CalledSince       int         `json:"called_since"`
	AvgWaitSeconds    float64     `json:"avg_wait_seconds"`
	MedianWaitSeconds float64     `json:"median_wait_seconds"`
	MaxWaitSeconds    float64     `json:"max_wait_seconds"`
	LongestWaitingSec float64     `json:"longest_current_wait_seconds"`
}

// ComputeStats builds Stats from the entries still waiting and the entries
// called since the reporting window opened.
func ComputeStats(queue string, waiting, called []*Entry, now time.Time) Stats {
	s := Stats{Queue: queue, WaitingByPriority: map[int]int{}}
	for p := PriorityMin; p <= PriorityMax; p++ {
		s.WaitingByPriority[p] = 0
	}
	for _, e := range waiting {
		s.Waiting++
		s.WaitingByPriority[e.Priority]++
		if w := now.Sub(e.QueuedAt).Seconds(); w > s.LongestWaitingSec {
			s.LongestWaitingSec = w
		}
	}

	waits := make([]float64, 0, len(called))
	for _, e := range called {
		if e.CalledAt == nil {
			continue
		}
		waits = append(waits, e.CalledAt.Sub(e.QueuedAt).Seconds())
	}
	s.CalledSince = len(waits)
	if len(waits) == 0 {
		return s
	}
	slices.Sort(waits)
	var sum float64
	for _, w := range waits {
		sum += w
	}
	s.AvgWaitSeconds = sum / float64(len(waits))
	s.MaxWaitSeconds = waits[len(waits)-1]
	mid := len(waits) / 2
	if len(waits)%2 == 0 {
		s.MedianWaitSeconds = (waits[mid-1] + waits[mid]) / 2
	} else {
		s.MedianWaitSeconds = waits[mid]
	}
	return s
}

type EnqueueCommand struct {
	PatientID      uuid.UUID
	EncounterID    *uuid.UUID
	Queue          string
	Priority       int
	ChiefComplaint string
	Vitals         *Vitals
}
