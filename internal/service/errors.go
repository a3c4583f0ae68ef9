package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/patient"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// fieldErrors collects validation messages; Err returns nil when none were added.
type fieldErrors []string

func (f *fieldErrors) add(format string, args ...any) {
	*f = append(*f, fmt.Sprintf(format, args...))
}

func (f fieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// DuplicatePatientError is returned when registration matches existing
// records closely enough to block it. Retry with force to register anyway.
type DuplicatePatientError struct {
	Matches []patient.MatchCandidate
}

func (e *DuplicatePatientError) Error() string {
	return fmt.Sprintf("possible duplicate patient: %d existing record(s) match", len(e.Matches))
}
