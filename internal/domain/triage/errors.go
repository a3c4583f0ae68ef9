package triage

import "errors"

var (
	ErrEntryNotFound   = errors.New("triage entry not found")
	ErrQueueEmpty      = errors.New("queue is empty")
	ErrAlreadyQueued   = errors.New("patient is already waiting in this queue")
	ErrInvalidPriority = errors.New("priority must be between 1 and 5")
	ErrNotWaiting      = errors.New("triage entry is not waiting")
	ErrNotCalled       = errors.New("triage entry has not been called")
	ErrQueueRequired   = errors.New("queue name is required")
)
