package domain

import "time"

// StatusKind represents one lifecycle stage of an order
type StatusKind string

const (
	StatusPending  StatusKind = "pending"
	StatusAccepted StatusKind = "accepted"
	StatusRejected StatusKind = "rejected"
	StatusReceived StatusKind = "received"
	StatusProduced StatusKind = "produced"
	StatusDeliver  StatusKind = "deliver"
	StatusEnd      StatusKind = "end"

	// StatusUnknown is never sent by the server; it is the derived state of
	// an order with no status history (or an unrecognized status value).
	StatusUnknown StatusKind = "unknown"
)

// IsValid checks if the status is one the server may send
func (s StatusKind) IsValid() bool {
	switch s {
	case StatusPending,
		StatusAccepted,
		StatusRejected,
		StatusReceived,
		StatusProduced,
		StatusDeliver,
		StatusEnd:
		return true
	default:
		return false
	}
}

// StatusEvent is one entry of an order's status history
type StatusEvent struct {
	Status    StatusKind `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// Classify selects the current lifecycle stage from a status history.
// The history is reverse-chronological, so the first entry wins. An empty
// history classifies as StatusUnknown. Total: never fails on any input.
func Classify(history []StatusEvent) StatusKind {
	if len(history) == 0 {
		return StatusUnknown
	}
	if current := history[0].Status; current.IsValid() {
		return current
	}
	return StatusUnknown
}
