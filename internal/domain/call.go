package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle state of a call
type CallStatus string

const (
	CallStatusCreated CallStatus = "created"
	CallStatusActive  CallStatus = "active"
	CallStatusEnded   CallStatus = "ended"
)

// Call represents a video/audio call session
type Call struct {
	CallID         uuid.UUID     `json:"call_id"`
	CreatedBy      uuid.UUID     `json:"created_by"`
	Participants   []Participant `json:"participants"`
	Status         CallStatus    `json:"status"`
	ExternalHandle *string       `json:"external_handle,omitempty"` // opaque signaling provider call id
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
}

// Participant represents one user's membership span within a call.
// A user that leaves and rejoins gets a fresh entry; at most one entry
// per user has LeftAt unset at any time.
type Participant struct {
	UserID   uuid.UUID  `json:"user_id"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// Duration returns the call length in whole seconds, or 0 while the call
// has not ended. Always derived from EndedAt - StartedAt.
func (c *Call) Duration() int {
	if c.EndedAt == nil {
		return 0
	}
	return int(c.EndedAt.Sub(c.StartedAt) / time.Second)
}

// ActiveParticipant returns the open membership entry for userID, or nil
func (c *Call) ActiveParticipant(userID uuid.UUID) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID && c.Participants[i].LeftAt == nil {
			return &c.Participants[i]
		}
	}
	return nil
}

// ActiveCount returns the number of participants that have not left
func (c *Call) ActiveCount() int {
	n := 0
	for i := range c.Participants {
		if c.Participants[i].LeftAt == nil {
			n++
		}
	}
	return n
}

// CallSummary is the projection returned by call history listings
type CallSummary struct {
	CallID    uuid.UUID  `json:"call_id"`
	CreatedBy uuid.UUID  `json:"created_by"`
	Status    CallStatus `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  int        `json:"duration"` // seconds, 0 until ended
}

// Summary converts a Call to its history projection
func (c *Call) Summary() *CallSummary {
	return &CallSummary{
		CallID:    c.CallID,
		CreatedBy: c.CreatedBy,
		Status:    c.Status,
		StartedAt: c.StartedAt,
		EndedAt:   c.EndedAt,
		Duration:  c.Duration(),
	}
}
