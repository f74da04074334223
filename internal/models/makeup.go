package models

import "time"

type MakeupStatus string

const (
	MakeupPending   MakeupStatus = "pending"
	MakeupApproved  MakeupStatus = "approved"
	MakeupDenied    MakeupStatus = "denied"
	MakeupCompleted MakeupStatus = "completed"
	MakeupCancelled MakeupStatus = "cancelled"
	MakeupExpired   MakeupStatus = "expired"
)

func (s MakeupStatus) Valid() bool {
	switch s {
	case MakeupPending, MakeupApproved, MakeupDenied, MakeupCompleted, MakeupCancelled, MakeupExpired:
		return true
	}
	return false
}

// Outstanding requests block a second submission for the same registration.
func (s MakeupStatus) Outstanding() bool {
	return s == MakeupPending || s == MakeupApproved
}

func (s MakeupStatus) Terminal() bool {
	return s.Valid() && !s.Outstanding()
}

type MakeupAction string

const (
	ActionApprove  MakeupAction = "approve"
	ActionDeny     MakeupAction = "deny"
	ActionComplete MakeupAction = "complete"
	ActionCancel   MakeupAction = "cancel"
	ActionExpire   MakeupAction = "expire"
	ActionUpdate   MakeupAction = "update"
)

func (a MakeupAction) Valid() bool {
	_, ok := actionSources[a]
	return ok
}

// makeupTransitions is the single source of legal moves. Update keeps the
// status and only edits mutable fields.
var makeupTransitions = map[MakeupStatus]map[MakeupAction]MakeupStatus{
	MakeupPending: {
		ActionApprove: MakeupApproved,
		ActionDeny:    MakeupDenied,
		ActionCancel:  MakeupCancelled,
		ActionUpdate:  MakeupPending,
	},
	MakeupApproved: {
		ActionComplete: MakeupCompleted,
		ActionCancel:   MakeupCancelled,
		ActionExpire:   MakeupExpired,
		ActionUpdate:   MakeupApproved,
	},
}

var actionSources = func() map[MakeupAction][]MakeupStatus {
	out := make(map[MakeupAction][]MakeupStatus)
	for from, actions := range makeupTransitions {
		for action := range actions {
			out[action] = append(out[action], from)
		}
	}
	return out
}()

// NextMakeupStatus returns the state reached by applying action in state from.
func NextMakeupStatus(from MakeupStatus, action MakeupAction) (MakeupStatus, bool) {
	to, ok := makeupTransitions[from][action]
	return to, ok
}

// MakeupRequest - single-use substitution of a missed session
type MakeupRequest struct {
	ID                 int64        `json:"id"`
	RegistrationID     int64        `json:"registration_id"`
	MissedSessionID    int64        `json:"missed_session_id"`
	RequestedSessionID *int64       `json:"requested_session_id,omitempty"`
	Status             MakeupStatus `json:"status"`
	Reason             *string      `json:"reason,omitempty"`
	Notes              *string      `json:"notes,omitempty"`
	DenialReason       *string      `json:"denial_reason,omitempty"`
	ReviewedBy         *int64       `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time   `json:"reviewed_at,omitempty"`
	ExpiresAt          *time.Time   `json:"expires_at,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// MakeupPatch carries the fields a transition writes alongside the status.
// Nil fields are left untouched.
type MakeupPatch struct {
	Notes              *string
	DenialReason       *string
	RequestedSessionID *int64
	ReviewedBy         *int64
	ReviewedAt         *time.Time
	ExpiresAt          *time.Time
	CompletedAt        *time.Time
}

// Apply writes the non-nil patch fields onto r.
func (p MakeupPatch) Apply(r *MakeupRequest) {
	if p.Notes != nil {
		r.Notes = p.Notes
	}
	if p.DenialReason != nil {
		r.DenialReason = p.DenialReason
	}
	if p.RequestedSessionID != nil {
		r.RequestedSessionID = p.RequestedSessionID
	}
	if p.ReviewedBy != nil {
		r.ReviewedBy = p.ReviewedBy
	}
	if p.ReviewedAt != nil {
		r.ReviewedAt = p.ReviewedAt
	}
	if p.ExpiresAt != nil {
		r.ExpiresAt = p.ExpiresAt
	}
	if p.CompletedAt != nil {
		r.CompletedAt = p.CompletedAt
	}
}
