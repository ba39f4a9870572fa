package models

import "time"

// ApplicationStatus is the review state of one applicant's bid
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusAccepted    ApplicationStatus = "accepted"
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn   ApplicationStatus = "withdrawn"
	ApplicationStatusCompleted   ApplicationStatus = "completed"
)

// Terminal reports whether the application can transition no further.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusRejected || s == ApplicationStatusWithdrawn || s == ApplicationStatusCompleted
}

// Active reports whether the application holds the bounty's single
// non-terminal assignment slot.
func (s ApplicationStatus) Active() bool {
	return s == ApplicationStatusAccepted || s == ApplicationStatusSubmitted || s == ApplicationStatusCompleted
}

// ApplicationEvent names a transition request against the state machine
type ApplicationEvent string

const (
	EventShortlist ApplicationEvent = "shortlist"
	EventAccept    ApplicationEvent = "accept"
	EventReject    ApplicationEvent = "reject"
	EventWithdraw  ApplicationEvent = "withdraw"
	EventSubmit    ApplicationEvent = "submit"
	EventApprove   ApplicationEvent = "approve"
	EventDeny      ApplicationEvent = "deny"
)

// Application is one applicant's bid for one bounty.
// (bounty_id, applicant_id) is unique — at most one application per user per bounty.
type Application struct {
	ID          string            `gorm:"primaryKey" json:"id"`
	BountyID    string            `gorm:"not null;index;uniqueIndex:idx_bounty_applicant" json:"bounty_id"`
	ApplicantID string            `gorm:"not null;index;uniqueIndex:idx_bounty_applicant" json:"applicant_id"` // ExternalUserID
	Status      ApplicationStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	Proposal string `gorm:"type:text" json:"proposal"`

	// Populated only when status reaches submitted/completed
	SubmissionData string  `gorm:"type:text" json:"submission_data,omitempty"`
	SubmissionURL  *string `json:"submission_url,omitempty"` // attachment in object storage

	Feedback string `gorm:"type:text" json:"feedback,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}
