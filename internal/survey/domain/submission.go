package domain

import "time"

const (
	SubmissionStatusSubmitted = "submitted"
	SubscriptionStatusActive  = "active"
)

// Submission is one stored questionnaire. Data holds the sanitized answers
// minus the contact fields, which live on the Subscription.
type Submission struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscriptionId"`
	Email          string         `json:"email"`
	Data           map[string]any `json:"data"`
	Status         string         `json:"status"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	LastAccessedAt *time.Time     `json:"lastAccessedAt,omitempty"`
	AccessCount    int            `json:"accessCount"`
}

// Subscription is the contact record for an email address.
type Subscription struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	AcceptedTerms   bool      `json:"acceptedTerms"`
	AcceptedContact bool      `json:"acceptedContact"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
