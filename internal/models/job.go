package models

import "time"

type JobStatus string

const (
	JobStatusDraft   JobStatus = "draft"
	JobStatusActive  JobStatus = "active"
	JobStatusExpired JobStatus = "expired"
	JobStatusClosed  JobStatus = "closed"
)

// Approval is a school's approval attached to a job posting. Pending marks a
// locally synthesized entry that has not yet been replaced by server data.
type Approval struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Comments *string `json:"comments"`
	Pending  bool    `json:"pending,omitempty"`
}

type JobPosting struct {
	ID               ID            `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Status           JobStatus     `json:"status"`
	CompanyID        ID            `json:"companyId"`
	Company          *Organization `json:"company,omitempty"`
	ExpiresAt        *time.Time    `json:"expiresAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	ApplicationCount int           `json:"applicationCount"`
	ApprovalCount    int           `json:"approvalCount"`
	SchoolApproval   *Approval     `json:"schoolApproval"`
	HasApplied       bool          `json:"hasApplied,omitempty"`
}

// CompanyName returns the company display name or "Unknown".
func (j JobPosting) CompanyName() string {
	if j.Company != nil && j.Company.Name != "" {
		return j.Company.Name
	}
	return "Unknown"
}

// JobFilters narrows a job list request.
type JobFilters struct {
	Status          JobStatus
	SchoolID        ID
	CompanyID       ID
	PendingApproval bool
	Search          string
}

// JobPayload is the body of a job create or update.
type JobPayload struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExpiresAt   *string   `json:"expiresAt"`
	Status      JobStatus `json:"status"`
}

type JobPage struct {
	Jobs       []JobPosting `json:"jobs"`
	Pagination *Pagination  `json:"pagination"`
}
