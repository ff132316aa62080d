package models

import "time"

type ApplicationStatus string

const (
	ApplicationApplied      ApplicationStatus = "applied"
	ApplicationPending      ApplicationStatus = "pending"
	ApplicationAccepted     ApplicationStatus = "accepted"
	ApplicationRejected     ApplicationStatus = "rejected"
	ApplicationInterviewing ApplicationStatus = "interviewing"
)

type ApplicationJob struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

type Applicant struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	School string `json:"school"`
}

type Application struct {
	ID        ID                `json:"id"`
	JobID     ID                `json:"jobId"`
	StudentID ID                `json:"studentId"`
	Status    ApplicationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	Job       *ApplicationJob   `json:"job,omitempty"`
	Student   *Applicant        `json:"student,omitempty"`
}

// OrApplied treats an empty status as applied.
func (s ApplicationStatus) OrApplied() ApplicationStatus {
	if s == "" {
		return ApplicationApplied
	}
	return s
}

// DisplayStatus returns the status, treating an empty one as applied.
func (a Application) DisplayStatus() ApplicationStatus {
	return a.Status.OrApplied()
}

type ApplicationPayload struct {
	CoverLetter string `json:"coverLetter"`
}

type ApplicationPage struct {
	Applications []Application `json:"applications"`
	JobInfo      *JobPosting   `json:"jobInfo,omitempty"`
	Pagination   *Pagination   `json:"pagination"`
}
