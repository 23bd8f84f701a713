package http

import (
	"jobhub/internal/model"
	"jobhub/internal/status"
	"jobhub/internal/workflow"
)

// ErrorResponse is the generic error envelope used by middleware and
// endpoints without a typed response of their own.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// CreateJobRequest creates a work order; jobs always start in status
// new.
type CreateJobRequest struct {
	WorkOrderNumber string `json:"workOrderNumber"`
	Description     string `json:"description,omitempty"`
	Address         string `json:"address,omitempty"`
}

type JobResponse struct {
	Success bool       `json:"success"`
	Code    string     `json:"code,omitempty"`
	Error   string     `json:"error,omitempty"`
	Job     *model.Job `json:"job,omitempty"`
}

type JobsListResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
	Jobs    []model.Job `json:"jobs,omitempty"`
}

// TransitionRequest moves a job to a new status. Fields carries the
// gate evidence for the edge (assignedToGF, crewScheduledDate,
// safetyGateCleared, stuckReason).
type TransitionRequest struct {
	Status status.Status   `json:"status"`
	Fields workflow.Fields `json:"fields,omitempty"`
}

// TransitionResponse is the single envelope for the transition
// endpoint, success or failure. Details carries the missing field
// names for MISSING_REQUIRED_FIELDS.
type TransitionResponse struct {
	Success bool          `json:"success"`
	Code    string        `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`
	Details interface{}   `json:"details,omitempty"`
	From    status.Status `json:"from,omitempty"`
	To      status.Status `json:"to,omitempty"`
	Job     *model.Job    `json:"job,omitempty"`
}

// TransitionOption describes one allowed successor and the evidence it
// requires.
type TransitionOption struct {
	To             status.Status `json:"to"`
	RequiredFields []string      `json:"requiredFields,omitempty"`
}

type TransitionsResponse struct {
	Success     bool               `json:"success"`
	Code        string             `json:"code,omitempty"`
	Error       string             `json:"error,omitempty"`
	Status      status.Status      `json:"status,omitempty"`
	Transitions []TransitionOption `json:"transitions,omitempty"`
}

// RecordAuditRequest records a new audit outcome, either typed in
// directly or produced by the document-extraction pipeline upstream.
type RecordAuditRequest struct {
	Result                model.AuditResult `json:"result"`
	AuditedBy             string            `json:"auditedBy,omitempty"`
	InfractionDescription string            `json:"infractionDescription,omitempty"`
	InfractionPhotos      []string          `json:"infractionPhotos,omitempty"`
}

// ReviewAuditRequest carries QA's decision on a failed audit.
type ReviewAuditRequest struct {
	Decision      string `json:"decision"`
	ReviewedBy    string `json:"reviewedBy,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Assignee      string `json:"assignee,omitempty"`
	DisputeReason string `json:"disputeReason,omitempty"`
}

// CorrectionRequest submits completed correction work.
type CorrectionRequest struct {
	CompletedBy string   `json:"completedBy,omitempty"`
	Description string   `json:"description,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

// ResolveAuditRequest closes out a corrected audit.
type ResolveAuditRequest struct {
	ResolvedBy string `json:"resolvedBy,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type AuditResponse struct {
	Success bool               `json:"success"`
	Code    string             `json:"code,omitempty"`
	Error   string             `json:"error,omitempty"`
	Audit   *model.AuditRecord `json:"audit,omitempty"`
	Job     *model.Job         `json:"job,omitempty"`
}

// AddDependencyRequest attaches a blocking item to a job.
type AddDependencyRequest struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// UpdateDependencyRequest changes one dependency's status.
type UpdateDependencyRequest struct {
	Status string `json:"status"`
}

type DependencyResponse struct {
	Success    bool              `json:"success"`
	Code       string            `json:"code,omitempty"`
	Error      string            `json:"error,omitempty"`
	Dependency *model.Dependency `json:"dependency,omitempty"`
}
