package model

import (
	"time"

	"jobhub/internal/status"
)

// AuditResult is the outcome recorded for an audit: pass or fail. It
// is immutable once set on a record.
type AuditResult string

const (
	AuditPass AuditResult = "pass"
	AuditFail AuditResult = "fail"
)

// AuditStatus is the state of a single audit record in the audit
// sub-machine, distinct from the job status machine. A passing audit
// is closed immediately and never enters the QA/correction flow.
type AuditStatus string

const (
	AuditClosed              AuditStatus = "closed"
	AuditPendingQA           AuditStatus = "pending_qa"
	AuditCorrectionAssigned  AuditStatus = "correction_assigned"
	AuditDisputed            AuditStatus = "disputed"
	AuditCorrectionSubmitted AuditStatus = "correction_submitted"
	AuditResolved            AuditStatus = "resolved"
)

// AuditRecord is one audit outcome embedded in a job's auditHistory.
// Records are append-only; an existing record is only ever mutated in
// place through the audit sub-machine, addressed by its ID.
type AuditRecord struct {
	ID     string      `bson:"id" json:"id"`
	Result AuditResult `bson:"result" json:"result"`
	Status AuditStatus `bson:"status" json:"status"`

	AuditedBy   string    `bson:"auditedBy,omitempty" json:"auditedBy,omitempty"`
	AuditedDate time.Time `bson:"auditedDate" json:"auditedDate"`

	// Infraction fields, populated only when Result is fail.
	InfractionDescription string   `bson:"infractionDescription,omitempty" json:"infractionDescription,omitempty"`
	InfractionPhotos      []string `bson:"infractionPhotos,omitempty" json:"infractionPhotos,omitempty"`

	// QA review fields, populated once the failure is accepted or disputed.
	QADecision     string     `bson:"qaDecision,omitempty" json:"qaDecision,omitempty"`
	QANotes        string     `bson:"qaNotes,omitempty" json:"qaNotes,omitempty"`
	QAReviewedBy   string     `bson:"qaReviewedBy,omitempty" json:"qaReviewedBy,omitempty"`
	QAReviewedDate *time.Time `bson:"qaReviewedDate,omitempty" json:"qaReviewedDate,omitempty"`
	DisputeReason  string     `bson:"disputeReason,omitempty" json:"disputeReason,omitempty"`

	// Correction sub-flow fields.
	CorrectionAssignedTo    string     `bson:"correctionAssignedTo,omitempty" json:"correctionAssignedTo,omitempty"`
	CorrectionAssignedDate  *time.Time `bson:"correctionAssignedDate,omitempty" json:"correctionAssignedDate,omitempty"`
	CorrectionNotes         string     `bson:"correctionNotes,omitempty" json:"correctionNotes,omitempty"`
	CorrectionPhotos        []string   `bson:"correctionPhotos,omitempty" json:"correctionPhotos,omitempty"`
	CorrectionDescription   string     `bson:"correctionDescription,omitempty" json:"correctionDescription,omitempty"`
	CorrectionCompletedBy   string     `bson:"correctionCompletedBy,omitempty" json:"correctionCompletedBy,omitempty"`
	CorrectionCompletedDate *time.Time `bson:"correctionCompletedDate,omitempty" json:"correctionCompletedDate,omitempty"`

	// Resolution fields, populated on close-out.
	ResolvedBy      string     `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedDate    *time.Time `bson:"resolvedDate,omitempty" json:"resolvedDate,omitempty"`
	ResolutionNotes string     `bson:"resolutionNotes,omitempty" json:"resolutionNotes,omitempty"`
}

// Dependency is a blocking item tracked on a job (permits, locates,
// other utilities' work). Dependencies carry their own status and are
// not part of the job status machine; audit aggregate recomputes must
// leave them untouched.
type Dependency struct {
	ID          string     `bson:"id" json:"id"`
	Type        string     `bson:"type" json:"type"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Status      string     `bson:"status" json:"status"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	ResolvedAt  *time.Time `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// Job is a utility-construction work order. Its status field only ever
// holds canonical values; legacy aliases are resolved on input and
// never stored.
type Job struct {
	ID              string        `bson:"_id" json:"id"`
	WorkOrderNumber string        `bson:"workOrderNumber" json:"workOrderNumber"`
	Description     string        `bson:"description,omitempty" json:"description,omitempty"`
	Address         string        `bson:"address,omitempty" json:"address,omitempty"`
	Status          status.Status `bson:"status" json:"status"`

	// Transition evidence, stamped when the gated edge is taken.
	AssignedToGF      string `bson:"assignedToGF,omitempty" json:"assignedToGF,omitempty"`
	CrewScheduledDate string `bson:"crewScheduledDate,omitempty" json:"crewScheduledDate,omitempty"`
	SafetyGateCleared *bool  `bson:"safetyGateCleared,omitempty" json:"safetyGateCleared,omitempty"`
	StuckReason       string `bson:"stuckReason,omitempty" json:"stuckReason,omitempty"`

	// Audit aggregate. hasFailedAudit is derived from auditHistory and
	// only written by the aggregate recompute; failedAuditCount counts
	// every failed audit ever recorded and never decreases.
	HasFailedAudit   bool       `bson:"hasFailedAudit" json:"hasFailedAudit"`
	FailedAuditCount int        `bson:"failedAuditCount" json:"failedAuditCount"`
	PassedAuditDate  *time.Time `bson:"passedAuditDate,omitempty" json:"passedAuditDate,omitempty"`

	AuditHistory []AuditRecord `bson:"auditHistory,omitempty" json:"auditHistory,omitempty"`
	Dependencies []Dependency  `bson:"dependencies,omitempty" json:"dependencies,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// APIKey is a stored, hashed API key used by the HTTP boundary.
type APIKey struct {
	ID                 string     `bson:"_id" json:"id"`
	KeyHash            string     `bson:"keyHash" json:"-"`
	Label              string     `bson:"label" json:"label"`
	IsAdmin            bool       `bson:"isAdmin" json:"isAdmin"`
	RateLimitPerMinute *int       `bson:"rateLimitPerMinute,omitempty" json:"rateLimitPerMinute,omitempty"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
	RevokedAt          *time.Time `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
}
