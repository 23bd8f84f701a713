// Package audit governs the per-record audit sub-machine and the
// job-level aggregate it rolls up into. It mutates in-memory Job and
// AuditRecord values only; persisting the outcome is the caller's
// responsibility (see internal/store for the concurrency-safe path).
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobhub/internal/model"
	"jobhub/internal/status"
)

// Error codes for audit operations. Like the workflow codes, these are
// passed through the HTTP boundary verbatim.
const (
	CodeUnknownAudit           = "UNKNOWN_AUDIT"
	CodeInvalidResult          = "INVALID_RESULT"
	CodeInvalidDecision        = "INVALID_DECISION"
	CodeInvalidAuditState      = "INVALID_AUDIT_STATE"
	CodeMissingInfraction      = "MISSING_INFRACTION_DESCRIPTION"
	CodeMissingCorrectionPhoto = "MISSING_CORRECTION_PHOTOS"
)

// Error is a structured audit failure. No partial mutation is ever
// committed alongside one: every operation validates fully before it
// touches the job.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// QA review decisions.
const (
	DecisionAccepted = "accepted"
	DecisionDisputed = "disputed"
)

// Controller applies audit sub-machine transitions. The clock is a
// field so tests can pin timestamps.
type Controller struct {
	now func() time.Time
}

// NewController returns a Controller using the wall clock.
func NewController() *Controller {
	return &Controller{now: time.Now}
}

// RecordInput is a new audit outcome, from a direct report or from the
// document-extraction pipeline.
type RecordInput struct {
	Result                model.AuditResult
	AuditedBy             string
	InfractionDescription string
	InfractionPhotos      []string
}

// Record appends a new audit record to the job. A pass closes
// immediately and stamps passedAuditDate. A fail requires a non-empty
// infraction description, enters pending_qa, raises hasFailedAudit,
// and increments failedAuditCount (which never decreases, even after
// resolution).
func (c *Controller) Record(job *model.Job, in RecordInput) (*model.AuditRecord, error) {
	switch in.Result {
	case model.AuditPass, model.AuditFail:
	default:
		return nil, errf(CodeInvalidResult, "invalid audit result %q, expected pass or fail", in.Result)
	}
	if in.Result == model.AuditFail && in.InfractionDescription == "" {
		return nil, errf(CodeMissingInfraction, "failed audits require an infraction description")
	}

	now := c.now()
	rec := model.AuditRecord{
		ID:          uuid.New().String(),
		Result:      in.Result,
		AuditedBy:   in.AuditedBy,
		AuditedDate: now,
	}

	if in.Result == model.AuditPass {
		rec.Status = model.AuditClosed
		job.PassedAuditDate = &now
	} else {
		rec.Status = model.AuditPendingQA
		rec.InfractionDescription = in.InfractionDescription
		rec.InfractionPhotos = in.InfractionPhotos
		job.HasFailedAudit = true
		job.FailedAuditCount++
	}

	job.AuditHistory = append(job.AuditHistory, rec)
	return &job.AuditHistory[len(job.AuditHistory)-1], nil
}

// ReviewInput is QA's decision on a failed audit awaiting review.
type ReviewInput struct {
	Decision      string
	ReviewedBy    string
	Notes         string
	Assignee      string // correction assignee, optional on accept
	DisputeReason string
}

// Review applies a QA decision to a record in pending_qa. Accepting
// moves it to correction_assigned and, when an assignee is supplied,
// stamps the correction fields and mirrors the assignee onto the job's
// general foreman. Disputing parks the record in disputed and
// recomputes hasFailedAudit across the remaining records — a dispute
// on the last active failure clears the job-level flag, with no change
// to the job's own status.
func (c *Controller) Review(job *model.Job, recordID string, in ReviewInput) error {
	rec := findRecord(job, recordID)
	if rec == nil {
		return errf(CodeUnknownAudit, "no audit record with id %q", recordID)
	}
	if rec.Status != model.AuditPendingQA {
		return errf(CodeInvalidAuditState, "audit %q is %s, QA review requires pending_qa", recordID, rec.Status)
	}

	now := c.now()
	switch in.Decision {
	case DecisionAccepted:
		rec.Status = model.AuditCorrectionAssigned
		rec.QADecision = DecisionAccepted
		rec.QANotes = in.Notes
		rec.QAReviewedBy = in.ReviewedBy
		rec.QAReviewedDate = &now
		if in.Assignee != "" {
			rec.CorrectionAssignedTo = in.Assignee
			rec.CorrectionAssignedDate = &now
			rec.CorrectionNotes = in.Notes
			job.AssignedToGF = in.Assignee
		}
	case DecisionDisputed:
		rec.Status = model.AuditDisputed
		rec.QADecision = DecisionDisputed
		rec.QANotes = in.Notes
		rec.QAReviewedBy = in.ReviewedBy
		rec.QAReviewedDate = &now
		rec.DisputeReason = in.DisputeReason
		job.HasFailedAudit = hasActiveFailure(job)
	default:
		return errf(CodeInvalidDecision, "invalid QA decision %q, expected accepted or disputed", in.Decision)
	}

	return nil
}

// CorrectionInput is a field crew's completed correction.
type CorrectionInput struct {
	CompletedBy string
	Description string
	Photos      []string
}

// SubmitCorrection records completed correction work on a record in
// correction_assigned. At least one photo is required as evidence.
func (c *Controller) SubmitCorrection(job *model.Job, recordID string, in CorrectionInput) error {
	rec := findRecord(job, recordID)
	if rec == nil {
		return errf(CodeUnknownAudit, "no audit record with id %q", recordID)
	}
	if rec.Status != model.AuditCorrectionAssigned {
		return errf(CodeInvalidAuditState, "audit %q is %s, correction submission requires correction_assigned", recordID, rec.Status)
	}
	if len(in.Photos) == 0 {
		return errf(CodeMissingCorrectionPhoto, "correction submissions require at least one photo")
	}

	now := c.now()
	rec.Status = model.AuditCorrectionSubmitted
	rec.CorrectionPhotos = in.Photos
	rec.CorrectionDescription = in.Description
	rec.CorrectionCompletedBy = in.CompletedBy
	rec.CorrectionCompletedDate = &now
	return nil
}

// ResolveInput is QA's approval of a completed correction.
type ResolveInput struct {
	ResolvedBy string
	Notes      string
}

// Resolve closes out a failed audit. It is valid from
// correction_submitted and also tolerated from correction_assigned so
// QA can close out directly without a crew submission. After the
// record resolves, RecomputeReadiness rolls the aggregate up into the
// job.
func (c *Controller) Resolve(job *model.Job, recordID string, in ResolveInput) error {
	rec := findRecord(job, recordID)
	if rec == nil {
		return errf(CodeUnknownAudit, "no audit record with id %q", recordID)
	}
	if rec.Status != model.AuditCorrectionSubmitted && rec.Status != model.AuditCorrectionAssigned {
		return errf(CodeInvalidAuditState, "audit %q is %s, resolve requires correction_submitted or correction_assigned", recordID, rec.Status)
	}

	now := c.now()
	rec.Status = model.AuditResolved
	rec.ResolvedBy = in.ResolvedBy
	rec.ResolvedDate = &now
	rec.ResolutionNotes = in.Notes

	c.RecomputeReadiness(job)
	return nil
}

// RecomputeReadiness recomputes hasFailedAudit across the whole audit
// history and, when no active failure remains, promotes the job to
// ready_to_submit. This is the one place the audit sub-machine reaches
// back into the job status machine: a fully cleared job is, by
// business definition, ready to resubmit to the utility.
func (c *Controller) RecomputeReadiness(job *model.Job) {
	job.HasFailedAudit = hasActiveFailure(job)
	if !job.HasFailedAudit {
		job.Status = status.ReadyToSubmit
	}
}

// ActiveFailure reports whether the record is a failed audit still in
// flight: result fail and status outside the terminal/dispute set.
func ActiveFailure(rec model.AuditRecord) bool {
	if rec.Result != model.AuditFail {
		return false
	}
	switch rec.Status {
	case model.AuditResolved, model.AuditClosed, model.AuditDisputed:
		return false
	}
	return true
}

func hasActiveFailure(job *model.Job) bool {
	for _, rec := range job.AuditHistory {
		if ActiveFailure(rec) {
			return true
		}
	}
	return false
}

func findRecord(job *model.Job, recordID string) *model.AuditRecord {
	for i := range job.AuditHistory {
		if job.AuditHistory[i].ID == recordID {
			return &job.AuditHistory[i]
		}
	}
	return nil
}
