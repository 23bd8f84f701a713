package audit

import (
	"errors"
	"testing"
	"time"

	"jobhub/internal/model"
	"jobhub/internal/status"
)

func testController() *Controller {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Controller{now: func() time.Time { return fixed }}
}

func failedJob(t *testing.T, c *Controller, failures int) *model.Job {
	t.Helper()
	job := &model.Job{ID: "job1", Status: status.PendingQAReview}
	for i := 0; i < failures; i++ {
		if _, err := c.Record(job, RecordInput{
			Result:                model.AuditFail,
			AuditedBy:             "inspector1",
			InfractionDescription: "improper backfill",
		}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	return job
}

func auditErrCode(t *testing.T, err error) string {
	t.Helper()
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *audit.Error, got %T: %v", err, err)
	}
	return ae.Code
}

func TestRecord_PassClosesImmediately(t *testing.T) {
	c := testController()
	job := &model.Job{ID: "job1", Status: status.PendingQAReview}

	rec, err := c.Record(job, RecordInput{Result: model.AuditPass, AuditedBy: "inspector1"})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Status != model.AuditClosed {
		t.Errorf("status = %s, want closed", rec.Status)
	}
	if job.PassedAuditDate == nil {
		t.Error("passedAuditDate not stamped")
	}
	if job.HasFailedAudit || job.FailedAuditCount != 0 {
		t.Errorf("pass should not touch failure aggregate: hasFailedAudit=%v count=%d",
			job.HasFailedAudit, job.FailedAuditCount)
	}
}

func TestRecord_FailRaisesAggregate(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)

	rec := &job.AuditHistory[0]
	if rec.Status != model.AuditPendingQA {
		t.Errorf("status = %s, want pending_qa", rec.Status)
	}
	if !job.HasFailedAudit {
		t.Error("hasFailedAudit not set")
	}
	if job.FailedAuditCount != 1 {
		t.Errorf("failedAuditCount = %d, want 1", job.FailedAuditCount)
	}
}

func TestRecord_FailRequiresInfractionDescription(t *testing.T) {
	c := testController()
	job := &model.Job{ID: "job1"}

	_, err := c.Record(job, RecordInput{Result: model.AuditFail})
	if err == nil {
		t.Fatal("expected error for missing infraction description")
	}
	if code := auditErrCode(t, err); code != CodeMissingInfraction {
		t.Errorf("code = %s, want %s", code, CodeMissingInfraction)
	}
	if len(job.AuditHistory) != 0 {
		t.Error("no record should be appended on failure")
	}
}

func TestRecord_InvalidResult(t *testing.T) {
	c := testController()
	job := &model.Job{ID: "job1"}

	_, err := c.Record(job, RecordInput{Result: "maybe"})
	if err == nil {
		t.Fatal("expected error for invalid result")
	}
	if code := auditErrCode(t, err); code != CodeInvalidResult {
		t.Errorf("code = %s, want %s", code, CodeInvalidResult)
	}
}

func TestReview_AcceptedAssignsCorrection(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	err := c.Review(job, id, ReviewInput{
		Decision:   DecisionAccepted,
		ReviewedBy: "qa1",
		Notes:      "confirmed on photos",
		Assignee:   "gf2",
	})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	rec := &job.AuditHistory[0]
	if rec.Status != model.AuditCorrectionAssigned {
		t.Errorf("status = %s, want correction_assigned", rec.Status)
	}
	if rec.CorrectionAssignedTo != "gf2" || rec.CorrectionAssignedDate == nil {
		t.Error("correction assignment not stamped")
	}
	if job.AssignedToGF != "gf2" {
		t.Errorf("assignedToGF = %q, want mirrored assignee gf2", job.AssignedToGF)
	}
	if !job.HasFailedAudit {
		t.Error("accepting a failure must keep hasFailedAudit set")
	}
}

func TestReview_AcceptedWithoutAssignee(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted, ReviewedBy: "qa1"}); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	rec := &job.AuditHistory[0]
	if rec.CorrectionAssignedTo != "" || rec.CorrectionAssignedDate != nil {
		t.Error("correction assignment should not be stamped without an assignee")
	}
	if job.AssignedToGF != "" {
		t.Error("job assignee should be untouched without an assignee")
	}
}

// Disputing the last active failure clears the job-level flag without
// touching the job's own status.
func TestReview_DisputeClearsFlag(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	err := c.Review(job, id, ReviewInput{
		Decision:      DecisionDisputed,
		ReviewedBy:    "qa1",
		DisputeReason: "wrong location photographed",
	})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	rec := &job.AuditHistory[0]
	if rec.Status != model.AuditDisputed {
		t.Errorf("status = %s, want disputed", rec.Status)
	}
	if rec.DisputeReason == "" {
		t.Error("dispute reason not stored")
	}
	if job.HasFailedAudit {
		t.Error("hasFailedAudit should clear when the only failure is disputed")
	}
	if job.Status != status.PendingQAReview {
		t.Errorf("job status = %s, dispute must not change it", job.Status)
	}
	if job.FailedAuditCount != 1 {
		t.Errorf("failedAuditCount = %d, counter never decrements", job.FailedAuditCount)
	}
}

func TestReview_DisputeKeepsFlagWhenOthersActive(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 2)

	err := c.Review(job, job.AuditHistory[0].ID, ReviewInput{
		Decision:      DecisionDisputed,
		DisputeReason: "not our trench",
	})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !job.HasFailedAudit {
		t.Error("hasFailedAudit should stay set while a sibling failure is active")
	}
}

func TestReview_Errors(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	if err := c.Review(job, "nope", ReviewInput{Decision: DecisionAccepted}); err == nil {
		t.Error("expected UNKNOWN_AUDIT for bad id")
	} else if code := auditErrCode(t, err); code != CodeUnknownAudit {
		t.Errorf("code = %s, want %s", code, CodeUnknownAudit)
	}

	if err := c.Review(job, id, ReviewInput{Decision: "shrug"}); err == nil {
		t.Error("expected INVALID_DECISION")
	} else if code := auditErrCode(t, err); code != CodeInvalidDecision {
		t.Errorf("code = %s, want %s", code, CodeInvalidDecision)
	}
	if job.AuditHistory[0].Status != model.AuditPendingQA {
		t.Error("record must be untouched after a rejected decision")
	}

	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted}); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted}); err == nil {
		t.Error("expected INVALID_AUDIT_STATE on double review")
	} else if code := auditErrCode(t, err); code != CodeInvalidAuditState {
		t.Errorf("code = %s, want %s", code, CodeInvalidAuditState)
	}
}

func TestSubmitCorrection(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	// Not yet assigned.
	if err := c.SubmitCorrection(job, id, CorrectionInput{Photos: []string{"p1.jpg"}}); err == nil {
		t.Error("expected INVALID_AUDIT_STATE before assignment")
	}

	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted, Assignee: "gf2"}); err != nil {
		t.Fatalf("Review failed: %v", err)
	}

	if err := c.SubmitCorrection(job, id, CorrectionInput{CompletedBy: "crew3"}); err == nil {
		t.Error("expected MISSING_CORRECTION_PHOTOS")
	} else if code := auditErrCode(t, err); code != CodeMissingCorrectionPhoto {
		t.Errorf("code = %s, want %s", code, CodeMissingCorrectionPhoto)
	}

	err := c.SubmitCorrection(job, id, CorrectionInput{
		CompletedBy: "crew3",
		Description: "re-compacted and re-seeded",
		Photos:      []string{"p1.jpg", "p2.jpg"},
	})
	if err != nil {
		t.Fatalf("SubmitCorrection failed: %v", err)
	}
	rec := &job.AuditHistory[0]
	if rec.Status != model.AuditCorrectionSubmitted {
		t.Errorf("status = %s, want correction_submitted", rec.Status)
	}
	if rec.CorrectionCompletedDate == nil || len(rec.CorrectionPhotos) != 2 {
		t.Error("correction evidence not stamped")
	}
}

// Resolving the last active failure clears the flag and promotes the
// job to ready_to_submit; resolving while a sibling failure is still
// open leaves the aggregate alone.
func TestResolve_AggregateConvergence(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 2)
	job.Status = status.GoBack
	first := job.AuditHistory[0].ID
	second := job.AuditHistory[1].ID

	for _, id := range []string{first, second} {
		if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted, Assignee: "gf2"}); err != nil {
			t.Fatalf("Review failed: %v", err)
		}
	}

	if err := c.Resolve(job, first, ResolveInput{ResolvedBy: "qa1", Notes: "fixed"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !job.HasFailedAudit {
		t.Error("hasFailedAudit should stay set with one failure remaining")
	}
	if job.Status != status.GoBack {
		t.Errorf("job status = %s, should be unchanged with one failure remaining", job.Status)
	}

	if err := c.Resolve(job, second, ResolveInput{ResolvedBy: "qa1"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if job.HasFailedAudit {
		t.Error("hasFailedAudit should clear after the last failure resolves")
	}
	if job.Status != status.ReadyToSubmit {
		t.Errorf("job status = %s, want ready_to_submit", job.Status)
	}
	if job.FailedAuditCount != 2 {
		t.Errorf("failedAuditCount = %d, want 2 (never decremented)", job.FailedAuditCount)
	}
}

// QA may close out an assigned correction directly, without a crew
// submission in between.
func TestResolve_ToleratedFromCorrectionAssigned(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted}); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if err := c.Resolve(job, id, ResolveInput{ResolvedBy: "qa1", Notes: "verified on site"}); err != nil {
		t.Fatalf("Resolve from correction_assigned should be tolerated: %v", err)
	}
	if job.AuditHistory[0].Status != model.AuditResolved {
		t.Errorf("status = %s, want resolved", job.AuditHistory[0].Status)
	}
}

func TestResolve_Errors(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	id := job.AuditHistory[0].ID

	if err := c.Resolve(job, "nope", ResolveInput{}); err == nil {
		t.Error("expected UNKNOWN_AUDIT")
	} else if code := auditErrCode(t, err); code != CodeUnknownAudit {
		t.Errorf("code = %s, want %s", code, CodeUnknownAudit)
	}

	// Still pending_qa: resolve is not yet legal.
	if err := c.Resolve(job, id, ResolveInput{}); err == nil {
		t.Error("expected INVALID_AUDIT_STATE from pending_qa")
	} else if code := auditErrCode(t, err); code != CodeInvalidAuditState {
		t.Errorf("code = %s, want %s", code, CodeInvalidAuditState)
	}
}

func TestActiveFailure(t *testing.T) {
	tests := []struct {
		name string
		rec  model.AuditRecord
		want bool
	}{
		{"pass closed", model.AuditRecord{Result: model.AuditPass, Status: model.AuditClosed}, false},
		{"fail pending_qa", model.AuditRecord{Result: model.AuditFail, Status: model.AuditPendingQA}, true},
		{"fail correction_assigned", model.AuditRecord{Result: model.AuditFail, Status: model.AuditCorrectionAssigned}, true},
		{"fail correction_submitted", model.AuditRecord{Result: model.AuditFail, Status: model.AuditCorrectionSubmitted}, true},
		{"fail disputed", model.AuditRecord{Result: model.AuditFail, Status: model.AuditDisputed}, false},
		{"fail resolved", model.AuditRecord{Result: model.AuditFail, Status: model.AuditResolved}, false},
	}
	for _, tt := range tests {
		if got := ActiveFailure(tt.rec); got != tt.want {
			t.Errorf("%s: ActiveFailure = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// Dependencies are not part of the audit machine; a recompute must
// leave them untouched.
func TestRecomputeReadiness_LeavesDependenciesAlone(t *testing.T) {
	c := testController()
	job := failedJob(t, c, 1)
	job.Dependencies = []model.Dependency{{ID: "d1", Type: "permit", Status: "open"}}

	id := job.AuditHistory[0].ID
	if err := c.Review(job, id, ReviewInput{Decision: DecisionAccepted}); err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if err := c.Resolve(job, id, ResolveInput{ResolvedBy: "qa1"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(job.Dependencies) != 1 || job.Dependencies[0].Status != "open" {
		t.Errorf("dependencies disturbed by recompute: %+v", job.Dependencies)
	}
}
