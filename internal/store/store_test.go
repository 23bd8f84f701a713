package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"jobhub/internal/model"
	"jobhub/internal/status"
	"jobhub/internal/workflow"
)

func TestTransitionSet_WhitelistsEvidence(t *testing.T) {
	res := workflow.Result{Valid: true, From: status.Scheduled, To: status.InProgress}
	fields := workflow.Fields{
		"safetyGateCleared": false,
		"foremanMood":       "great", // not whitelisted
		"stuckReason":       nil,     // nil never persisted
	}

	set := transitionSet(res, fields)

	if set["status"] != status.InProgress {
		t.Errorf("status = %v, want %s", set["status"], status.InProgress)
	}
	if v, ok := set["safetyGateCleared"]; !ok || v != false {
		t.Errorf("safetyGateCleared = %v (present=%v), want false", v, ok)
	}
	if _, ok := set["foremanMood"]; ok {
		t.Error("non-whitelisted field persisted")
	}
	if _, ok := set["stuckReason"]; ok {
		t.Error("nil field persisted")
	}
	if _, ok := set["updatedAt"]; !ok {
		t.Error("updatedAt not stamped")
	}
}

func TestTransitionSet_CoercesEvidenceTypes(t *testing.T) {
	res := workflow.Result{Valid: true, From: status.PreFielding, To: status.Scheduled}
	fields := workflow.Fields{
		"crewScheduledDate": float64(20250601), // JSON numbers arrive as float64
		"safetyGateCleared": float64(0),
		"stuckReason":       7,
	}

	set := transitionSet(res, fields)

	if set["crewScheduledDate"] != "20250601" {
		t.Errorf("crewScheduledDate = %v, want %q", set["crewScheduledDate"], "20250601")
	}
	if set["safetyGateCleared"] != false {
		t.Errorf("safetyGateCleared = %v, want false", set["safetyGateCleared"])
	}
	if set["stuckReason"] != "7" {
		t.Errorf("stuckReason = %v, want %q", set["stuckReason"], "7")
	}

	// Whatever the client sent, the committed document must still decode
	// into model.Job on the next read.
	raw, err := bson.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	var job model.Job
	if err := bson.Unmarshal(raw, &job); err != nil {
		t.Fatalf("decode into job: %v", err)
	}
	if job.CrewScheduledDate != "20250601" {
		t.Errorf("decoded crewScheduledDate = %q", job.CrewScheduledDate)
	}
	if job.SafetyGateCleared == nil || *job.SafetyGateCleared {
		t.Errorf("decoded safetyGateCleared = %v, want false", job.SafetyGateCleared)
	}
}

func TestPositional_PrefixesRecordFields(t *testing.T) {
	set := positional(map[string]any{"status": model.AuditResolved, "resolvedBy": "qa1"})

	if set["auditHistory.$.status"] != model.AuditResolved {
		t.Errorf("positional status = %v", set["auditHistory.$.status"])
	}
	if set["auditHistory.$.resolvedBy"] != "qa1" {
		t.Errorf("positional resolvedBy = %v", set["auditHistory.$.resolvedBy"])
	}
	if _, ok := set["updatedAt"]; !ok {
		t.Error("updatedAt not stamped on the job")
	}
	if _, ok := set["status"]; ok {
		t.Error("unprefixed record field would clobber the job status")
	}
}

func TestQAReviewSet(t *testing.T) {
	now := time.Now()
	accepted := &model.AuditRecord{
		Status:                 model.AuditCorrectionAssigned,
		QADecision:             "accepted",
		QAReviewedBy:           "qa1",
		QAReviewedDate:         &now,
		CorrectionAssignedTo:   "gf2",
		CorrectionAssignedDate: &now,
	}
	set := QAReviewSet(accepted)
	if set["status"] != model.AuditCorrectionAssigned {
		t.Errorf("status = %v", set["status"])
	}
	if set["correctionAssignedTo"] != "gf2" {
		t.Errorf("correctionAssignedTo = %v", set["correctionAssignedTo"])
	}
	if _, ok := set["disputeReason"]; ok {
		t.Error("disputeReason set on an accepted review")
	}

	disputed := &model.AuditRecord{
		Status:        model.AuditDisputed,
		QADecision:    "disputed",
		DisputeReason: "wrong trench",
	}
	set = QAReviewSet(disputed)
	if set["disputeReason"] != "wrong trench" {
		t.Errorf("disputeReason = %v", set["disputeReason"])
	}
	if _, ok := set["correctionAssignedTo"]; ok {
		t.Error("correction fields set without an assignee")
	}
}

func TestResolveSet(t *testing.T) {
	now := time.Now()
	rec := &model.AuditRecord{
		Status:          model.AuditResolved,
		ResolvedBy:      "qa1",
		ResolvedDate:    &now,
		ResolutionNotes: "verified",
	}
	set := ResolveSet(rec)
	if set["status"] != model.AuditResolved || set["resolvedBy"] != "qa1" {
		t.Errorf("unexpected resolve set: %v", set)
	}
}

func TestActiveFailureCond(t *testing.T) {
	cond := activeFailureCond()
	if cond["result"] != model.AuditFail {
		t.Errorf("result = %v, want fail", cond["result"])
	}
}
