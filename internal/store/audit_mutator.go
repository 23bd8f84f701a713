package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"jobhub/internal/audit"
	"jobhub/internal/model"
	"jobhub/internal/status"
)

// The audit mutator never does read-modify-write on the whole
// document. Each mutation targets exactly one auditHistory element by
// id, conditioned on its expected prior status, and the job-level
// aggregate is recomputed in a second conditional update keyed by the
// current record list — so two QA reviewers resolving two different
// failed audits on the same job cannot clobber each other.

// AppendAuditRecord pushes a freshly recorded audit onto the job's
// history together with its aggregate side effects, in one atomic
// update.
func (s *Store) AppendAuditRecord(ctx context.Context, jobID string, rec model.AuditRecord) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	update := bson.M{
		"$push": bson.M{"auditHistory": rec},
		"$set":  set,
	}

	switch rec.Result {
	case model.AuditFail:
		set["hasFailedAudit"] = true
		update["$inc"] = bson.M{"failedAuditCount": 1}
	case model.AuditPass:
		set["passedAuditDate"] = rec.AuditedDate
	}

	upd, err := s.jobs().UpdateOne(ctx, bson.M{"_id": jobID}, update)
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAuditRecord applies one audit sub-machine transition to the
// record with the given id. The filter requires the record to still be
// in one of the expected prior statuses; a concurrent transition that
// got there first makes this a stale-state no-op rather than a lost
// update. Field paths in recSet are rewritten through the positional
// operator so only the matched element is touched; jobSet carries
// job-level fields written in the same atomic update (the QA review
// mirrors the correction assignee onto the job's general foreman).
func (s *Store) UpdateAuditRecord(ctx context.Context, jobID, recordID string, expect []model.AuditStatus, recSet, jobSet bson.M) error {
	filter := bson.M{
		"_id": jobID,
		"auditHistory": bson.M{"$elemMatch": bson.M{
			"id":     recordID,
			"status": bson.M{"$in": expect},
		}},
	}

	set := positional(recSet)
	for k, v := range jobSet {
		set[k] = v
	}

	upd, err := s.jobs().UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return s.missOrStale(ctx, jobID)
	}
	return nil
}

// positional prefixes record-level field names with the positional
// operator and stamps updatedAt on the job itself.
func positional(set bson.M) bson.M {
	out := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range set {
		out["auditHistory.$."+k] = v
	}
	return out
}

// QAReviewSet builds the record-level field set for a reviewed record.
func QAReviewSet(rec *model.AuditRecord) bson.M {
	set := bson.M{
		"status":         rec.Status,
		"qaDecision":     rec.QADecision,
		"qaNotes":        rec.QANotes,
		"qaReviewedBy":   rec.QAReviewedBy,
		"qaReviewedDate": rec.QAReviewedDate,
	}
	if rec.Status == model.AuditDisputed {
		set["disputeReason"] = rec.DisputeReason
	}
	if rec.CorrectionAssignedTo != "" {
		set["correctionAssignedTo"] = rec.CorrectionAssignedTo
		set["correctionAssignedDate"] = rec.CorrectionAssignedDate
		set["correctionNotes"] = rec.CorrectionNotes
	}
	return set
}

// CorrectionSet builds the record-level field set for a submitted
// correction.
func CorrectionSet(rec *model.AuditRecord) bson.M {
	return bson.M{
		"status":                  rec.Status,
		"correctionPhotos":        rec.CorrectionPhotos,
		"correctionDescription":   rec.CorrectionDescription,
		"correctionCompletedBy":   rec.CorrectionCompletedBy,
		"correctionCompletedDate": rec.CorrectionCompletedDate,
	}
}

// ResolveSet builds the record-level field set for a resolved record.
func ResolveSet(rec *model.AuditRecord) bson.M {
	return bson.M{
		"status":          rec.Status,
		"resolvedBy":      rec.ResolvedBy,
		"resolvedDate":    rec.ResolvedDate,
		"resolutionNotes": rec.ResolutionNotes,
	}
}

// activeFailureCond matches an auditHistory element that is a failed
// audit still in flight.
func activeFailureCond() bson.M {
	return bson.M{
		"result": model.AuditFail,
		"status": bson.M{"$nin": []model.AuditStatus{
			model.AuditResolved, model.AuditClosed, model.AuditDisputed,
		}},
	}
}

// RecomputeAuditAggregate recomputes hasFailedAudit from the current
// audit history and, when promote is set and no failure remains,
// flips the job to ready_to_submit. The scan result is re-expressed as
// a filter condition on the write itself, so the $set only lands if
// the record list still supports it at commit time — a sibling
// mutation that slipped in between surfaces as ErrStaleState and the
// caller recomputes again.
func (s *Store) RecomputeAuditAggregate(ctx context.Context, jobID string, promote bool) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	active := false
	for _, rec := range job.AuditHistory {
		if audit.ActiveFailure(rec) {
			active = true
			break
		}
	}

	filter := bson.M{"_id": jobID}
	if active {
		filter["auditHistory"] = bson.M{"$elemMatch": activeFailureCond()}
	} else {
		filter["auditHistory"] = bson.M{"$not": bson.M{"$elemMatch": activeFailureCond()}}
	}

	set := bson.M{
		"hasFailedAudit": active,
		"updatedAt":      time.Now().UTC(),
	}
	if promote && !active {
		set["status"] = status.ReadyToSubmit
	}

	upd, err := s.jobs().UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return s.missOrStale(ctx, jobID)
	}
	return nil
}
