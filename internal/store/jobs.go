package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"jobhub/internal/model"
	"jobhub/internal/status"
	"jobhub/internal/workflow"
)

// Whitelist of transition evidence fields that may be persisted onto
// the job document alongside a status change. Anything else in the
// request payload is ignored. Values are coerced to the field's
// declared type before the write: the validator accepts any present
// value, and persisting a raw numeric into a string field would leave
// a document that no longer decodes into model.Job.
var evidenceStringFields = []string{"assignedToGF", "crewScheduledDate", "stuckReason"}

const evidenceBoolField = "safetyGateCleared"

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func coerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	default:
		return false
	}
}

// CreateJob inserts a new job document.
func (s *Store) CreateJob(ctx context.Context, job model.Job) error {
	_, err := s.jobs().InsertOne(ctx, job)
	return err
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (model.Job, error) {
	var job model.Job
	err := s.jobs().FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return model.Job{}, ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs, optionally filtered by canonical status,
// newest first.
func (s *Store) ListJobs(ctx context.Context, st status.Status, limit int64) ([]model.Job, error) {
	filter := bson.M{}
	if st != "" {
		filter["status"] = st
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cur, err := s.jobs().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Job
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTransition commits a validated status change. The update is
// conditioned on the job still being in the validated source status,
// so two concurrent transitions on the same job cannot both land: the
// loser gets ErrStaleState. Whitelisted evidence fields from the
// request are written atomically with the status.
func (s *Store) ApplyTransition(ctx context.Context, jobID string, res workflow.Result, fields workflow.Fields) error {
	set := transitionSet(res, fields)

	upd, err := s.jobs().UpdateOne(ctx,
		bson.M{"_id": jobID, "status": res.From},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return s.missOrStale(ctx, jobID)
	}
	return nil
}

// transitionSet builds the $set document for a validated transition.
func transitionSet(res workflow.Result, fields workflow.Fields) bson.M {
	set := bson.M{
		"status":    res.To,
		"updatedAt": time.Now().UTC(),
	}
	for _, name := range evidenceStringFields {
		if val, ok := fields[name]; ok && val != nil {
			set[name] = coerceString(val)
		}
	}
	if val, ok := fields[evidenceBoolField]; ok && val != nil {
		set[evidenceBoolField] = coerceBool(val)
	}
	return set
}

// AddDependency appends a dependency to the job's dependency list.
func (s *Store) AddDependency(ctx context.Context, jobID string, dep model.Dependency) error {
	upd, err := s.jobs().UpdateOne(ctx,
		bson.M{"_id": jobID},
		bson.M{
			"$push": bson.M{"dependencies": dep},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDependencyStatus updates a single dependency in place by id,
// using the same array-scoped targeted update as the audit mutator so
// sibling dependencies and the audit history are never rewritten.
func (s *Store) UpdateDependencyStatus(ctx context.Context, jobID, depID, depStatus string, resolvedAt *time.Time) error {
	set := bson.M{
		"dependencies.$.status": depStatus,
		"updatedAt":             time.Now().UTC(),
	}
	if resolvedAt != nil {
		set["dependencies.$.resolvedAt"] = resolvedAt
	}

	upd, err := s.jobs().UpdateOne(ctx,
		bson.M{"_id": jobID, "dependencies": bson.M{"$elemMatch": bson.M{"id": depID}}},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if upd.MatchedCount == 0 {
		return s.missOrStale(ctx, jobID)
	}
	return nil
}

// missOrStale distinguishes "job does not exist" from "job exists but
// the conditional filter did not match".
func (s *Store) missOrStale(ctx context.Context, jobID string) error {
	n, err := s.jobs().CountDocuments(ctx, bson.M{"_id": jobID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStaleState
}
