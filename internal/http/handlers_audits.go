package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"jobhub/internal/audit"
	"jobhub/internal/metrics"
	"jobhub/internal/model"
	"jobhub/internal/notify"
	"jobhub/internal/store"
)

// loadJobForAudit fetches the job or writes the error response,
// returning ok=false when the request is already answered.
func loadJobForAudit(c *fiber.Ctx, st *store.Store) (model.Job, bool) {
	job, err := st.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(AuditResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
			return model.Job{}, false
		}
		_ = c.Status(fiber.StatusInternalServerError).JSON(AuditResponse{
			Success: false,
			Code:    "JOB_GET_FAILED",
			Error:   err.Error(),
		})
		return model.Job{}, false
	}
	return job, true
}

// auditError writes the structured controller error. Unknown audit ids
// map to 404, everything else is a 400 with the code passed through.
func auditError(c *fiber.Ctx, operation string, err error) error {
	var ae *audit.Error
	if errors.As(err, &ae) {
		metrics.RecordAudit(operation, ae.Code)
		httpStatus := fiber.StatusBadRequest
		if ae.Code == audit.CodeUnknownAudit {
			httpStatus = fiber.StatusNotFound
		}
		return c.Status(httpStatus).JSON(AuditResponse{
			Success: false,
			Code:    ae.Code,
			Error:   ae.Message,
		})
	}
	metrics.RecordAudit(operation, "INTERNAL_ERROR")
	return c.Status(fiber.StatusInternalServerError).JSON(AuditResponse{
		Success: false,
		Code:    "INTERNAL_ERROR",
		Error:   err.Error(),
	})
}

// staleOrError maps store failures after a valid controller run.
func staleOrError(c *fiber.Ctx, operation string, err error) error {
	if errors.Is(err, store.ErrStaleState) {
		metrics.RecordAudit(operation, "STALE_STATE")
		return c.Status(fiber.StatusConflict).JSON(AuditResponse{
			Success: false,
			Code:    "STALE_STATE",
			Error:   "audit record changed concurrently, re-read and retry",
		})
	}
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(AuditResponse{
			Success: false,
			Code:    "NOT_FOUND",
			Error:   "job not found",
		})
	}
	metrics.RecordAudit(operation, "INTERNAL_ERROR")
	return c.Status(fiber.StatusInternalServerError).JSON(AuditResponse{
		Success: false,
		Code:    "AUDIT_PERSIST_FAILED",
		Error:   err.Error(),
	})
}

// recordAuditHandler records a new audit outcome on a job, either from
// a direct report or from the document-extraction pipeline.
func recordAuditHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	ac := c.Locals("audit").(*audit.Controller)

	var req RecordAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuditResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}

	job, ok := loadJobForAudit(c, st)
	if !ok {
		return nil
	}

	rec, err := ac.Record(&job, audit.RecordInput{
		Result:                req.Result,
		AuditedBy:             req.AuditedBy,
		InfractionDescription: req.InfractionDescription,
		InfractionPhotos:      req.InfractionPhotos,
	})
	if err != nil {
		return auditError(c, "record", err)
	}

	if err := st.AppendAuditRecord(c.Context(), job.ID, *rec); err != nil {
		return staleOrError(c, "record", err)
	}

	metrics.RecordAudit("record", "ok")
	publishEvent(c, notify.Event{
		Type:    "audit.recorded",
		JobID:   job.ID,
		AuditID: rec.ID,
		Detail:  string(rec.Result),
	})

	return c.Status(fiber.StatusCreated).JSON(AuditResponse{Success: true, Audit: rec})
}

// reviewAuditHandler applies QA's accepted/disputed decision to a
// failed audit awaiting review.
func reviewAuditHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	ac := c.Locals("audit").(*audit.Controller)

	var req ReviewAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuditResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}

	job, ok := loadJobForAudit(c, st)
	if !ok {
		return nil
	}
	auditID := c.Params("auditId")

	err := ac.Review(&job, auditID, audit.ReviewInput{
		Decision:      req.Decision,
		ReviewedBy:    req.ReviewedBy,
		Notes:         req.Notes,
		Assignee:      req.Assignee,
		DisputeReason: req.DisputeReason,
	})
	if err != nil {
		return auditError(c, "review", err)
	}

	rec := findAudit(&job, auditID)

	jobSet := map[string]any{}
	if req.Decision == audit.DecisionAccepted && req.Assignee != "" {
		jobSet["assignedToGF"] = req.Assignee
	}

	err = st.UpdateAuditRecord(c.Context(), job.ID, auditID,
		[]model.AuditStatus{model.AuditPendingQA},
		store.QAReviewSet(rec), jobSet)
	if err != nil {
		return staleOrError(c, "review", err)
	}

	// A dispute can clear the job-level flag; recompute from the
	// now-current record list rather than the copy read above.
	if req.Decision == audit.DecisionDisputed {
		if err := st.RecomputeAuditAggregate(c.Context(), job.ID, false); err != nil {
			return staleOrError(c, "review", err)
		}
	}

	metrics.RecordAudit("review", "ok")
	publishEvent(c, notify.Event{
		Type:    "audit.reviewed",
		JobID:   job.ID,
		AuditID: auditID,
		Detail:  req.Decision,
	})

	return c.JSON(AuditResponse{Success: true, Audit: rec})
}

// submitCorrectionHandler records completed correction work with its
// photo evidence.
func submitCorrectionHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	ac := c.Locals("audit").(*audit.Controller)

	var req CorrectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuditResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}

	job, ok := loadJobForAudit(c, st)
	if !ok {
		return nil
	}
	auditID := c.Params("auditId")

	err := ac.SubmitCorrection(&job, auditID, audit.CorrectionInput{
		CompletedBy: req.CompletedBy,
		Description: req.Description,
		Photos:      req.Photos,
	})
	if err != nil {
		return auditError(c, "correction", err)
	}

	rec := findAudit(&job, auditID)
	err = st.UpdateAuditRecord(c.Context(), job.ID, auditID,
		[]model.AuditStatus{model.AuditCorrectionAssigned},
		store.CorrectionSet(rec), nil)
	if err != nil {
		return staleOrError(c, "correction", err)
	}

	metrics.RecordAudit("correction", "ok")
	return c.JSON(AuditResponse{Success: true, Audit: rec})
}

// resolveAuditHandler closes out a corrected audit and rolls the
// aggregate up into the job: when the last active failure clears, the
// job is promoted to ready_to_submit.
func resolveAuditHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	ac := c.Locals("audit").(*audit.Controller)

	var req ResolveAuditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(AuditResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}

	job, ok := loadJobForAudit(c, st)
	if !ok {
		return nil
	}
	auditID := c.Params("auditId")

	err := ac.Resolve(&job, auditID, audit.ResolveInput{
		ResolvedBy: req.ResolvedBy,
		Notes:      req.Notes,
	})
	if err != nil {
		return auditError(c, "resolve", err)
	}

	rec := findAudit(&job, auditID)
	err = st.UpdateAuditRecord(c.Context(), job.ID, auditID,
		[]model.AuditStatus{model.AuditCorrectionSubmitted, model.AuditCorrectionAssigned},
		store.ResolveSet(rec), nil)
	if err != nil {
		return staleOrError(c, "resolve", err)
	}

	if err := st.RecomputeAuditAggregate(c.Context(), job.ID, true); err != nil {
		return staleOrError(c, "resolve", err)
	}

	metrics.RecordAudit("resolve", "ok")
	publishEvent(c, notify.Event{
		Type:    "audit.resolved",
		JobID:   job.ID,
		AuditID: auditID,
	})

	updated, err := st.GetJob(c.Context(), job.ID)
	if err != nil {
		return c.JSON(AuditResponse{Success: true, Audit: rec})
	}
	return c.JSON(AuditResponse{Success: true, Audit: rec, Job: &updated})
}

func findAudit(job *model.Job, auditID string) *model.AuditRecord {
	for i := range job.AuditHistory {
		if job.AuditHistory[i].ID == auditID {
			return &job.AuditHistory[i]
		}
	}
	return nil
}
