package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"jobhub/internal/metrics"
	"jobhub/internal/model"
	"jobhub/internal/notify"
	"jobhub/internal/status"
	"jobhub/internal/store"
	"jobhub/internal/workflow"
)

// createJobHandler creates a new work order in status new.
func createJobHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}
	if req.WorkOrderNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "workOrderNumber is required",
		})
	}

	now := time.Now().UTC()
	job := model.Job{
		ID:              uuid.New().String(),
		WorkOrderNumber: req.WorkOrderNumber,
		Description:     req.Description,
		Address:         req.Address,
		Status:          status.New,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := st.CreateJob(c.Context(), job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "JOB_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(JobResponse{Success: true, Job: &job})
}

// listJobsHandler lists jobs, optionally filtered by status. Legacy
// status aliases are accepted in the filter and resolved before the
// query.
func listJobsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var filter status.Status
	if v := c.Query("status"); v != "" {
		filter = status.Resolve(status.Status(v))
		if !status.IsCanonical(filter) {
			return c.Status(fiber.StatusBadRequest).JSON(JobsListResponse{
				Success: false,
				Code:    workflow.CodeUnknownStatus,
				Error:   "unknown status filter " + v,
			})
		}
	}

	limit := int64(50)
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(JobsListResponse{
				Success: false,
				Code:    "BAD_REQUEST",
				Error:   "invalid limit value",
			})
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	jobs, err := st.ListJobs(c.Context(), filter, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(JobsListResponse{
			Success: false,
			Code:    "JOB_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(JobsListResponse{Success: true, Jobs: jobs})
}

func jobDetailHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	job, err := st.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(JobResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(JobResponse{
			Success: false,
			Code:    "JOB_GET_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(JobResponse{Success: true, Job: &job})
}

// transitionHandler moves a job to a new status. The transition is
// validated against the canonical graph and its gate fields, then
// committed conditionally on the job still being in the validated
// source status.
func transitionHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	wf := c.Locals("validator").(*workflow.Validator)

	var req TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(TransitionResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(TransitionResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "status is required",
		})
	}

	jobID := c.Params("id")
	job, err := st.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(TransitionResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(TransitionResponse{
			Success: false,
			Code:    "JOB_GET_FAILED",
			Error:   err.Error(),
		})
	}

	res := wf.Validate(job.Status, req.Status, req.Fields)
	if !res.Valid {
		metrics.RecordTransition(string(res.From), string(res.To), res.Code)
		resp := TransitionResponse{
			Success: false,
			Code:    res.Code,
			Error:   res.Err,
		}
		if len(res.MissingFields) > 0 {
			resp.Details = res.MissingFields
		}
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	if err := st.ApplyTransition(c.Context(), jobID, res, req.Fields); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			metrics.RecordTransition(string(res.From), string(res.To), "STALE_STATE")
			return c.Status(fiber.StatusConflict).JSON(TransitionResponse{
				Success: false,
				Code:    "STALE_STATE",
				Error:   "job status changed concurrently, re-read and retry",
			})
		}
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(TransitionResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(TransitionResponse{
			Success: false,
			Code:    "TRANSITION_FAILED",
			Error:   err.Error(),
		})
	}

	metrics.RecordTransition(string(res.From), string(res.To), "applied")
	publishEvent(c, notify.Event{
		Type:  "job.transition",
		JobID: jobID,
		From:  string(res.From),
		To:    string(res.To),
	})

	updated, err := st.GetJob(c.Context(), jobID)
	if err != nil {
		// Transition committed; return the endpoints without the document.
		return c.JSON(TransitionResponse{Success: true, From: res.From, To: res.To})
	}
	return c.JSON(TransitionResponse{Success: true, From: res.From, To: res.To, Job: &updated})
}

// transitionsHandler lists the allowed next statuses for a job and the
// evidence each edge requires, so clients can prompt for exactly what
// is needed.
func transitionsHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)
	wf := c.Locals("validator").(*workflow.Validator)

	job, err := st.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(TransitionsResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(TransitionsResponse{
			Success: false,
			Code:    "JOB_GET_FAILED",
			Error:   err.Error(),
		})
	}

	targets, ok := wf.Targets(job.Status)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(TransitionsResponse{
			Success: false,
			Code:    workflow.CodeUnknownStatus,
			Error:   "job has an unrecognized status " + string(job.Status),
		})
	}

	opts := make([]TransitionOption, 0, len(targets))
	for _, to := range targets {
		opts = append(opts, TransitionOption{
			To:             to,
			RequiredFields: wf.Gates(job.Status, to),
		})
	}

	return c.JSON(TransitionsResponse{Success: true, Status: job.Status, Transitions: opts})
}

// publishEvent sends a workflow event when a publisher is configured.
func publishEvent(c *fiber.Ctx, ev notify.Event) {
	if val := c.Locals("notify"); val != nil {
		if pub, ok := val.(*notify.Publisher); ok {
			pub.Publish(c.Context(), ev)
		}
	}
}
