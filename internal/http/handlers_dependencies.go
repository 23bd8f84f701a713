package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"jobhub/internal/model"
	"jobhub/internal/store"
)

// Dependency statuses are free-form by design (permits, locates, and
// joint-utility work all track differently), but a resolved/cleared
// dependency gets a resolvedAt stamp.
func dependencyResolved(s string) bool {
	return s == "resolved" || s == "cleared"
}

func addDependencyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req AddDependencyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DependencyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}
	if req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(DependencyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "type is required",
		})
	}

	dep := model.Dependency{
		ID:          uuid.New().String(),
		Type:        req.Type,
		Description: req.Description,
		Status:      "open",
		CreatedAt:   time.Now().UTC(),
	}

	if err := st.AddDependency(c.Context(), c.Params("id"), dep); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(DependencyResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(DependencyResponse{
			Success: false,
			Code:    "DEPENDENCY_ADD_FAILED",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(DependencyResponse{Success: true, Dependency: &dep})
}

// updateDependencyHandler changes one dependency's status in place by
// its identifier, without rewriting siblings or the audit history.
func updateDependencyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req UpdateDependencyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(DependencyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(DependencyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "status is required",
		})
	}

	var resolvedAt *time.Time
	if dependencyResolved(req.Status) {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	err := st.UpdateDependencyStatus(c.Context(), c.Params("id"), c.Params("depId"), req.Status, resolvedAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(DependencyResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "job not found",
			})
		}
		if errors.Is(err, store.ErrStaleState) {
			return c.Status(fiber.StatusNotFound).JSON(DependencyResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "dependency not found on job",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(DependencyResponse{
			Success: false,
			Code:    "DEPENDENCY_UPDATE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(DependencyResponse{Success: true})
}
