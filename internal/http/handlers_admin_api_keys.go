package http

import (
	"github.com/gofiber/fiber/v2"

	"jobhub/internal/model"
	"jobhub/internal/store"
)

type createAPIKeyRequest struct {
	Label              string `json:"label"`
	IsAdmin            bool   `json:"isAdmin"`
	RateLimitPerMinute *int   `json:"rateLimitPerMinute,omitempty"`
}

type createAPIKeyResponse struct {
	Success bool          `json:"success"`
	Code    string        `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`
	Key     string        `json:"key,omitempty"` // raw key, shown exactly once
	APIKey  *model.APIKey `json:"apiKey,omitempty"`
}

type listAPIKeysResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error,omitempty"`
	Keys    []model.APIKey `json:"keys,omitempty"`
}

func adminCreateAPIKeyHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	var req createAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(createAPIKeyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid request body",
		})
	}
	if req.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(createAPIKeyResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "label is required",
		})
	}

	rawKey, key, err := st.CreateRandomAPIKey(c.Context(), req.Label, req.IsAdmin, req.RateLimitPerMinute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(createAPIKeyResponse{
			Success: false,
			Code:    "API_KEY_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(createAPIKeyResponse{
		Success: true,
		Key:     rawKey,
		APIKey:  &key,
	})
}

func adminListAPIKeysHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	keys, err := st.ListAPIKeys(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(listAPIKeysResponse{
			Success: false,
			Code:    "API_KEY_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(listAPIKeysResponse{Success: true, Keys: keys})
}
