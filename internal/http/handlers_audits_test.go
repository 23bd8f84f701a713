package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"jobhub/internal/audit"
	"jobhub/internal/store"
)

func auditTestApp(method, path string, handler fiber.Handler) *fiber.App {
	app := fiber.New()
	st := store.New(nil)
	ac := audit.NewController()

	app.Add(method, path, func(c *fiber.Ctx) error {
		c.Locals("store", st)
		c.Locals("audit", ac)
		return handler(c)
	})
	return app
}

func TestRecordAudit_InvalidBody(t *testing.T) {
	app := auditTestApp(fiber.MethodPost, "/v1/jobs/:id/audits", recordAuditHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/j1/audits", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var out AuditResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if out.Success {
		t.Fatal("expected success=false")
	}
}

func TestReviewAudit_InvalidBody(t *testing.T) {
	app := auditTestApp(fiber.MethodPost, "/v1/jobs/:id/audits/:auditId/review", reviewAuditHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/j1/audits/a1/review", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmitCorrection_InvalidBody(t *testing.T) {
	app := auditTestApp(fiber.MethodPost, "/v1/jobs/:id/audits/:auditId/correction", submitCorrectionHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/j1/audits/a1/correction", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResolveAudit_InvalidBody(t *testing.T) {
	app := auditTestApp(fiber.MethodPost, "/v1/jobs/:id/audits/:auditId/resolve", resolveAuditHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/j1/audits/a1/resolve", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
