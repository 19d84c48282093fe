package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/ui/rest/middleware"
)

// fakeSchedulerService implements ISchedulerUsecase for handler tests,
// recording the arguments each call carried.
type fakeSchedulerService struct {
	lastEnsuredID string
	lastStatusID  string
	lastStatus    domainSchedule.ScheduledPostStatus
	due           []domainSchedule.ScheduledPost
}

func (f *fakeSchedulerService) EnsureNextOccurrence(ctx context.Context, scheduledPostID string) error {
	if scheduledPostID == "missing" {
		return pkgError.NotFoundError("scheduled post not found")
	}
	f.lastEnsuredID = scheduledPostID
	return nil
}

func (f *fakeSchedulerService) UpdateStatus(ctx context.Context, scheduledPostID string, status domainSchedule.ScheduledPostStatus) error {
	if scheduledPostID == "missing" {
		return pkgError.NotFoundError("scheduled post not found")
	}
	f.lastStatusID = scheduledPostID
	f.lastStatus = status
	return nil
}

func (f *fakeSchedulerService) PromoteDueRows(ctx context.Context) error { return nil }

func (f *fakeSchedulerService) ListDue(ctx context.Context, before time.Time) ([]domainSchedule.ScheduledPost, error) {
	return f.due, nil
}

func (f *fakeSchedulerService) StartLoop(ctx context.Context) {}

func newScheduleTestApp(service domainSchedule.ISchedulerUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestSchedule(app, service)
	return app
}

func TestScheduleEnsureNext_E2E(t *testing.T) {
	service := &fakeSchedulerService{}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/schedules/sp-7/ensure-next", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(b))
	}
	if service.lastEnsuredID != "sp-7" {
		t.Fatalf("expected sp-7 to reach the service, got %q", service.lastEnsuredID)
	}
}

func TestScheduleEnsureNext_NotFoundMapsTo404(t *testing.T) {
	app := newScheduleTestApp(&fakeSchedulerService{})

	req := httptest.NewRequest(http.MethodPost, "/schedules/missing/ensure-next", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestScheduleUpdateStatus_E2E(t *testing.T) {
	service := &fakeSchedulerService{}
	app := newScheduleTestApp(service)

	body := []byte(`{"status":"processing"}`)
	req := httptest.NewRequest(http.MethodPatch, "/schedules/sp-7/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d body=%s", resp.StatusCode, string(b))
	}
	if service.lastStatusID != "sp-7" || service.lastStatus != domainSchedule.ScheduledPostStatusProcessing {
		t.Fatalf("expected sp-7/processing to reach the service, got %q/%q", service.lastStatusID, service.lastStatus)
	}
}

func TestScheduleListDue_E2E(t *testing.T) {
	service := &fakeSchedulerService{
		due: []domainSchedule.ScheduledPost{{ID: "sp-due", Status: domainSchedule.ScheduledPostStatusScheduled}},
	}
	app := newScheduleTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/schedules/due", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var envelope struct {
		Code    string                          `json:"code"`
		Results []domainSchedule.ScheduledPost `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Code != "SUCCESS" {
		t.Fatalf("expected code SUCCESS, got %q", envelope.Code)
	}
	if len(envelope.Results) != 1 || envelope.Results[0].ID != "sp-due" {
		t.Fatalf("expected the due row in results, got %+v", envelope.Results)
	}
}

func TestScheduleListDue_RejectsMalformedBefore(t *testing.T) {
	app := newScheduleTestApp(&fakeSchedulerService{})

	req := httptest.NewRequest(http.MethodGet, "/schedules/due?before=yesterday", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed before, got %d", resp.StatusCode)
	}

	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Code != "BAD_REQUEST" {
		t.Fatalf("expected code BAD_REQUEST, got %q", envelope.Code)
	}
}
