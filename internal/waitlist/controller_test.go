package waitlist

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// stubService records which operation the controller dispatched to.
type stubService struct {
	Service
	joined   bool
	left     bool
	notified bool
}

func (s *stubService) Join(ctx context.Context, userID uuid.UUID, req JoinWaitlistRequest) (*JoinWaitlistResult, error) {
	s.joined = true
	return &JoinWaitlistResult{
		Entry: &WaitlistEntry{
			ID:       uuid.New(),
			EventID:  req.EventID,
			TierID:   req.TierID,
			UserID:   userID,
			Quantity: req.Quantity,
			Priority: req.Priority,
			Status:   StatusWaiting,
		},
		Position: 1,
	}, nil
}

func (s *stubService) Leave(ctx context.Context, userID, eventID uuid.UUID, tierID *uuid.UUID) (bool, error) {
	s.left = true
	return true, nil
}

func (s *stubService) NotifyAvailable(ctx context.Context, callerID uuid.UUID, role string, eventID, tierID uuid.UUID, quantity int) (int, error) {
	s.notified = true
	return 1, nil
}

func setupActionRouter(t *testing.T, svc Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("priority", PriorityValidator)
	}

	engine := gin.New()
	// Stand-in for JWTAuth: inject the verified subject directly.
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New().String())
		c.Set(middleware.ContextUserRole, middleware.RoleUser)
	})
	engine.POST("/waitlist", NewController(svc).HandleAction)
	return engine
}

func postAction(t *testing.T, engine *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/waitlist", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHandleActionDispatch(t *testing.T) {
	eventID := uuid.New().String()
	tierID := uuid.New().String()

	cases := []struct {
		action     string
		body       map[string]interface{}
		wantStatus int
		dispatched func(*stubService) bool
	}{
		{
			action: ActionJoin,
			body: map[string]interface{}{
				"action": "join", "event_id": eventID, "tier_id": tierID,
				"quantity": 2, "priority": "HIGH",
			},
			wantStatus: http.StatusCreated,
			dispatched: func(s *stubService) bool { return s.joined },
		},
		{
			action:     ActionLeave,
			body:       map[string]interface{}{"action": "leave", "event_id": eventID, "tier_id": tierID},
			wantStatus: http.StatusOK,
			dispatched: func(s *stubService) bool { return s.left },
		},
		{
			action: ActionNotifyAvailable,
			body: map[string]interface{}{
				"action": "notify_available", "event_id": eventID, "tier_id": tierID, "quantity": 3,
			},
			wantStatus: http.StatusOK,
			dispatched: func(s *stubService) bool { return s.notified },
		},
	}

	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			stub := &stubService{}
			engine := setupActionRouter(t, stub)

			rec := postAction(t, engine, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d (body: %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if !tc.dispatched(stub) {
				t.Fatalf("action %q did not reach its service method", tc.action)
			}
		})
	}
}

func TestHandleActionRejectsUnknownAction(t *testing.T) {
	stub := &stubService{}
	engine := setupActionRouter(t, stub)

	rec := postAction(t, engine, map[string]interface{}{
		"action": "promote", "event_id": uuid.New().String(),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action must fail binding, got %d", rec.Code)
	}
	if stub.joined || stub.left || stub.notified {
		t.Fatal("no service method may run for an unknown action")
	}
}

func TestHandleActionRejectsInvalidPriority(t *testing.T) {
	stub := &stubService{}
	engine := setupActionRouter(t, stub)

	rec := postAction(t, engine, map[string]interface{}{
		"action": "join", "event_id": uuid.New().String(), "quantity": 1, "priority": "URGENT",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown priority band must fail binding, got %d", rec.Code)
	}
	if stub.joined {
		t.Fatal("join must not run with an invalid priority")
	}
}

func TestNotifyAvailableRequiresTier(t *testing.T) {
	stub := &stubService{}
	engine := setupActionRouter(t, stub)

	rec := postAction(t, engine, map[string]interface{}{
		"action": "notify_available", "event_id": uuid.New().String(), "quantity": 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("notify_available without tier_id must conflict, got %d", rec.Code)
	}
	if stub.notified {
		t.Fatal("notify must not run without a tier")
	}
}
