package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/controlgap/internal/model"
)

type stubService struct {
	coverage    model.CoverageResult
	err         error
	gotTitle    string
	gotSelected []string
}

func (s *stubService) ComputeCoverage(ctx context.Context, id string) (model.CoverageResult, error) {
	if s.err != nil {
		return model.CoverageResult{}, s.err
	}
	r := s.coverage
	r.ControlID = id
	return r, nil
}

func (s *stubService) ComputeFamilyCoverage(ctx context.Context, family string) (model.FamilySummary, error) {
	if s.err != nil {
		return model.FamilySummary{}, s.err
	}
	return model.FamilySummary{Family: family, ControlCount: 2, AverageCoverage: 75}, nil
}

func (s *stubService) ComputeOrganizationSummary(ctx context.Context) (model.OrganizationSummary, error) {
	return model.OrganizationSummary{TotalControls: 3, CompliantControls: 2}, s.err
}

func (s *stubService) ComputeComplianceScore(ctx context.Context) (model.ComplianceScoreResult, error) {
	return model.ComplianceScoreResult{MaxScore: 13, CurrentScore: 10, ScoreLabel: "warn"}, s.err
}

func (s *stubService) ExtractGaps(ctx context.Context, id string) (model.GapSet, error) {
	return model.GapSet{ControlID: id, Priority: model.PriorityHigh}, s.err
}

func (s *stubService) GenerateGapDescription(ctx context.Context, id, title string, selected []string) (string, error) {
	s.gotTitle, s.gotSelected = title, selected
	return "Control " + id + ": identified gaps", s.err
}

func (s *stubService) DraftRemediation(ctx context.Context, id, title string, selected []string) (model.RemediationDraft, error) {
	s.gotTitle, s.gotSelected = title, selected
	return model.RemediationDraft{ID: "d1", ControlID: id, Title: title, GapItemIDs: selected}, s.err
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(svc, model.ServerConfig{})
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestGetCoverage(t *testing.T) {
	svc := &stubService{coverage: model.CoverageResult{Technical: 50, Overall: 58.333333}}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/controls/03.01.01/coverage", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp CoverageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ControlID != "03.01.01" {
		t.Errorf("expected control 03.01.01, got %s", resp.ControlID)
	}
	if resp.Rounded.Overall != 58 {
		t.Errorf("expected rounded overall 58, got %d", resp.Rounded.Overall)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", model.NotFoundf("control 99"), http.StatusNotFound},
		{"wrapped not found", &model.ControlError{ControlID: "99", Err: model.NotFoundf("control 99")}, http.StatusNotFound},
		{"invalid input", model.InvalidInputf("threshold is NaN"), http.StatusBadRequest},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&stubService{err: tt.err}), http.MethodGet, "/api/v1/controls/99/coverage", "")
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, w.Code)
			}
			if tt.code == http.StatusInternalServerError && strings.Contains(w.Body.String(), "disk on fire") {
				t.Error("expected internal error details to stay out of the response")
			}
		})
	}
}

func TestGetFamilyCoverage(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodGet, "/api/v1/families/AC/coverage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var summary model.FamilySummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.Family != "AC" || summary.ControlCount != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestSummaryAndScore(t *testing.T) {
	router := newRouter(&stubService{})

	if w := do(router, http.MethodGet, "/api/v1/summary", ""); w.Code != http.StatusOK {
		t.Errorf("summary: expected 200, got %d", w.Code)
	}

	w := do(router, http.MethodGet, "/api/v1/score", "")
	if w.Code != http.StatusOK {
		t.Fatalf("score: expected 200, got %d", w.Code)
	}
	var score model.ComplianceScoreResult
	if err := json.Unmarshal(w.Body.Bytes(), &score); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if score.CurrentScore != 10 || score.ScoreLabel != "warn" {
		t.Errorf("unexpected score: %+v", score)
	}
}

func TestDescribeGaps(t *testing.T) {
	svc := &stubService{}
	w := do(newRouter(svc), http.MethodPost, "/api/v1/controls/03.01.01/gap-description",
		`{"title":"Accounts","selected_ids":["policy:p1","setting:s2"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.gotTitle != "Accounts" || len(svc.gotSelected) != 2 {
		t.Errorf("expected selection to reach the service, got %q %v", svc.gotTitle, svc.gotSelected)
	}
	if !strings.Contains(w.Body.String(), "identified gaps") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDescribeGaps_BadBody(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodPost, "/api/v1/controls/03.01.01/gap-description", `{"selected_ids":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateRemediationDraft(t *testing.T) {
	w := do(newRouter(&stubService{}), http.MethodPost, "/api/v1/controls/03.01.01/remediation-drafts",
		`{"selected_ids":["policy:p1"]}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var draft model.RemediationDraft
	if err := json.Unmarshal(w.Body.Bytes(), &draft); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if draft.ControlID != "03.01.01" || len(draft.GapItemIDs) != 1 {
		t.Errorf("unexpected draft: %+v", draft)
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(&stubService{}, model.ServerConfig{RequestsPerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		if w := do(router, http.MethodGet, "/api/v1/summary", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := do(router, http.MethodGet, "/api/v1/summary", "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Burst") != "2" {
		t.Errorf("expected burst header, got %q", w.Header().Get("X-RateLimit-Burst"))
	}

	if w := do(router, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("expected health check outside the limiter, got %d", w.Code)
	}
}
