package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"widget-gateway/internal/admission"
	"widget-gateway/internal/domains"
	"widget-gateway/internal/ledger"
	"widget-gateway/internal/provider"
	"widget-gateway/internal/reconciler"
	"widget-gateway/internal/slots"
	"widget-gateway/internal/widgets"

	"github.com/gin-gonic/gin"
)

type fakeCallProvider struct {
	createResult provider.CreateCallResult
	createErr    error
	lastCreate   provider.CreateCallRequest

	states map[string]provider.CallState
}

func (f *fakeCallProvider) CreateCall(ctx context.Context, req provider.CreateCallRequest) (provider.CreateCallResult, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return provider.CreateCallResult{}, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeCallProvider) FetchCall(ctx context.Context, apiKey, callID string) (provider.CallState, error) {
	return f.states[callID], nil
}

type testEnv struct {
	router   *gin.Engine
	store    *widgets.MemoryStore
	repo     *ledger.MemoryRepo
	provider *fakeCallProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := widgets.NewMemoryStore()
	repo := ledger.NewMemoryRepo()
	mgr := slots.NewManager(repo)
	p := &fakeCallProvider{
		createResult: provider.CreateCallResult{CallID: "call_ext_1"},
		states:       map[string]provider.CallState{},
	}

	ctrl := admission.NewController(store, repo, mgr, domains.Matcher{})
	rec := reconciler.New(repo, store, p, nil)

	h := Handlers{
		Admission:  ctrl,
		Slots:      mgr,
		Widgets:    store,
		Provider:   p,
		Reconciler: rec,
	}

	r := gin.New()
	r.POST("/v1/calls/admit", h.AdmitCall)
	r.POST("/v1/calls/register", h.RegisterCall)
	r.POST("/v1/calls/:slot_id/finalize", h.FinalizeSlot)
	r.POST("/v1/calls/:slot_id/release", h.ReleaseSlot)
	r.POST("/v1/ops/reconcile", h.RunReconcile)
	r.POST("/v1/ops/widgets", h.CreateWidget)
	r.GET("/v1/ops/widgets/:widget_id", h.GetWidget)
	r.PUT("/v1/ops/widgets/:widget_id", h.UpdateWidget)

	env := &testEnv{router: r, store: store, repo: repo, provider: p}
	env.seedWidget(t)
	return env
}

func (e *testEnv) seedWidget(t *testing.T) {
	t.Helper()
	err := e.store.Create(context.Background(), widgets.Widget{
		ID:              "wgt_1",
		AccountID:       "acc_1",
		Name:            "support bubble",
		AllowedDomains:  "example.com",
		CallType:        widgets.CallTypeWeb,
		ProviderAPIKey:  "pk_test",
		ProviderAgentID: "agent_1",
	})
	if err != nil {
		t.Fatalf("seed widget: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, origin, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v: %s", err, w.Body.String())
	}
	return out
}

func TestAdmitCall_OK(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/admit", "https://example.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["admitted"] != true || body["slot_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["agent_id"] != "agent_1" {
		t.Fatalf("expected agent id for the client SDK, got %v", body)
	}
}

func TestAdmitCall_DomainDenied(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/admit", "https://evil.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if decode(t, w)["reason"] != "domain_unauthorized" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestAdmitCall_UnknownWidgetIs404(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/admit", "https://example.com", `{"widget_id":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAdmitCall_RateLimitedIs429(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 10; i++ {
		env.do(t, http.MethodPost, "/v1/calls/admit", "https://example.com", `{"widget_id":"wgt_1"}`)
	}
	w := env.do(t, http.MethodPost, "/v1/calls/admit", "https://example.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdmitCall_RefererFallback(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/calls/admit", strings.NewReader(`{"widget_id":"wgt_1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://example.com/pricing")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 via referer, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterCall_CreatesAndAttaches(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/register", "https://example.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["call_id"] != "call_ext_1" {
		t.Fatalf("expected provider call id, got %v", body)
	}
	if env.provider.lastCreate.APIKey != "pk_test" || env.provider.lastCreate.AgentID != "agent_1" {
		t.Fatalf("expected widget credentials passed through, got %+v", env.provider.lastCreate)
	}

	attempts := env.repo.All()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].ExternalCallID == nil || *attempts[0].ExternalCallID != "call_ext_1" {
		t.Fatalf("expected external call id attached, got %+v", attempts[0])
	}
}

func TestRegisterCall_ProviderFailureReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.provider.createErr = errors.New("connection refused")

	w := env.do(t, http.MethodPost, "/v1/calls/register", "https://example.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if n := len(env.repo.All()); n != 0 {
		t.Fatalf("expected released slot, found %d attempts", n)
	}
}

func TestRegisterCall_ProviderRejectionIs502(t *testing.T) {
	env := newTestEnv(t)
	env.provider.createErr = &provider.APIError{StatusCode: 422, Message: "bad agent"}

	w := env.do(t, http.MethodPost, "/v1/calls/register", "https://example.com", `{"widget_id":"wgt_1"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestFinalizeAndReleaseSlot(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/admit", "https://example.com", `{"widget_id":"wgt_1"}`)
	slotID := decode(t, w)["slot_id"].(string)

	w = env.do(t, http.MethodPost, "/v1/calls/"+slotID+"/finalize", "", `{"external_call_id":"call_sdk_9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("finalize: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	a, err := env.repo.GetByID(context.Background(), slotID)
	if err != nil || a.ExternalCallID == nil || *a.ExternalCallID != "call_sdk_9" {
		t.Fatalf("expected attached attempt, got %+v err=%v", a, err)
	}

	w = env.do(t, http.MethodPost, "/v1/calls/"+slotID+"/release", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("release: expected 200, got %d", w.Code)
	}
	if _, err := env.repo.GetByID(context.Background(), slotID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected slot gone, got %v", err)
	}
}

func TestFinalizeSlot_UnknownIs404(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls/does-not-exist/finalize", "", `{"external_call_id":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRunReconcile_ReturnsSummary(t *testing.T) {
	env := newTestEnv(t)

	// One stale attached attempt for the reconciler to sync.
	ext := "call_done"
	_ = env.repo.Insert(context.Background(), ledger.CallAttempt{
		ID: "a1", WidgetID: "wgt_1", AccountID: "acc_1", CallType: "web",
		StartedAt: time.Now().UTC().Add(-30 * time.Minute),
		ExternalCallID: &ext, Status: ledger.CallStatusOngoing,
	})
	env.provider.states["call_done"] = provider.CallState{Status: provider.StatusEnded, DurationMS: 60000}

	w := env.do(t, http.MethodPost, "/v1/ops/reconcile", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["checked"] != float64(1) || body["synced"] != float64(1) {
		t.Fatalf("unexpected summary: %v", body)
	}
}

func TestWidgetAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/ops/widgets", "", `{
		"id":"wgt_2","account_id":"acc_1","call_type":"web",
		"allowed_domains":"shop.example.com","provider_api_key":"pk_2","access_code":"hush"
	}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/v1/ops/widgets/wgt_2", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "pk_2") || strings.Contains(w.Body.String(), "hush") {
		t.Fatalf("secrets leaked in widget response: %s", w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/v1/ops/widgets/wgt_2", "", `{
		"account_id":"acc_1","call_type":"web","allowed_domains":"*.example.com"
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/v1/ops/widgets/missing", "", `{"account_id":"acc_1","call_type":"web"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("update missing: expected 404, got %d", w.Code)
	}
}
