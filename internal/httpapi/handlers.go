package httpapi

import (
	"errors"
	"net/http"

	"widget-gateway/internal/admission"
	"widget-gateway/internal/ledger"
	"widget-gateway/internal/provider"
	"widget-gateway/internal/reconciler"
	"widget-gateway/internal/slots"
	"widget-gateway/internal/widgets"
	"widget-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Admission  *admission.Controller
	Slots      *slots.Manager
	Widgets    widgets.Store
	Provider   provider.CallProvider
	Reconciler *reconciler.Service
}

// denialStatus maps admission denial reasons to HTTP status codes.
// Denials are expected outcomes; none of them map to 5xx.
var denialStatus = map[admission.DenialReason]int{
	admission.DenyWidgetUnknown:      http.StatusNotFound,
	admission.DenyDomainUnauthorized: http.StatusForbidden,
	admission.DenyAccessDenied:       http.StatusForbidden,
	admission.DenyRateLimited:        http.StatusTooManyRequests,
	admission.DenyBudgetExceeded:     http.StatusTooManyRequests,
}

// originOf resolves the embedding page origin. Browsers send Origin on
// cross-site fetches; Referer is the fallback for the rest.
func originOf(c *gin.Context) string {
	if o := c.GetHeader("Origin"); o != "" {
		return o
	}
	return c.GetHeader("Referer")
}

// --- Call admission ---

type admitRequest struct {
	WidgetID   string `json:"widget_id"`
	AccessCode string `json:"access_code,omitempty"`
}

type registerRequest struct {
	WidgetID    string `json:"widget_id"`
	AccessCode  string `json:"access_code,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

// AdmitCall runs the admission checks and reserves a slot, leaving call
// creation to the client (widget SDKs that talk to the provider directly).
func (h Handlers) AdmitCall(c *gin.Context) {
	var req admitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.WidgetID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "widget_id required"})
		return
	}

	res, err := h.Admission.Admit(c.Request.Context(), admission.Request{
		WidgetID:   req.WidgetID,
		Origin:     originOf(c),
		AccessCode: req.AccessCode,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		logger.From(c.Request.Context()).Error("admission failed", "widget_id", req.WidgetID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admission failed"})
		return
	}
	if !res.Admitted {
		c.JSON(denialStatus[res.Reason], gin.H{"admitted": false, "reason": res.Reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admitted": true,
		"slot_id":  res.SlotID,
		"agent_id": res.Widget.ProviderAgentID,
	})
}

// RegisterCall is the full server-side flow: admit, create the provider
// call, attach its ID to the slot. A provider failure releases the slot so
// it stops counting against the widget's rate limit.
func (h Handlers) RegisterCall(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.WidgetID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "widget_id required"})
		return
	}

	ctx := c.Request.Context()
	log := logger.ForWidget(ctx, req.WidgetID)

	res, err := h.Admission.Admit(ctx, admission.Request{
		WidgetID:   req.WidgetID,
		Origin:     originOf(c),
		AccessCode: req.AccessCode,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		log.Error("admission failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admission failed"})
		return
	}
	if !res.Admitted {
		c.JSON(denialStatus[res.Reason], gin.H{"admitted": false, "reason": res.Reason})
		return
	}

	created, err := h.Provider.CreateCall(ctx, provider.CreateCallRequest{
		APIKey:      res.Widget.ProviderAPIKey,
		AgentID:     res.Widget.ProviderAgentID,
		CallType:    string(res.Widget.CallType),
		PhoneNumber: req.PhoneNumber,
		Metadata:    req.Metadata,
	})
	if err != nil {
		if relErr := h.Slots.Release(ctx, res.SlotID); relErr != nil {
			log.Warn("slot release failed", "slot_id", res.SlotID, "err", relErr)
		}
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			log.Warn("provider rejected call", "status", apiErr.StatusCode, "msg", apiErr.Message)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "provider rejected call"})
			return
		}
		log.Error("provider call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "provider unavailable"})
		return
	}

	// The call exists at the provider now; a bookkeeping failure must not
	// fail the request. The reconciler's orphan sweep covers the leak.
	if err := h.Slots.Attach(ctx, res.SlotID, created.CallID); err != nil {
		log.Warn("slot attach failed", "slot_id", res.SlotID, "call_id", created.CallID, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"admitted": true,
		"slot_id":  res.SlotID,
		"call_id":  created.CallID,
	})
}

// --- Slot lifecycle ---

type finalizeRequest struct {
	ExternalCallID string `json:"external_call_id"`
}

// FinalizeSlot attaches an externally created provider call ID to a slot
// reserved via AdmitCall.
func (h Handlers) FinalizeSlot(c *gin.Context) {
	slotID := c.Param("slot_id")
	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ExternalCallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "external_call_id required"})
		return
	}

	if err := h.Slots.Attach(c.Request.Context(), slotID, req.ExternalCallID); err != nil {
		abortSlotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot_id": slotID, "status": "attached"})
}

// ReleaseSlot deletes a reserved slot whose call never got created.
func (h Handlers) ReleaseSlot(c *gin.Context) {
	slotID := c.Param("slot_id")
	if err := h.Slots.Release(c.Request.Context(), slotID); err != nil {
		abortSlotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot_id": slotID, "status": "released"})
}

func abortSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "slot not found"})
	case errors.Is(err, slots.ErrInvalidArgument), errors.Is(err, ledger.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid slot request"})
	default:
		logger.From(c.Request.Context()).Error("slot operation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "slot operation failed"})
	}
}

// --- Ops ---

// RunReconcile triggers one reconciliation pass and returns its summary.
func (h Handlers) RunReconcile(c *gin.Context) {
	sum, err := h.Reconciler.Run(c.Request.Context())
	if err != nil {
		logger.From(c.Request.Context()).Error("reconcile failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// widgetRequest is the ops-facing widget payload. It exists because the
// Widget entity hides its secrets from JSON; writes need them inbound.
type widgetRequest struct {
	ID                  string `json:"id"`
	AccountID           string `json:"account_id"`
	Name                string `json:"name"`
	AllowedDomains      string `json:"allowed_domains"`
	CallType            string `json:"call_type"`
	RateLimitPerWindow  int    `json:"rate_limit_per_window"`
	DailyMinutesEnabled bool   `json:"daily_minutes_enabled"`
	DailyMinutesLimit   int    `json:"daily_minutes_limit"`
	AccessCode          string `json:"access_code,omitempty"`
	ProviderAPIKey      string `json:"provider_api_key,omitempty"`
	ProviderAgentID     string `json:"provider_agent_id"`
}

func (r widgetRequest) toWidget() widgets.Widget {
	return widgets.Widget{
		ID:                  r.ID,
		AccountID:           r.AccountID,
		Name:                r.Name,
		AllowedDomains:      r.AllowedDomains,
		CallType:            widgets.CallType(r.CallType),
		RateLimitPerWindow:  r.RateLimitPerWindow,
		DailyMinutesEnabled: r.DailyMinutesEnabled,
		DailyMinutesLimit:   r.DailyMinutesLimit,
		AccessCode:          r.AccessCode,
		ProviderAPIKey:      r.ProviderAPIKey,
		ProviderAgentID:     r.ProviderAgentID,
	}
}

func (h Handlers) CreateWidget(c *gin.Context) {
	var req widgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := h.Widgets.Create(c.Request.Context(), req.toWidget()); err != nil {
		abortWidgetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "status": "created"})
}

func (h Handlers) GetWidget(c *gin.Context) {
	w, err := h.Widgets.GetByID(c.Request.Context(), c.Param("widget_id"))
	if err != nil {
		abortWidgetError(c, err)
		return
	}
	// Secrets stay out of the response via the entity's JSON tags.
	c.JSON(http.StatusOK, w)
}

func (h Handlers) UpdateWidget(c *gin.Context) {
	var req widgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.ID = c.Param("widget_id")

	if err := h.Widgets.Update(c.Request.Context(), req.toWidget()); err != nil {
		abortWidgetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ID, "status": "updated"})
}

func abortWidgetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, widgets.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "widget not found"})
	case errors.Is(err, widgets.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid widget"})
	default:
		logger.From(c.Request.Context()).Error("widget operation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "widget operation failed"})
	}
}
