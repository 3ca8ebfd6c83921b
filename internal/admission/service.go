package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"widget-gateway/internal/audit"
	"widget-gateway/internal/domains"
	"widget-gateway/internal/ledger"
	"widget-gateway/internal/slots"
	"widget-gateway/internal/widgets"
	"widget-gateway/pkg/logger"
)

var ErrInvalidRequest = errors.New("admission: invalid request")

// Request is one inbound widget call-admission request.
type Request struct {
	WidgetID   string
	Origin     string
	AccessCode string

	// ClientIP is forensic only; it participates in audit, not in checks.
	ClientIP string
}

// Result is either a denial with a reason or an admitted slot handle for
// the caller to finalize or release.
type Result struct {
	Admitted bool
	Reason   DenialReason

	// SlotID identifies the reserved placeholder when admitted.
	SlotID string

	// Widget is the loaded config, returned so callers can reach the
	// provider with its credentials without a second lookup.
	Widget widgets.Widget
}

// ReservationGuard serializes the count-then-insert sequence per widget.
// Implementations are best-effort: a failed or unavailable guard must not
// block admission, it only widens the documented race window.
type ReservationGuard interface {
	// Acquire returns a release func and whether the guard was held.
	Acquire(ctx context.Context, widgetID string) (release func(), acquired bool)
}

// Controller evaluates admission for inbound widget requests.
//
// Check order is fixed: widget lookup, domain, access code, rate limit,
// daily budget, then slot reservation. Each failing check short-circuits
// with its own reason. The reservation is itself a ledger write counted by
// the rate-limit read of subsequent callers; writing it before any external
// network call is what keeps a concurrent burst from all passing the count.
//
// The count-then-insert sequence is not transactional. Two racing requests
// can both read below threshold and both insert; enforcement is an
// approximate upper bound by contract, and the optional guard only narrows
// the window.
type Controller struct {
	Widgets widgets.Store
	Ledger  ledger.Repository
	Slots   *slots.Manager
	Matcher domains.Matcher

	// Audit is optional; denial logging is best-effort.
	Audit *audit.Service

	// Guard is optional; see ReservationGuard.
	Guard ReservationGuard

	// DefaultRateLimit applies when a widget has no threshold override.
	DefaultRateLimit int
	RateWindow       time.Duration

	FailPolicy FailPolicy

	clock func() time.Time
}

func NewController(store widgets.Store, repo ledger.Repository, mgr *slots.Manager, matcher domains.Matcher) *Controller {
	return &Controller{
		Widgets:          store,
		Ledger:           repo,
		Slots:            mgr,
		Matcher:          matcher,
		DefaultRateLimit: 10,
		RateWindow:       time.Hour,
		FailPolicy:       FailOpen,
		clock:            time.Now,
	}
}

// Admit runs the admission sequence. A denial is a successful evaluation;
// an error means infrastructure failed in a way no policy covers (widget
// lookup, slot reservation) and the caller should fail the request.
func (c *Controller) Admit(ctx context.Context, req Request) (Result, error) {
	if req.WidgetID == "" {
		return Result{}, ErrInvalidRequest
	}

	w, err := c.Widgets.GetByID(ctx, req.WidgetID)
	if err != nil {
		if errors.Is(err, widgets.ErrNotFound) {
			return c.deny(ctx, req, widgets.Widget{}, DenyWidgetUnknown), nil
		}
		return Result{}, fmt.Errorf("admission: widget lookup: %w", err)
	}

	checks := ChecksFor(w.CallType)

	if hasCheck(checks, CheckDomain) {
		if !c.Matcher.Authorized(req.Origin, w.AllowedDomains) {
			return c.deny(ctx, req, w, DenyDomainUnauthorized), nil
		}
	}

	if hasCheck(checks, CheckAccessCode) && w.RequiresAccessCode() {
		if req.AccessCode != w.AccessCode {
			return c.deny(ctx, req, w, DenyAccessDenied), nil
		}
	}

	if c.Guard != nil {
		if release, ok := c.Guard.Acquire(ctx, w.ID); ok {
			defer release()
		}
	}

	now := c.clock().UTC()

	if hasCheck(checks, CheckRateLimit) {
		if res, denied := c.checkRateLimit(ctx, req, w, now); denied {
			return res, nil
		}
	}

	if hasCheck(checks, CheckDailyBudget) && w.DailyMinutesEnabled {
		if res, denied := c.checkDailyBudget(ctx, req, w, now); denied {
			return res, nil
		}
	}

	slotID, err := c.Slots.Reserve(ctx, w.ID, w.AccountID, w.CallType)
	if err != nil {
		return Result{}, fmt.Errorf("admission: slot reservation: %w", err)
	}

	return Result{Admitted: true, SlotID: slotID, Widget: w}, nil
}

func (c *Controller) checkRateLimit(ctx context.Context, req Request, w widgets.Widget, now time.Time) (Result, bool) {
	threshold := w.RateLimitPerWindow
	if threshold <= 0 {
		threshold = c.DefaultRateLimit
	}

	count, err := c.Ledger.CountSince(ctx, w.ID, now.Add(-c.RateWindow))
	if err != nil {
		logger.ForWidget(ctx, w.ID).Error("rate limit count failed", "policy", c.FailPolicy, "err", err)
		if c.FailPolicy == FailClosed {
			return c.deny(ctx, req, w, DenyRateLimited), true
		}
		return Result{}, false
	}
	if count >= threshold {
		return c.deny(ctx, req, w, DenyRateLimited), true
	}
	return Result{}, false
}

func (c *Controller) checkDailyBudget(ctx context.Context, req Request, w widgets.Widget, now time.Time) (Result, bool) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	seconds, err := c.Ledger.SumCompletedDurationSince(ctx, w.ID, dayStart)
	if err != nil {
		logger.ForWidget(ctx, w.ID).Error("budget sum failed", "policy", c.FailPolicy, "err", err)
		if c.FailPolicy == FailClosed {
			return c.deny(ctx, req, w, DenyBudgetExceeded), true
		}
		return Result{}, false
	}
	if seconds/60 >= w.DailyMinutesLimit {
		return c.deny(ctx, req, w, DenyBudgetExceeded), true
	}
	return Result{}, false
}

func (c *Controller) deny(ctx context.Context, req Request, w widgets.Widget, reason DenialReason) Result {
	if c.Audit != nil {
		if err := c.Audit.LogAdmissionDenied(ctx, req.WidgetID, w.AccountID, string(reason), req.Origin, req.ClientIP); err != nil {
			logger.ForWidget(ctx, req.WidgetID).Warn("denial audit failed", "err", err)
		}
	}
	return Result{Admitted: false, Reason: reason, Widget: w}
}
