package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"widget-gateway/internal/audit"
	"widget-gateway/internal/ledger"
	"widget-gateway/internal/provider"
	"widget-gateway/internal/widgets"
)

// Service backfills call durations from the provider and keeps the ledger
// bounded. One Run is a single pass:
//
//  1. Sync: fetch provider state for attempts that have an external call ID
//     but no duration yet, skipping attempts younger than GracePeriod so
//     in-flight calls are not hammered.
//  2. Orphan sweep: delete attempts that never got an external call ID and
//     are older than OrphanHorizon (process died between reserve and attach).
//  3. Retention: delete everything older than Retention, any status.
//
// A failing provider fetch for one attempt is counted and skipped; the pass
// continues. Only a failing ledger read aborts the pass.
type Service struct {
	Ledger   ledger.Repository
	Widgets  widgets.Store
	Provider provider.CallProvider

	// Audit is optional; run summaries are recorded best-effort.
	Audit *audit.Service

	BatchSize     int
	GracePeriod   time.Duration
	Retention     time.Duration
	OrphanHorizon time.Duration

	log   *slog.Logger
	clock func() time.Time
}

func New(repo ledger.Repository, store widgets.Store, p provider.CallProvider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		Ledger:        repo,
		Widgets:       store,
		Provider:      p,
		BatchSize:     100,
		GracePeriod:   5 * time.Minute,
		Retention:     7 * 24 * time.Hour,
		OrphanHorizon: 1 * time.Hour,
		log:           log,
		clock:         time.Now,
	}
}

// Summary is the outcome of one reconciliation pass.
type Summary struct {
	Checked        int   `json:"checked"`
	Synced         int   `json:"synced"`
	StillInFlight  int   `json:"still_in_flight"`
	Errors         int   `json:"errors"`
	OrphansRemoved int64 `json:"orphans_removed"`
	Pruned         int64 `json:"pruned"`
}

func (s Summary) String() string {
	return fmt.Sprintf("checked=%d synced=%d in_flight=%d errors=%d orphans=%d pruned=%d",
		s.Checked, s.Synced, s.StillInFlight, s.Errors, s.OrphansRemoved, s.Pruned)
}

// Run executes one pass. It is safe to call concurrently with admission
// traffic; every mutation it makes is idempotent against re-runs.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	now := s.clock().UTC()
	var sum Summary

	attempts, err := s.Ledger.ListUnsynced(ctx, now.Add(-s.GracePeriod), s.BatchSize)
	if err != nil {
		return sum, fmt.Errorf("reconciler: list unsynced: %w", err)
	}

	// Widgets repeat within a batch; fetch each config once.
	keys := map[string]string{}
	for _, a := range attempts {
		sum.Checked++
		switch out, err := s.syncAttempt(ctx, a, keys); {
		case err != nil:
			sum.Errors++
			s.log.Warn("reconcile sync failed", "attempt_id", a.ID, "widget_id", a.WidgetID, "err", err)
		case out == outcomeSynced:
			sum.Synced++
		default:
			sum.StillInFlight++
		}
	}

	removed, err := s.Ledger.DeleteOrphansBefore(ctx, now.Add(-s.OrphanHorizon))
	if err != nil {
		s.log.Error("orphan sweep failed", "err", err)
		sum.Errors++
	} else {
		sum.OrphansRemoved = removed
	}

	pruned, err := s.Ledger.DeleteStartedBefore(ctx, now.Add(-s.Retention))
	if err != nil {
		s.log.Error("retention prune failed", "err", err)
		sum.Errors++
	} else {
		sum.Pruned = pruned
	}

	if s.Audit != nil {
		if err := s.Audit.LogReconcileRun(ctx, sum.String()); err != nil {
			s.log.Warn("reconcile audit failed", "err", err)
		}
	}
	return sum, nil
}

type outcome int

const (
	outcomeInFlight outcome = iota
	outcomeSynced
)

func (s *Service) syncAttempt(ctx context.Context, a ledger.CallAttempt, keys map[string]string) (outcome, error) {
	if a.ExternalCallID == nil {
		return outcomeInFlight, errors.New("attempt has no external call id")
	}

	apiKey, ok := keys[a.WidgetID]
	if !ok {
		w, err := s.Widgets.GetByID(ctx, a.WidgetID)
		if err != nil {
			return outcomeInFlight, fmt.Errorf("widget lookup: %w", err)
		}
		apiKey = w.ProviderAPIKey
		keys[a.WidgetID] = apiKey
	}

	state, err := s.Provider.FetchCall(ctx, apiKey, *a.ExternalCallID)
	if err != nil {
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			// The provider no longer knows the call; close it out as an error
			// so it stops being re-fetched every pass.
			return outcomeSynced, s.Ledger.Finalize(ctx, a.ID, nil, ledger.CallStatusError)
		}
		return outcomeInFlight, fmt.Errorf("fetch call: %w", err)
	}

	switch state.Status {
	case provider.StatusEnded:
		d := state.DurationSeconds()
		return outcomeSynced, s.Ledger.Finalize(ctx, a.ID, &d, ledger.CallStatusEnded)
	case provider.StatusError:
		return outcomeSynced, s.Ledger.Finalize(ctx, a.ID, nil, ledger.CallStatusError)
	default:
		// Still in progress; leave it for a later pass.
		return outcomeInFlight, nil
	}
}

// RunLoop runs passes every interval until ctx is cancelled. Intended to be
// started in its own goroutine from main.
func (s *Service) RunLoop(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciler stopped")
			return
		case <-t.C:
			sum, err := s.Run(ctx)
			if err != nil {
				s.log.Error("reconcile pass failed", "err", err)
				continue
			}
			s.log.Info("reconcile pass done",
				"checked", sum.Checked,
				"synced", sum.Synced,
				"in_flight", sum.StillInFlight,
				"errors", sum.Errors,
				"orphans_removed", sum.OrphansRemoved,
				"pruned", sum.Pruned,
			)
		}
	}
}
