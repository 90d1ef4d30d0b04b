package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-billing/internal/usecase"
)

// PaymentReconciler periodically retries stale pending payments through
// PaymentUseCase.ReconcileStale. This covers cases where the gateway callback
// never arrived or the process crashed mid-confirm.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	recLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, interval: interval, staleAfter: staleAfter, log: &recLog}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payment reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-w.staleAfter)
			n, err := w.uc.ReconcileStale(ctx, cutoff, 200)
			if err != nil {
				w.log.Error().Err(err).Msg("payment reconciler error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("stale payments reconciled")
			}
		}
	}
}
