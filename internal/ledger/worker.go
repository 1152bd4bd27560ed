package ledger

import (
	"context"
	"log/slog"
	"time"

	"credence/internal/credential/models"
	"credence/internal/platform/metrics"
	id "credence/pkg/domain"
)

// AnchorResultWriter is the slice of the credential store the worker needs:
// the single terminal writeback PENDING→CONFIRMED or PENDING→FAILED.
type AnchorResultWriter interface {
	UpdateAnchorResult(ctx context.Context, credentialID id.CredentialID,
		status models.AnchorStatus, ledgerRef string, now time.Time) error
}

// Worker consumes anchor submissions from a bounded inbox and drives each to
// a terminal anchor status. Issuance enqueues and returns immediately;
// anchoring failures are recorded on the credential and logged, never
// surfaced to the issuance caller, and never retried automatically.
type Worker struct {
	client  Client
	store   AnchorResultWriter
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan Submission
	timeout time.Duration
}

func NewWorker(client Client, store AnchorResultWriter, logger *slog.Logger, m *metrics.Metrics, queueSize int, timeout time.Duration) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		client:  client,
		store:   store,
		logger:  logger,
		metrics: m,
		inbox:   make(chan Submission, queueSize),
		timeout: timeout,
	}
}

// Enqueue hands a submission to the worker without blocking the caller.
// Returns false when the inbox is full; the caller must then record the
// FAILED status itself so the partial failure stays visible.
func (w *Worker) Enqueue(sub Submission) bool {
	select {
	case w.inbox <- sub:
		w.metrics.SetAnchorQueueDepth(len(w.inbox))
		return true
	default:
		return false
	}
}

// Run processes submissions until the context is cancelled. In-flight
// submissions run to completion or timeout; there is no cancellation of an
// anchor already sent to the ledger.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub := <-w.inbox:
			w.metrics.SetAnchorQueueDepth(len(w.inbox))
			w.process(ctx, sub)
		}
	}
}

func (w *Worker) process(ctx context.Context, sub Submission) {
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	reference, err := w.client.Submit(submitCtx, sub)
	if err != nil {
		w.logger.Error("ledger anchoring failed",
			"credential_id", sub.CredentialID.String(),
			"certificate_no", sub.CertificateNo,
			"error", err,
		)
		w.writeResult(submitCtx, sub, models.AnchorFailed, "")
		return
	}

	w.logger.Info("ledger anchoring confirmed",
		"credential_id", sub.CredentialID.String(),
		"ledger_reference", reference,
	)
	w.writeResult(submitCtx, sub, models.AnchorConfirmed, reference)
}

func (w *Worker) writeResult(ctx context.Context, sub Submission, status models.AnchorStatus, reference string) {
	if err := w.store.UpdateAnchorResult(ctx, sub.CredentialID, status, reference, time.Now()); err != nil {
		// The credential keeps anchor_status=PENDING for an operator to
		// reconcile; nothing else can be done from here.
		w.logger.Error("failed to record anchor outcome",
			"credential_id", sub.CredentialID.String(),
			"status", string(status),
			"error", err,
		)
		return
	}
	w.metrics.ObserveAnchorOutcome(string(status))
}
