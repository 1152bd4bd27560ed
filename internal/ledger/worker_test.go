package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credence/internal/credential/models"
	id "credence/pkg/domain"
)

type fakeClient struct {
	mu        sync.Mutex
	reference string
	err       error
	calls     int
}

func (f *fakeClient) Submit(_ context.Context, _ Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reference, f.err
}

func (f *fakeClient) FetchReceipt(_ context.Context, _ string) (*TransactionDetails, error) {
	return nil, errors.New("not implemented")
}

type recordingWriter struct {
	mu      sync.Mutex
	results map[id.CredentialID]struct {
		status models.AnchorStatus
		ref    string
	}
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{results: make(map[id.CredentialID]struct {
		status models.AnchorStatus
		ref    string
	})}
}

func (r *recordingWriter) UpdateAnchorResult(_ context.Context, credentialID id.CredentialID,
	status models.AnchorStatus, ledgerRef string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[credentialID] = struct {
		status models.AnchorStatus
		ref    string
	}{status, ledgerRef}
	return nil
}

func (r *recordingWriter) get(credentialID id.CredentialID) (models.AnchorStatus, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[credentialID]
	return res.status, res.ref, ok
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestWorkerConfirmsSuccessfulAnchor(t *testing.T) {
	client := &fakeClient{reference: "tx-sig-abc"}
	writer := newRecordingWriter()
	worker := NewWorker(client, writer, testLogger(), nil, 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	sub := Submission{CredentialID: id.NewCredentialID(), Digest: "cafe", CertificateNo: "USL-2024-00001"}
	require.True(t, worker.Enqueue(sub))

	assert.Eventually(t, func() bool {
		status, ref, ok := writer.get(sub.CredentialID)
		return ok && status == models.AnchorConfirmed && ref == "tx-sig-abc"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerMarksFailedOnLedgerError(t *testing.T) {
	client := &fakeClient{err: errors.New("ledger unavailable")}
	writer := newRecordingWriter()
	worker := NewWorker(client, writer, testLogger(), nil, 8, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	sub := Submission{CredentialID: id.NewCredentialID(), Digest: "cafe"}
	require.True(t, worker.Enqueue(sub))

	assert.Eventually(t, func() bool {
		status, ref, ok := writer.get(sub.CredentialID)
		return ok && status == models.AnchorFailed && ref == ""
	}, 2*time.Second, 10*time.Millisecond)

	// Failure is terminal: the worker never retries on its own.
	time.Sleep(50 * time.Millisecond)
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.calls)
}

func TestWorkerEnqueueBounded(t *testing.T) {
	client := &fakeClient{reference: "tx"}
	writer := newRecordingWriter()
	// Queue of 2, worker not running: third enqueue must refuse rather
	// than block issuance.
	worker := NewWorker(client, writer, testLogger(), nil, 2, time.Second)

	assert.True(t, worker.Enqueue(Submission{CredentialID: id.NewCredentialID()}))
	assert.True(t, worker.Enqueue(Submission{CredentialID: id.NewCredentialID()}))
	assert.False(t, worker.Enqueue(Submission{CredentialID: id.NewCredentialID()}))
}
