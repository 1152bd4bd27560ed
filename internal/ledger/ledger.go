// Package ledger anchors credential digests on an external distributed
// ledger. The ledger is used purely as a tamper-evident timestamping
// service: we submit a content hash, keep the returned transaction
// reference, and never interpret its internal structure.
package ledger

import (
	"context"
	"time"

	id "credence/pkg/domain"
)

// Submission carries the digest and minimal identifying metadata anchored
// for one credential. Submitted at most once per credential by issuance.
type Submission struct {
	CredentialID  id.CredentialID
	Digest        string
	CertificateNo string
	Institution   string
}

// TransactionDetails is the read-only receipt for an anchored digest, used
// by auditing UIs. Fetching it never mutates credential state.
type TransactionDetails struct {
	Reference   string    `json:"reference"`
	Digest      string    `json:"digest"`
	AnchoredAt  time.Time `json:"anchored_at"`
	Confirmed   bool      `json:"confirmed"`
	ExplorerURL string    `json:"explorer_url,omitempty"`
}

// Client talks to the external anchoring service.
type Client interface {
	// Submit anchors the digest and returns the ledger transaction
	// reference. Internally synchronous: it waits for the ledger to
	// confirm before returning.
	Submit(ctx context.Context, sub Submission) (string, error)

	// FetchReceipt looks up an anchored transaction by reference.
	// Returns sentinel.ErrNotFound if the ledger has no such reference.
	FetchReceipt(ctx context.Context, reference string) (*TransactionDetails, error)
}
