package ledger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"credence/internal/platform/config"
	"credence/pkg/platform/sentinel"
)

// HTTPClient is the anchoring-service client. The service exposes a small
// REST API: POST /v1/anchors submits a digest and blocks until the ledger
// transaction confirms; GET /v1/anchors/{ref} returns the receipt.
type HTTPClient struct {
	http *resty.Client
}

func NewHTTPClient(cfg config.LedgerConfig) *HTTPClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.SubmitTimeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPClient{http: client}
}

type anchorRequest struct {
	Digest   string            `json:"digest"`
	Metadata map[string]string `json:"metadata"`
}

type anchorResponse struct {
	Reference string `json:"reference"`
}

func (c *HTTPClient) Submit(ctx context.Context, sub Submission) (string, error) {
	var result anchorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(anchorRequest{
			Digest: sub.Digest,
			Metadata: map[string]string{
				"credential_id":  sub.CredentialID.String(),
				"certificate_no": sub.CertificateNo,
				"institution":    sub.Institution,
			},
		}).
		SetResult(&result).
		Post("/v1/anchors")
	if err != nil {
		return "", fmt.Errorf("submit anchor: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("submit anchor: ledger returned %s", resp.Status())
	}
	if result.Reference == "" {
		return "", fmt.Errorf("submit anchor: ledger returned no transaction reference")
	}
	return result.Reference, nil
}

func (c *HTTPClient) FetchReceipt(ctx context.Context, reference string) (*TransactionDetails, error) {
	var details TransactionDetails
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&details).
		SetPathParam("ref", reference).
		Get("/v1/anchors/{ref}")
	if err != nil {
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, sentinel.ErrNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch receipt: ledger returned %s", resp.Status())
	}
	return &details, nil
}
