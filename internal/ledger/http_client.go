package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("residency/internal/ledger")

// HTTPClient calls the chain gateway service that fronts the residency
// contract. The gateway owns keys and gas; this client only speaks its
// JSON API.
type HTTPClient struct {
	endpoint string
	contract string
	client   *http.Client
}

// NewHTTPClient builds a chain client for the given gateway endpoint and
// contract address. Per-call deadlines come from the caller's context; the
// embedded client timeout is a backstop.
func NewHTTPClient(endpoint, contract string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		contract: contract,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type mintRequest struct {
	Contract string `json:"contract"`
	Wallet   string `json:"wallet"`
	Payload  string `json:"payload"`
}

type mintResponse struct {
	TokenID         string `json:"tokenId"`
	TransactionHash string `json:"transactionHash"`
	Error           string `json:"error"`
}

func (c *HTTPClient) Mint(ctx context.Context, payload, wallet string) (MintResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.Mint", trace.WithAttributes(
		attribute.String("contract", c.contract),
	))
	defer span.End()

	body, err := json.Marshal(mintRequest{Contract: c.contract, Wallet: wallet, Payload: payload})
	if err != nil {
		return MintResult{}, fmt.Errorf("marshal mint request: %w", err)
	}

	resp, err := c.post(ctx, c.endpoint+"/mint", body)
	if err != nil {
		return MintResult{}, err
	}
	return MintResult{
		TokenID:         resp.TokenID,
		TransactionHash: resp.TransactionHash,
		ContractAddress: c.contract,
	}, nil
}

func (c *HTTPClient) OwnerToken(ctx context.Context, wallet string) (MintResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.OwnerToken")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/tokens?contract=%s&wallet=%s", c.endpoint, c.contract, wallet), nil)
	if err != nil {
		return MintResult{}, fmt.Errorf("build owner request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return MintResult{}, fmt.Errorf("query token owner: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return MintResult{}, ErrNoToken
	}
	if httpResp.StatusCode != http.StatusOK {
		return MintResult{}, fmt.Errorf("chain gateway returned %d", httpResp.StatusCode)
	}

	var resp mintResponse
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 1<<20)).Decode(&resp); err != nil {
		return MintResult{}, fmt.Errorf("decode owner response: %w", err)
	}
	if resp.TokenID == "" {
		return MintResult{}, ErrNoToken
	}
	return MintResult{
		TokenID:         resp.TokenID,
		TransactionHash: resp.TransactionHash,
		ContractAddress: c.contract,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, body []byte) (*mintResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call chain gateway: %w", err)
	}
	defer httpResp.Body.Close()

	var resp mintResponse
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 1<<20)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode chain response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("chain gateway: %s", resp.Error)
		}
		return nil, fmt.Errorf("chain gateway returned %d", httpResp.StatusCode)
	}
	return &resp, nil
}
