package address

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

var ErrEmptyQuery = errors.New("address query is empty")

const maxResponseSizeBytes = 1 << 20

// Config points at the geocoding verification endpoint.
type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// VerifierOption customizes HTTPVerifier.
type VerifierOption func(*HTTPVerifier)

func WithHTTPClient(client *http.Client) VerifierOption {
	return func(v *HTTPVerifier) {
		if client != nil {
			v.httpClient = client
		}
	}
}

// HTTPVerifier resolves free-form address text against an external
// geocoding service. Implements the orchestrator's address
// verification contract.
type HTTPVerifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type verifyRequest struct {
	Address string `json:"address"`
}

type verifyResponse struct {
	Status     string   `json:"status"`
	Candidates []string `json:"candidates"`
	Normalized struct {
		Value      string `json:"value"`
		PostalCode string `json:"postal_code"`
		Prefecture string `json:"prefecture"`
		City       string `json:"city"`
		District   string `json:"district"`
	} `json:"normalized"`
}

func NewHTTPVerifier(cfg Config, opts ...VerifierOption) (*HTTPVerifier, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("address verifier url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid address verifier url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	v := &HTTPVerifier{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify looks up one free-form address. A verified result still
// carries Confirmed=false: the user must approve the normalized form
// before the slot leaves NEEDS_VERIFICATION.
func (v *HTTPVerifier) Verify(ctx context.Context, text string) (contractx.AddressVerification, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return contractx.AddressVerification{}, ErrEmptyQuery
	}

	body, err := json.Marshal(verifyRequest{Address: query})
	if err != nil {
		return contractx.AddressVerification{}, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return contractx.AddressVerification{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return contractx.AddressVerification{}, fmt.Errorf("execute verify request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.AddressVerification{}, fmt.Errorf("read verify response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.AddressVerification{}, fmt.Errorf("verify http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed verifyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.AddressVerification{}, fmt.Errorf("decode verify response: %w", err)
	}

	return contractx.AddressVerification{
		Status: normalizeStatus(parsed.Status),
		Normalized: statex.AddressPatch{
			Value:      strings.TrimSpace(parsed.Normalized.Value),
			PostalCode: strings.TrimSpace(parsed.Normalized.PostalCode),
			Prefecture: strings.TrimSpace(parsed.Normalized.Prefecture),
			City:       strings.TrimSpace(parsed.Normalized.City),
			District:   strings.TrimSpace(parsed.Normalized.District),
		},
		Candidates: parsed.Candidates,
	}, nil
}

func normalizeStatus(raw string) contractx.VerifyStatus {
	switch contractx.VerifyStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case contractx.VerifyVerified:
		return contractx.VerifyVerified
	case contractx.VerifyNeedsSelection:
		return contractx.VerifyNeedsSelection
	case contractx.VerifyNeedsMoreInfo:
		return contractx.VerifyNeedsMoreInfo
	default:
		return contractx.VerifyFailed
	}
}
