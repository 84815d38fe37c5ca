package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
)

// Gateway abstracts the remote CRM for the orchestrator.
type Gateway interface {
	// CreateCase pushes a new case. Never returns an error: exhausted
	// retries and an open breaker degrade into a fallback CreateResult.
	CreateCase(ctx context.Context, c *domain.Case) CreateResult
	// GetCase fetches the remote view. Returns (nil, nil) when the case is
	// absent or the CRM is unavailable.
	GetCase(ctx context.Context, salesforceID string) (*RemoteCase, error)
	// UpdateCase pushes a partial update. The returned error is already
	// degraded (all retries exhausted or breaker open); callers log and move on.
	UpdateCase(ctx context.Context, salesforceID string, c *domain.Case) error
}

// Client talks to a Salesforce-compatible CRM with circuit breaking,
// bounded retries and fallback results.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	breaker       *gobreaker.CircuitBreaker
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// NewClient builds the client from configuration. The breaker instance is
// shared by all callers; its state transitions are process-wide.
func NewClient(cfg config.SalesforceConfig, logger *zap.Logger) *Client {
	minRequests := uint32(cfg.BreakerMinRequests)
	if minRequests == 0 {
		minRequests = 5
	}
	failureRate := cfg.BreakerFailureRate
	if failureRate <= 0 || failureRate > 1 {
		failureRate = 0.5
	}

	settings := gobreaker.Settings{
		Name:        "salesforce",
		MaxRequests: 1,
		Interval:    time.Duration(cfg.BreakerIntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	attempts := cfg.RetryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout()},
		baseURL:       cfg.BaseURL,
		apiVersion:    cfg.APIVersion,
		breaker:       gobreaker.NewCircuitBreaker(settings),
		retryAttempts: attempts,
		retryDelay:    cfg.RetryBackoff(),
		logger:        logger,
	}
}

// CreateCase creates the case remotely. Breaker is the outer layer: when it
// is open the retry loop is never entered and the fallback result is
// returned immediately.
func (c *Client) CreateCase(ctx context.Context, record *domain.Case) CreateResult {
	url := fmt.Sprintf("%s/services/data/%s/sobjects/Case", c.baseURL, c.apiVersion)
	payload := toCreateRequest(record)

	result, err := c.breaker.Execute(func() (any, error) {
		var resp caseCreateResponse
		op := func() error {
			return c.doJSON(ctx, http.MethodPost, url, payload, &resp)
		}
		if err := c.withRetry(ctx, op); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		c.logger.Warn("salesforce create fallback",
			zap.String("protocol", record.Protocol),
			zap.Error(err),
		)
		return CreateResult{
			ID:      fmt.Sprintf("%s%d", FallbackIDPrefix, time.Now().UnixMilli()),
			Success: false,
			Errors:  []string{"salesforce unavailable: " + err.Error()},
		}
	}

	resp := result.(caseCreateResponse)
	errs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		errs = append(errs, fmt.Sprint(e))
	}
	c.logger.Info("case created in salesforce",
		zap.String("protocol", record.Protocol),
		zap.String("salesforce_case_id", resp.ID),
	)
	return CreateResult{ID: resp.ID, Success: resp.Success, Errors: errs}
}

// GetCase fetches a remote case by Salesforce id.
func (c *Client) GetCase(ctx context.Context, salesforceID string) (*RemoteCase, error) {
	url := fmt.Sprintf("%s/services/data/%s/sobjects/Case/%s", c.baseURL, c.apiVersion, salesforceID)

	result, err := c.breaker.Execute(func() (any, error) {
		var resp RemoteCase
		if err := c.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		c.logger.Warn("salesforce get fallback",
			zap.String("salesforce_case_id", salesforceID),
			zap.Error(err),
		)
		return nil, nil
	}
	return result.(*RemoteCase), nil
}

// UpdateCase pushes a partial update to the remote case.
func (c *Client) UpdateCase(ctx context.Context, salesforceID string, record *domain.Case) error {
	url := fmt.Sprintf("%s/services/data/%s/sobjects/Case/%s", c.baseURL, c.apiVersion, salesforceID)
	payload := toUpdateRequest(record)

	_, err := c.breaker.Execute(func() (any, error) {
		op := func() error {
			return c.doJSON(ctx, http.MethodPatch, url, payload, nil)
		}
		if err := c.withRetry(ctx, op); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		c.logger.Warn("salesforce update fallback",
			zap.String("salesforce_case_id", salesforceID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, op backoff.Operation) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retryAttempts-1)),
		ctx,
	)
	return backoff.Retry(op, policy)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("salesforce returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode salesforce response: %w", err))
	}
	return nil
}
