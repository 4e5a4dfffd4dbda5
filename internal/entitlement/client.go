package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/pkg/logger"
	"github.com/lunatalk/lunatalk-server/pkg/metrics"
)

// Config holds the entitlement provider credentials and polling interval.
type Config struct {
	APIKey        string
	APIURL        string
	EntitlementID string
	PollInterval  time.Duration
}

// Client is an HTTP Oracle implementation against the subscription
// provider's REST API. Change notifications are synthesized by polling.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates an entitlement client. An empty API key yields a client
// that reports unconfigured and fails every call with ErrNotConfigured.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

// Process-wide handle: configure once, reused by every session.
var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// EnsureConfigured initializes the process-wide client handle exactly once;
// later calls return the existing handle unchanged.
func EnsureConfigured(cfg Config, log *logger.Logger) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient == nil {
		defaultClient = NewClient(cfg, log)
	}
	return defaultClient
}

// ResetConfigured clears the process-wide handle. Tests only.
func ResetConfigured() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClient = nil
}

func (c *Client) IsConfigured() bool {
	return c.cfg.APIKey != "" && c.cfg.APIURL != ""
}

func (c *Client) EntitlementID() string {
	return c.cfg.EntitlementID
}

type subscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]Entitlement `json:"entitlements"`
	} `json:"subscriber"`
}

type offeringsResponse struct {
	Offerings []struct {
		Identifier string    `json:"identifier"`
		Packages   []Package `json:"packages"`
	} `json:"offerings"`
	CurrentOfferingID string `json:"current_offering_id"`
}

type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CustomerInfo fetches the subscriber's entitlement state.
func (c *Client) CustomerInfo(ctx context.Context, appUserID string) (CustomerInfo, error) {
	var parsed subscriberResponse
	if err := c.do(ctx, http.MethodGet, "/subscribers/"+appUserID, nil, &parsed); err != nil {
		metrics.EntitlementChecks.WithLabelValues("error").Inc()
		return CustomerInfo{}, err
	}

	info := CustomerInfo{
		AppUserID:    appUserID,
		Entitlements: parsed.Subscriber.Entitlements,
	}
	if IsEntitled(info, c.cfg.EntitlementID) {
		metrics.EntitlementChecks.WithLabelValues("entitled").Inc()
	} else {
		metrics.EntitlementChecks.WithLabelValues("not_entitled").Inc()
	}
	return info, nil
}

// Offerings lists the packages of the current offering.
func (c *Client) Offerings(ctx context.Context, appUserID string) ([]Package, error) {
	var parsed offeringsResponse
	if err := c.do(ctx, http.MethodGet, "/subscribers/"+appUserID+"/offerings", nil, &parsed); err != nil {
		return nil, err
	}

	for _, offering := range parsed.Offerings {
		if offering.Identifier == parsed.CurrentOfferingID {
			return offering.Packages, nil
		}
	}
	if len(parsed.Offerings) > 0 {
		return parsed.Offerings[0].Packages, nil
	}
	return nil, nil
}

// Purchase buys a package on behalf of the subscriber.
func (c *Client) Purchase(ctx context.Context, appUserID, packageID string) (CustomerInfo, error) {
	body := map[string]string{"package_id": packageID}

	var parsed subscriberResponse
	if err := c.do(ctx, http.MethodPost, "/subscribers/"+appUserID+"/purchases", body, &parsed); err != nil {
		return CustomerInfo{}, err
	}
	return CustomerInfo{AppUserID: appUserID, Entitlements: parsed.Subscriber.Entitlements}, nil
}

// Restore re-syncs prior purchases for the subscriber.
func (c *Client) Restore(ctx context.Context, appUserID string) (CustomerInfo, error) {
	var parsed subscriberResponse
	if err := c.do(ctx, http.MethodPost, "/subscribers/"+appUserID+"/restore", nil, &parsed); err != nil {
		return CustomerInfo{}, err
	}
	return CustomerInfo{AppUserID: appUserID, Entitlements: parsed.Subscriber.Entitlements}, nil
}

// Subscribe polls the provider and pushes customer info whenever the
// entitlement set changes. The returned cancel func stops the poll loop and
// closes the channel; it is safe to call more than once.
func (c *Client) Subscribe(appUserID string) (<-chan CustomerInfo, func()) {
	updates := make(chan CustomerInfo, 1)
	stop := make(chan struct{})
	var once sync.Once

	cancel := func() {
		once.Do(func() { close(stop) })
	}

	if !c.IsConfigured() {
		close(updates)
		return updates, cancel
	}

	go func() {
		defer close(updates)

		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()

		var last *CustomerInfo
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			ctx, ctxCancel := context.WithTimeout(context.Background(), 10*time.Second)
			info, err := c.CustomerInfo(ctx, appUserID)
			ctxCancel()
			if err != nil {
				c.logger.Warn("entitlement poll failed",
					zap.String("app_user_id", appUserID),
					zap.Error(err),
				)
				continue
			}

			if last != nil && reflect.DeepEqual(last.Entitlements, info.Entitlements) {
				continue
			}
			last = &info

			select {
			case updates <- info:
			case <-stop:
				return
			default:
				// Subscriber is lagging; drop the update, the next poll
				// delivers fresher state anyway.
			}
		}
	}()

	return updates, cancel
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := strings.TrimSuffix(c.cfg.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("entitlement provider call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return purchaseErrorFrom(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("provider response is not valid JSON: %w", err)
		}
	}
	return nil
}

func purchaseErrorFrom(status int, body []byte) error {
	var perr providerError
	_ = json.Unmarshal(body, &perr)

	message := perr.Message
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", status)
	}

	switch perr.Code {
	case "user_cancelled", "purchase_cancelled":
		return &PurchaseError{Code: PurchaseCancelled, Message: message}
	case "store_problem":
		return &PurchaseError{Code: PurchaseStoreProblem, Message: message}
	default:
		return &PurchaseError{Code: PurchaseUnknown, Message: message}
	}
}
