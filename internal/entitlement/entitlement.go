// Package entitlement wraps the subscription provider: a boolean
// "unlimited usage" grant plus purchase, restore, and change notifications.
package entitlement

import (
	"context"
	"errors"
	"fmt"
)

// Entitlement is a single capability grant on a customer.
type Entitlement struct {
	IsActive    bool   `json:"is_active"`
	ProductID   string `json:"product_id,omitempty"`
	ExpiresDate string `json:"expires_date,omitempty"`
}

// CustomerInfo is the provider's view of a customer.
type CustomerInfo struct {
	AppUserID    string                 `json:"app_user_id"`
	Entitlements map[string]Entitlement `json:"entitlements"`
}

// Package is a purchasable subscription package.
type Package struct {
	Identifier  string `json:"identifier"`
	ProductID   string `json:"product_id"`
	Title       string `json:"title,omitempty"`
	PriceString string `json:"price_string,omitempty"`
}

// PurchaseErrorCode distinguishes purchase failure causes.
type PurchaseErrorCode string

const (
	PurchaseCancelled    PurchaseErrorCode = "cancelled"
	PurchaseStoreProblem PurchaseErrorCode = "store_problem"
	PurchaseUnknown      PurchaseErrorCode = "unknown"
)

// PurchaseError is a typed purchase failure. User cancellation warrants only
// a short inline notice; store and unknown errors surface a retry-worthy
// message.
type PurchaseError struct {
	Code    PurchaseErrorCode
	Message string
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase failed (%s): %s", e.Code, e.Message)
}

// ErrNotConfigured is returned when the provider credentials are missing;
// the feature is disabled for the session.
var ErrNotConfigured = errors.New("entitlement provider is not configured")

// Oracle is the entitlement provider contract consumed by sessions.
type Oracle interface {
	// IsConfigured reports whether provider credentials are in place.
	IsConfigured() bool

	// EntitlementID returns the entitlement identifier gating unlimited chat.
	EntitlementID() string

	// CustomerInfo fetches the current entitlement state for a customer.
	CustomerInfo(ctx context.Context, appUserID string) (CustomerInfo, error)

	// Offerings lists the purchasable packages for a customer.
	Offerings(ctx context.Context, appUserID string) ([]Package, error)

	// Purchase buys a package and returns the resulting customer info.
	Purchase(ctx context.Context, appUserID, packageID string) (CustomerInfo, error)

	// Restore re-syncs prior purchases and returns the customer info.
	Restore(ctx context.Context, appUserID string) (CustomerInfo, error)

	// Subscribe delivers updated customer info when the customer's
	// entitlements change. The cancel func must be called on teardown.
	Subscribe(appUserID string) (<-chan CustomerInfo, func())
}

// IsEntitled reports whether the named entitlement is active on the info.
func IsEntitled(info CustomerInfo, entitlementID string) bool {
	if entitlementID == "" {
		return false
	}
	ent, ok := info.Entitlements[entitlementID]
	return ok && ent.IsActive
}
