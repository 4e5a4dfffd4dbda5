package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/entitlement"
	"github.com/lunatalk/lunatalk-server/internal/middleware"
	"github.com/lunatalk/lunatalk-server/internal/session"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

// EntitlementHandler handles subscription status, offerings, purchase, and
// restore endpoints.
type EntitlementHandler struct {
	manager *session.Manager
	oracle  entitlement.Oracle
	logger  *logger.Logger
}

// NewEntitlementHandler creates a new entitlement handler.
func NewEntitlementHandler(manager *session.Manager, oracle entitlement.Oracle, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		manager: manager,
		oracle:  oracle,
		logger:  log,
	}
}

type entitlementStatusResponse struct {
	IsSubscribed  bool                     `json:"is_subscribed"`
	EntitlementID string                   `json:"entitlement_id"`
	CustomerInfo  entitlement.CustomerInfo `json:"customer_info"`
}

type purchaseRequest struct {
	PackageID string `json:"package_id"`
}

func (h *EntitlementHandler) deviceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.oracle == nil || !h.oracle.IsConfigured() {
		writeError(w, http.StatusServiceUnavailable, "entitlement provider is not configured")
		return "", false
	}

	deviceID, err := h.manager.DeviceID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error("failed to resolve device id", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve device identity")
		return "", false
	}
	return deviceID, true
}

// Status handles GET /api/v1/entitlement
func (h *EntitlementHandler) Status(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	info, err := h.oracle.CustomerInfo(r.Context(), deviceID)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entitlementStatusResponse{
		IsSubscribed:  entitlement.IsEntitled(info, h.oracle.EntitlementID()),
		EntitlementID: h.oracle.EntitlementID(),
		CustomerInfo:  info,
	})
}

// Offerings handles GET /api/v1/entitlement/offerings
func (h *EntitlementHandler) Offerings(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	packages, err := h.oracle.Offerings(r.Context(), deviceID)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}
	if packages == nil {
		packages = []entitlement.Package{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

// Purchase handles POST /api/v1/entitlement/purchase
func (h *EntitlementHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PackageID == "" {
		writeError(w, http.StatusBadRequest, "package_id is required")
		return
	}

	info, err := h.oracle.Purchase(r.Context(), deviceID, req.PackageID)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entitlementStatusResponse{
		IsSubscribed:  entitlement.IsEntitled(info, h.oracle.EntitlementID()),
		EntitlementID: h.oracle.EntitlementID(),
		CustomerInfo:  info,
	})
}

// Restore handles POST /api/v1/entitlement/restore
func (h *EntitlementHandler) Restore(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.deviceID(w, r)
	if !ok {
		return
	}

	info, err := h.oracle.Restore(r.Context(), deviceID)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entitlementStatusResponse{
		IsSubscribed:  entitlement.IsEntitled(info, h.oracle.EntitlementID()),
		EntitlementID: h.oracle.EntitlementID(),
		CustomerInfo:  info,
	})
}

// writeProviderError maps provider failures: user cancellation is a conflict
// the client shows inline, store problems point at the upstream, everything
// else is opaque.
func (h *EntitlementHandler) writeProviderError(w http.ResponseWriter, err error) {
	if errors.Is(err, entitlement.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	var perr *entitlement.PurchaseError
	if errors.As(err, &perr) {
		status := http.StatusInternalServerError
		switch perr.Code {
		case entitlement.PurchaseCancelled:
			status = http.StatusConflict
		case entitlement.PurchaseStoreProblem:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{
			"error": perr.Message,
			"code":  string(perr.Code),
		})
		return
	}

	h.logger.Error("entitlement provider call failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, "entitlement provider call failed")
}
