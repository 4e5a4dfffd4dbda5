// Package quota maintains the per-day free-message and report counters.
package quota

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

const (
	// MaxDailyMessages is the free-message quota for non-subscribed users.
	MaxDailyMessages = 3

	// MaxDailyReports caps message reports per day regardless of entitlement.
	MaxDailyReports = 10
)

// Kind selects which daily counter a call refers to.
type Kind string

const (
	KindMessages Kind = "messages"
	KindReports  Kind = "reports"
)

// StorageKey returns the store key for this counter kind on the given date.
func (k Kind) StorageKey(date string) string {
	if k == KindReports {
		return "dailyReportsCount_" + date
	}
	return "dailyMessagesCount_" + date
}

// TodayKey computes the local calendar date as YYYY-MM-DD. Callers cache the
// result for the lifetime of a session; it is not re-evaluated at midnight.
func TodayKey() string {
	return time.Now().Format("2006-01-02")
}

// Tracker reads and persists daily counters. It performs no read-modify-write
// protection; all access happens on a single logical session per device.
type Tracker struct {
	store  kv.Store
	logger *logger.Logger
}

// NewTracker creates a tracker over the given store.
func NewTracker(store kv.Store, log *logger.Logger) *Tracker {
	return &Tracker{store: store, logger: log}
}

// LoadCount reads the persisted counter for kind and date. Absent values and
// read failures both yield 0; failures are logged, not raised.
func (t *Tracker) LoadCount(ctx context.Context, kind Kind, date string) int {
	value, err := t.store.Get(ctx, kind.StorageKey(date))
	if err != nil {
		if err != kv.ErrNotFound {
			t.logger.Warn("failed to load daily counter",
				zap.String("kind", string(kind)),
				zap.String("date", date),
				zap.Error(err),
			)
		}
		return 0
	}

	count, err := strconv.Atoi(value)
	if err != nil || count < 0 {
		t.logger.Warn("stored daily counter is not a valid count",
			zap.String("kind", string(kind)),
			zap.String("date", date),
			zap.String("value", value),
		)
		return 0
	}
	return count
}

// SaveCount persists an already-incremented counter. Persistence failures are
// logged only; the in-memory counter stays advanced for the session.
func (t *Tracker) SaveCount(ctx context.Context, kind Kind, date string, count int) {
	if err := t.store.Set(ctx, kind.StorageKey(date), strconv.Itoa(count)); err != nil {
		t.logger.Warn("failed to save daily counter",
			zap.String("kind", string(kind)),
			zap.String("date", date),
			zap.Int("count", count),
			zap.Error(err),
		)
	}
}

// Increment returns currentCount + 1. Persisting the new value and updating
// in-memory state is the caller's responsibility.
func Increment(currentCount int) int {
	return currentCount + 1
}

// CanSend reports whether a send is permitted. Entitled users bypass the
// quota entirely.
func CanSend(entitled bool, messageCount int) bool {
	return entitled || messageCount < MaxDailyMessages
}

// CanReport reports whether a message report is permitted. The report cap
// applies regardless of entitlement.
func CanReport(reportCount int) bool {
	return reportCount < MaxDailyReports
}
