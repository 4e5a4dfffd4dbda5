package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

func TestStorageKeys(t *testing.T) {
	assert.Equal(t, "dailyMessagesCount_2025-06-01", KindMessages.StorageKey("2025-06-01"))
	assert.Equal(t, "dailyReportsCount_2025-06-01", KindReports.StorageKey("2025-06-01"))
}

func TestLoadCountAbsentYieldsZero(t *testing.T) {
	tracker := NewTracker(kv.NewMemoryStore(), logger.NewNop())
	assert.Equal(t, 0, tracker.LoadCount(context.Background(), KindMessages, "2025-06-01"))
}

func TestLoadCountInvalidValueYieldsZero(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, KindMessages.StorageKey("2025-06-01"), "not-a-number"))
	require.NoError(t, store.Set(ctx, KindReports.StorageKey("2025-06-01"), "-4"))

	tracker := NewTracker(store, logger.NewNop())
	assert.Equal(t, 0, tracker.LoadCount(ctx, KindMessages, "2025-06-01"))
	assert.Equal(t, 0, tracker.LoadCount(ctx, KindReports, "2025-06-01"))
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(kv.NewMemoryStore(), logger.NewNop())

	tracker.SaveCount(ctx, KindMessages, "2025-06-01", 2)
	assert.Equal(t, 2, tracker.LoadCount(ctx, KindMessages, "2025-06-01"))

	// Counters are independent per date.
	assert.Equal(t, 0, tracker.LoadCount(ctx, KindMessages, "2025-06-02"))
}

func TestCanSend(t *testing.T) {
	assert.True(t, CanSend(false, 0))
	assert.True(t, CanSend(false, MaxDailyMessages-1))
	assert.False(t, CanSend(false, MaxDailyMessages))
	assert.False(t, CanSend(false, MaxDailyMessages+5))

	// Entitled users bypass the quota at any count.
	assert.True(t, CanSend(true, MaxDailyMessages))
	assert.True(t, CanSend(true, 1000))
}

func TestCanReportIgnoresEntitlement(t *testing.T) {
	assert.True(t, CanReport(MaxDailyReports-1))
	assert.False(t, CanReport(MaxDailyReports))
}

func TestIncrement(t *testing.T) {
	assert.Equal(t, 1, Increment(0))
	assert.Equal(t, MaxDailyMessages, Increment(MaxDailyMessages-1))
}
