package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunatalk/lunatalk-server/internal/entitlement"
	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/quota"
	"github.com/lunatalk/lunatalk-server/internal/report"
	"github.com/lunatalk/lunatalk-server/internal/scenario"
	"github.com/lunatalk/lunatalk-server/internal/store"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
)

type stubGateway struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
	last  []model.Message
}

func (g *stubGateway) Generate(_ context.Context, messages []model.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = messages
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubOracle struct {
	configured bool
	entitled   bool
	updates    chan entitlement.CustomerInfo
	cancelOnce sync.Once
}

func (o *stubOracle) IsConfigured() bool    { return o.configured }
func (o *stubOracle) EntitlementID() string { return "pro" }

func (o *stubOracle) CustomerInfo(context.Context, string) (entitlement.CustomerInfo, error) {
	return o.info(o.entitled), nil
}

func (o *stubOracle) Offerings(context.Context, string) ([]entitlement.Package, error) {
	return nil, nil
}

func (o *stubOracle) Purchase(context.Context, string, string) (entitlement.CustomerInfo, error) {
	return o.info(true), nil
}

func (o *stubOracle) Restore(context.Context, string) (entitlement.CustomerInfo, error) {
	return o.info(o.entitled), nil
}

func (o *stubOracle) Subscribe(string) (<-chan entitlement.CustomerInfo, func()) {
	return o.updates, func() {
		o.cancelOnce.Do(func() {
			if o.updates != nil {
				close(o.updates)
			}
		})
	}
}

func (o *stubOracle) info(active bool) entitlement.CustomerInfo {
	return entitlement.CustomerInfo{
		Entitlements: map[string]entitlement.Entitlement{
			"pro": {IsActive: active},
		},
	}
}

func (o *stubOracle) push(active bool) {
	o.updates <- o.info(active)
}

func newTestManager(gateway *stubGateway, oracle entitlement.Oracle) (*Manager, *kv.MemoryStore) {
	base := kv.NewMemoryStore()
	return NewManager(base, gateway, oracle, nil, logger.NewNop()), base
}

func openExisting(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Open(context.Background(), "user-1", model.OpenSessionRequest{
		ConversationID: "11111111-1111-1111-1111-111111111111",
	})
	require.NoError(t, err)
	return s
}

func TestOpenDefaultScenarioFetchesInitialExchange(t *testing.T) {
	gateway := &stubGateway{reply: "Hajimemashite!"}
	m, _ := newTestManager(gateway, nil)

	s, err := m.Open(context.Background(), "user-1", model.OpenSessionRequest{})
	require.NoError(t, err)

	snapshot := s.Snapshot()
	assert.Equal(t, "Free Talk", snapshot.Title)
	assert.Equal(t, "ready", snapshot.State)
	require.Len(t, snapshot.Messages, 1)
	assert.Equal(t, model.SenderAI, snapshot.Messages[0].Sender)
	assert.Equal(t, "Hajimemashite!", snapshot.Messages[0].Text)
	assert.Equal(t, 1, gateway.callCount())

	summaries := m.ListConversations(context.Background(), "user-1")
	require.Len(t, summaries, 1)
	assert.Equal(t, snapshot.ConversationID, summaries[0].ID)
	assert.Equal(t, "Hajimemashite!", summaries[0].LastMessage)
}

func TestOpenUnknownPromptFallsBackToDefaultTitle(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	s, err := m.Open(context.Background(), "user-1", model.OpenSessionRequest{
		InitialPrompt: "a prompt that matches no scenario",
	})
	require.NoError(t, err)
	assert.Equal(t, store.FallbackTitle, s.Snapshot().Title)
}

func TestOpenExistingConversationSkipsInitialFetch(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	s := openExisting(t, m)
	assert.Equal(t, 0, gateway.callCount())
	assert.Empty(t, s.Snapshot().Messages)
	assert.Equal(t, store.FallbackTitle, s.Snapshot().Title)
}

func TestSendAppendsUserAndAIMessages(t *testing.T) {
	gateway := &stubGateway{reply: "Konnichiwa!"}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	appended, err := s.Send(context.Background(), "Hello Luna")
	require.NoError(t, err)
	require.Len(t, appended, 2)
	assert.Equal(t, model.SenderUser, appended[0].Sender)
	assert.Equal(t, "Hello Luna", appended[0].Text)
	assert.Equal(t, model.SenderAI, appended[1].Sender)
	assert.Equal(t, "Konnichiwa!", appended[1].Text)
	assert.False(t, appended[1].IsError)

	// Outbound list: system instruction, anchor, then history ending with the
	// user message just sent.
	require.NotEmpty(t, gateway.last)
	assert.Equal(t, "Hello Luna", gateway.last[len(gateway.last)-1].Text)
	assert.Equal(t, DefaultAnchorPrompt, gateway.last[1].Text)
}

func TestDailyQuotaBlocksFourthSend(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	for i := 0; i < quota.MaxDailyMessages; i++ {
		_, err := s.Send(context.Background(), "message "+strconv.Itoa(i))
		require.NoError(t, err)
	}
	assert.Equal(t, quota.MaxDailyMessages, s.MessageCount())
	assert.Equal(t, quota.MaxDailyMessages, gateway.callCount())

	_, err := s.Send(context.Background(), "one too many")
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, quota.MaxDailyMessages, quotaErr.Count)

	// The blocked send never reached the gateway and left no trace in the
	// transcript or the counter.
	assert.Equal(t, quota.MaxDailyMessages, gateway.callCount())
	assert.Equal(t, quota.MaxDailyMessages, s.MessageCount())
	assert.Len(t, s.Snapshot().Messages, quota.MaxDailyMessages*2)
}

func TestEntitledUserBypassesQuota(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, &stubOracle{configured: true, entitled: true})
	s := openExisting(t, m)

	for i := 0; i < quota.MaxDailyMessages+3; i++ {
		_, err := s.Send(context.Background(), "unlimited")
		require.NoError(t, err)
	}

	// Entitled sends never advance the free counter.
	assert.Equal(t, 0, s.MessageCount())
}

func TestQuotaSurvivesReopen(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	s := openExisting(t, m)
	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)
	m.Close(s.ID)

	reopened := openExisting(t, m)
	assert.Equal(t, 1, reopened.MessageCount())
}

func TestGatewayFailureBecomesFlaggedMessage(t *testing.T) {
	gateway := &stubGateway{err: errors.New("upstream down")}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	appended, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, appended, 2)

	assert.Equal(t, "hi", appended[0].Text)
	assert.True(t, appended[1].IsError)
	assert.Contains(t, appended[1].Text, "An error occurred:")
	assert.Contains(t, appended[1].Text, "upstream down")

	// The failed exchange still consumed quota and was persisted.
	assert.Equal(t, 1, s.MessageCount())
	snapshot := s.Snapshot()
	require.Len(t, snapshot.Messages, 2)
	assert.True(t, snapshot.Messages[1].IsError)
}

func TestSendValidation(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, gateway.callCount())
}

func TestSendAfterCloseFails(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	require.True(t, m.Close(s.ID))
	_, ok := m.Get(s.ID)
	assert.False(t, ok)

	_, err := s.Send(context.Background(), "too late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEntitlementUpdateFlipsSubscription(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	oracle := &stubOracle{configured: true, updates: make(chan entitlement.CustomerInfo, 1)}
	m, _ := newTestManager(gateway, oracle)
	s := openExisting(t, m)

	assert.False(t, s.Snapshot().IsSubscribed)

	oracle.push(true)
	require.Eventually(t, func() bool {
		return s.Snapshot().IsSubscribed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseIgnoresLateEntitlementUpdates(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	oracle := &stubOracle{configured: true, updates: make(chan entitlement.CustomerInfo, 1)}
	m, _ := newTestManager(gateway, oracle)
	s := openExisting(t, m)

	m.Close(s.ID)

	// Close cancels the subscription, which closes the update channel; a
	// buffered late update must not flip the closed session.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, s.Snapshot().IsSubscribed)
}

func TestReportUnavailableWithoutClient(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)
	s := openExisting(t, m)

	_, err := s.Report(context.Background(), model.ReportMessageRequest{Reason: "spam"})
	assert.ErrorIs(t, err, ErrReportsUnavailable)
}

func TestReportFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Report received."})
	}))
	defer srv.Close()

	reportClient, err := report.NewClient(srv.URL, "")
	require.NoError(t, err)

	gateway := &stubGateway{reply: "ok"}
	m := NewManager(kv.NewMemoryStore(), gateway, nil, reportClient, logger.NewNop())
	s := openExisting(t, m)

	resp, err := s.Report(context.Background(), model.ReportMessageRequest{
		MessageText: "bad output",
		Reason:      "inappropriate",
	})
	require.NoError(t, err)
	assert.Equal(t, "Report received.", resp.Message)
	assert.Equal(t, 1, resp.ReportsToday)
	assert.Equal(t, quota.MaxDailyReports, resp.MaxDailyReports)
}

func TestReportCapBlocksSubmission(t *testing.T) {
	submissions := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		submissions++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reportClient, err := report.NewClient(srv.URL, "")
	require.NoError(t, err)

	base := kv.NewMemoryStore()
	key := "user-1." + quota.KindReports.StorageKey(quota.TodayKey())
	require.NoError(t, base.Set(context.Background(), key, strconv.Itoa(quota.MaxDailyReports)))

	gateway := &stubGateway{reply: "ok"}
	m := NewManager(base, gateway, nil, reportClient, logger.NewNop())
	s := openExisting(t, m)

	_, err = s.Report(context.Background(), model.ReportMessageRequest{Reason: "spam"})
	var limitErr *ReportLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 0, submissions)
}

func TestDeviceIDIsStableAcrossOpens(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	first := openExisting(t, m)
	deviceID := first.DeviceID
	require.NotEmpty(t, deviceID)
	m.Close(first.ID)

	second := openExisting(t, m)
	assert.Equal(t, deviceID, second.DeviceID)

	other, err := m.Open(context.Background(), "user-2", model.OpenSessionRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, deviceID, other.DeviceID)
}

func TestUsersAreIsolated(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	ctx := context.Background()
	_, err := m.Open(ctx, "user-1", model.OpenSessionRequest{})
	require.NoError(t, err)

	assert.Len(t, m.ListConversations(ctx, "user-1"), 1)
	assert.Empty(t, m.ListConversations(ctx, "user-2"))
}

func TestDailyScenarioStablePerUserAndDate(t *testing.T) {
	gateway := &stubGateway{reply: "ok"}
	m, _ := newTestManager(gateway, nil)

	ctx := context.Background()
	first := m.DailyScenario(ctx, "user-1")
	assert.Equal(t, first, m.DailyScenario(ctx, "user-1"))
	assert.Contains(t, scenario.Catalog, first)
}
