package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunatalk/lunatalk-server/internal/entitlement"
	"github.com/lunatalk/lunatalk-server/internal/kv"
	"github.com/lunatalk/lunatalk-server/internal/llm"
	"github.com/lunatalk/lunatalk-server/internal/model"
	"github.com/lunatalk/lunatalk-server/internal/prompt"
	"github.com/lunatalk/lunatalk-server/internal/quota"
	"github.com/lunatalk/lunatalk-server/internal/report"
	"github.com/lunatalk/lunatalk-server/internal/scenario"
	"github.com/lunatalk/lunatalk-server/internal/settings"
	"github.com/lunatalk/lunatalk-server/internal/store"
	"github.com/lunatalk/lunatalk-server/pkg/logger"
	"github.com/lunatalk/lunatalk-server/pkg/metrics"
)

const deviceIDKey = "appDeviceId"

// Manager owns the open-session registry and wires each session to its
// device-scoped slice of the shared key-value store.
type Manager struct {
	base      kv.Store
	gateway   llm.Client
	oracle    entitlement.Oracle
	reports   *report.Client
	assembler *prompt.Assembler
	logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. reports may be nil when the
// moderation endpoint is not configured; sessions then refuse Report calls.
func NewManager(base kv.Store, gateway llm.Client, oracle entitlement.Oracle, reports *report.Client, log *logger.Logger) *Manager {
	return &Manager{
		base:      base,
		gateway:   gateway,
		oracle:    oracle,
		reports:   reports,
		assembler: prompt.NewAssembler(log),
		logger:    log,
		sessions:  make(map[string]*Session),
	}
}

// Open starts a session for the user: device identity is resolved or minted,
// daily counters and settings are loaded, entitlement is checked, and the
// conversation named by the request (or a fresh one) is attached. New
// conversations receive their opening AI exchange before the session is
// returned.
func (m *Manager) Open(ctx context.Context, userID string, req model.OpenSessionRequest) (*Session, error) {
	userStore := kv.Namespaced(m.base, userID)

	deviceID, err := m.resolveDeviceID(ctx, userStore)
	if err != nil {
		return nil, err
	}

	conversations := store.New(userStore, m.logger)
	tracker := quota.NewTracker(userStore, m.logger)
	prefs := settings.NewService(userStore, m.logger)

	dateKey := quota.TodayKey()

	s := &Session{
		ID:            uuid.NewString(),
		UserID:        userID,
		DeviceID:      deviceID,
		conversations: conversations,
		quota:         tracker,
		assembler:     m.assembler,
		gateway:       m.gateway,
		oracle:        m.oracle,
		reports:       m.reports,
		state:         StateInitializing,
		dateKey:       dateKey,
		messageCount:  tracker.LoadCount(ctx, quota.KindMessages, dateKey),
		reportCount:   tracker.LoadCount(ctx, quota.KindReports, dateKey),
		level:         m.assembler.ParseLevel(prefs.CharacterLevelValue(ctx)),
		username:      prefs.Username(ctx),
	}
	s.logger = m.logger.WithSession(s.ID, deviceID, "")

	if m.oracle != nil && m.oracle.IsConfigured() {
		info, err := m.oracle.CustomerInfo(ctx, deviceID)
		if err != nil {
			m.logger.Warn("entitlement check failed, treating as not subscribed",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		} else {
			s.subscribed = entitlement.IsEntitled(info, m.oracle.EntitlementID())
		}

		updates, cancel := m.oracle.Subscribe(deviceID)
		s.unsubscribe = cancel
		go s.watchEntitlement(updates)
	}

	if err := m.attachConversation(ctx, s, req); err != nil {
		s.Close()
		return nil, err
	}
	s.logger = m.logger.WithSession(s.ID, deviceID, s.conversationID)

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	s.logger.Info("session opened",
		zap.String("device_id", deviceID),
		zap.String("conversation_id", s.conversationID),
		zap.Bool("subscribed", s.subscribed),
	)
	return s, nil
}

// Get returns the open session with the given id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Close tears down and deregisters the session. It reports whether a session
// with that id existed.
func (m *Manager) Close(sessionID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	metrics.SessionsActive.Dec()
	s.logger.Info("session closed")
	return true
}

// CloseAll tears down every open session. Called on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.SessionsActive.Dec()
	}
}

// ListConversations returns the user's conversation summaries, newest-created
// first.
func (m *Manager) ListConversations(ctx context.Context, userID string) []model.ConversationSummary {
	return store.New(kv.Namespaced(m.base, userID), m.logger).ListSummaries(ctx)
}

// DeleteConversation removes a conversation's log and summary for the user.
func (m *Manager) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return store.New(kv.Namespaced(m.base, userID), m.logger).Delete(ctx, conversationID)
}

// DailyScenario returns the user's scenario of the day, picking one if none
// is stored yet.
func (m *Manager) DailyScenario(ctx context.Context, userID string) scenario.Scenario {
	picker := scenario.NewPicker(kv.Namespaced(m.base, userID), m.logger)
	return picker.Daily(ctx, quota.TodayKey())
}

// DeviceID resolves (or mints) the stable per-user device identifier.
func (m *Manager) DeviceID(ctx context.Context, userID string) (string, error) {
	return m.resolveDeviceID(ctx, kv.Namespaced(m.base, userID))
}

// Settings returns the settings service scoped to the user.
func (m *Manager) Settings(userID string) *settings.Service {
	return settings.NewService(kv.Namespaced(m.base, userID), m.logger)
}

func (m *Manager) resolveDeviceID(ctx context.Context, userStore kv.Store) (string, error) {
	id, err := userStore.Get(ctx, deviceIDKey)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && err != kv.ErrNotFound {
		return "", err
	}

	id = uuid.NewString()
	if err := userStore.Set(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

// attachConversation binds the session to a conversation. An explicit id
// resumes that conversation; an initial prompt creates a new one (reusing
// catalog metadata when the prompt matches); neither falls back to the
// default scenario.
func (m *Manager) attachConversation(ctx context.Context, s *Session, req model.OpenSessionRequest) error {
	if req.ConversationID != "" {
		s.conversationID = req.ConversationID
		s.messages = s.conversations.Load(ctx, req.ConversationID)
		s.title = store.FallbackTitle

		if summary, ok := s.conversations.FindSummary(ctx, req.ConversationID); ok {
			if summary.ParticipantName != "" {
				s.title = summary.ParticipantName
			}
			s.anchorPrompt = summary.InitialPrompt
		}
		return nil
	}

	sc := scenario.Default()
	if req.InitialPrompt != "" {
		if matched, ok := scenario.FindByPrompt(req.InitialPrompt); ok {
			sc = matched
		} else {
			sc = scenario.Scenario{Prompt: req.InitialPrompt}
		}
	}

	summary, err := s.conversations.Create(ctx, sc.Prompt, sc)
	if err != nil {
		return err
	}

	s.conversationID = summary.ID
	s.title = summary.ParticipantName
	s.anchorPrompt = sc.Prompt
	s.fetchInitial(ctx, sc.Prompt)
	return nil
}
