package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/integrations-worker/internal/browserbase"
	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
)

// SessionProvider is the subset of the browserbase client used to manage
// remote sessions.
type SessionProvider interface {
	CreateSession(ctx context.Context, params browserbase.CreateParams) (*browserbase.Session, error)
	ConnectURL(ctx context.Context, id string) (string, error)
	Pages(ctx context.Context, id string) ([]browserbase.PageInfo, error)
	ReleaseSession(ctx context.Context, id string) error
}

var _ SessionProvider = (*browserbase.Client)(nil)

// SessionManager creates remote browser sessions and reattaches to them by
// ID, so consecutive activities can share one browser without holding a
// connection open in between.
type SessionManager struct {
	provider  SessionProvider
	connector Connector
	lifetime  time.Duration
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewSessionManager creates a SessionManager. lifetime caps how long the
// provider keeps an abandoned session alive; zero uses the provider default.
func NewSessionManager(provider SessionProvider, connector Connector, lifetime time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		provider:  provider,
		connector: connector,
		lifetime:  lifetime,
		metrics:   metrics,
		logger:    logger.With().Str("component", "session-manager").Logger(),
	}
}

// Create starts a kept-alive remote session and returns its handle. The
// attempt ID is a short random tag for correlating logs of one attempt.
func (m *SessionManager) Create(ctx context.Context) (domain.SessionHandle, error) {
	return m.create(ctx, true)
}

func (m *SessionManager) create(ctx context.Context, keepAlive bool) (domain.SessionHandle, error) {
	session, err := m.provider.CreateSession(ctx, browserbase.CreateParams{
		KeepAlive: keepAlive,
		Timeout:   m.lifetime,
	})
	if err != nil {
		return domain.SessionHandle{}, fmt.Errorf("%w: %w", domain.ErrSessionUnavailable, err)
	}
	m.metrics.RecordSessionCreated()

	handle := domain.SessionHandle{
		SessionID: session.ID,
		AttemptID: NewAttemptID(),
	}
	logger := observability.WithSessionContext(m.logger, handle.SessionID, handle.AttemptID)
	logger.Info().Msg("remote browser session created")
	return handle, nil
}

// Attach connects to the session's existing tab, or to its initial tab when
// the provider reports none.
func (m *SessionManager) Attach(ctx context.Context, handle domain.SessionHandle) (Page, error) {
	if handle.IsZero() {
		return nil, fmt.Errorf("%w: empty session handle", domain.ErrInvalidInput)
	}

	wsURL, err := m.provider.ConnectURL(ctx, handle.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionUnavailable, err)
	}

	pages, err := m.provider.Pages(ctx, handle.SessionID)
	if err != nil {
		// Attaching to the initial tab still works without the page list.
		logger := observability.WithSessionContext(m.logger, handle.SessionID, handle.AttemptID)
		logger.Warn().Err(err).Msg("could not list session pages")
	}

	page, err := m.connector.Connect(ctx, wsURL, SelectPage(pages))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionUnavailable, err)
	}
	return page, nil
}

// Release ends a session. Sessions that are already gone release cleanly.
func (m *SessionManager) Release(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.provider.ReleaseSession(ctx, sessionID); err != nil {
		return err
	}
	m.metrics.RecordSessionReleased()
	return nil
}

// SelectPage picks the tab to attach to: the first tab that has navigated
// away from about:blank, else the first tab. It returns "" for no tabs.
func SelectPage(pages []browserbase.PageInfo) string {
	for _, p := range pages {
		if p.ID != "" && p.URL != "" && p.URL != "about:blank" {
			return p.ID
		}
	}
	for _, p := range pages {
		if p.ID != "" {
			return p.ID
		}
	}
	return ""
}

// NewAttemptID returns a six character lowercase tag.
func NewAttemptID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
