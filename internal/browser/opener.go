package browser

import (
	"context"
	"time"
)

// releaseTimeout bounds the release call made when a one-shot page closes.
const releaseTimeout = 10 * time.Second

// Opener opens a fresh tab for a single task.
type Opener interface {
	Open(ctx context.Context) (Page, error)
}

// LocalOpener launches a local browser per task.
type LocalOpener struct {
	Launcher Launcher
}

// Open implements Opener.
func (o LocalOpener) Open(ctx context.Context) (Page, error) {
	return o.Launcher.Launch(ctx)
}

var (
	_ Opener = LocalOpener{}
	_ Opener = (*SessionManager)(nil)
)

// Open creates a short-lived remote session and attaches to it. Closing the
// returned page releases the session.
func (m *SessionManager) Open(ctx context.Context) (Page, error) {
	handle, err := m.create(ctx, false)
	if err != nil {
		return nil, err
	}

	page, err := m.Attach(ctx, handle)
	if err != nil {
		m.releaseDetached(handle.SessionID)
		return nil, err
	}
	return &releasingPage{Page: page, release: func() { m.releaseDetached(handle.SessionID) }}, nil
}

// releaseDetached releases a session on a fresh context so it still runs
// when the caller's context is already done.
func (m *SessionManager) releaseDetached(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := m.Release(ctx, sessionID); err != nil {
		m.metrics.RecordSessionCleanupFailed()
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to release session")
	}
}

type releasingPage struct {
	Page
	release func()
}

func (p *releasingPage) Close() error {
	err := p.Page.Close()
	p.release()
	return err
}
