package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/helixir/integrations-worker/internal/observability"
)

// ErrNoToken is returned when no stored OAuth token exists for the sender.
var ErrNoToken = errors.New("mail: oauth token not found; authorize the sending account first")

const gmailUser = "me"

// Sender delivers an email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// GmailSender sends mail through the Gmail API as the authorized account.
type GmailSender struct {
	srv     *gmail.Service
	now     func() time.Time
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewGmailSender builds a Gmail service from an OAuth client secret file and
// a previously stored token. Token refreshes happen in memory.
func NewGmailSender(ctx context.Context, credentialsFile, tokenFile string, metrics *observability.Metrics, logger zerolog.Logger) (*GmailSender, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(secret, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return NewGmailSenderFromService(srv, metrics, logger), nil
}

// NewGmailSenderFromService wraps an existing Gmail service.
func NewGmailSenderFromService(srv *gmail.Service, metrics *observability.Metrics, logger zerolog.Logger) *GmailSender {
	return &GmailSender{
		srv:     srv,
		now:     time.Now,
		metrics: metrics,
		logger:  logger.With().Str("component", "gmail_sender").Logger(),
	}
}

// Send implements Sender.
func (s *GmailSender) Send(ctx context.Context, msg Message) (string, error) {
	raw, err := msg.Bytes(s.now())
	if err != nil {
		return "", err
	}

	sent, err := s.srv.Users.Messages.Send(gmailUser, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		s.metrics.RecordEmailFailed()
		return "", fmt.Errorf("gmail send: %w", err)
	}

	s.metrics.RecordEmailSent()
	s.logger.Info().
		Str("message_id", sent.Id).
		Int("recipients", len(msg.To)).
		Msg("email sent")
	return sent.Id, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, path)
		}
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return tok, nil
}
