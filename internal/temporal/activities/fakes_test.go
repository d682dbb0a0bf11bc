package activities

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/mock"

	"github.com/helixir/integrations-worker/internal/browser"
	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/mail"
)

// fakePage is a scripted browser tab.
type fakePage struct {
	url      string
	title    string
	html     string
	texts    map[string]string
	pdf      []byte
	err      error
	visited  []string
	typed    []string
	blocked  []network.ResourceType
	waited   time.Duration
	closed   int
	navigate func(url string) error
}

var _ browser.Page = (*fakePage)(nil)

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.visited = append(p.visited, url)
	if p.navigate != nil {
		return p.navigate(url)
	}
	return p.err
}

func (p *fakePage) TypeAndSubmit(_ context.Context, selector, text string) error {
	p.typed = append(p.typed, selector+"="+text)
	return p.err
}

func (p *fakePage) URL(context.Context) (string, error)   { return p.url, p.err }
func (p *fakePage) Title(context.Context) (string, error) { return p.title, p.err }
func (p *fakePage) HTML(context.Context) (string, error)  { return p.html, p.err }

func (p *fakePage) Text(_ context.Context, selector string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	text, ok := p.texts[selector]
	if !ok {
		return "", errors.New("no node matches " + selector)
	}
	return text, nil
}

func (p *fakePage) PrintPDF(context.Context) ([]byte, error) { return p.pdf, p.err }

func (p *fakePage) BlockResources(_ context.Context, types ...network.ResourceType) error {
	p.blocked = append(p.blocked, types...)
	return nil
}

func (p *fakePage) WaitIdle(_ context.Context, d time.Duration) error {
	p.waited += d
	return nil
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

// fakeOpener hands out one page.
type fakeOpener struct {
	page *fakePage
	err  error
}

func (o *fakeOpener) Open(context.Context) (browser.Page, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.page, nil
}

// mockSessions implements SessionController.
type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Create(ctx context.Context) (domain.SessionHandle, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SessionHandle), args.Error(1)
}

func (m *mockSessions) Attach(ctx context.Context, handle domain.SessionHandle) (browser.Page, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(browser.Page), args.Error(1)
}

func (m *mockSessions) Release(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// mockExtractor implements ResultExtractor.
type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractSearchResults(ctx context.Context, pageText string, limit int) ([]map[string]any, error) {
	args := m.Called(ctx, pageText, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

// stageFaults fails the listed stages.
type stageFaults map[string]error

func (f stageFaults) Maybe(stage string) error { return f[stage] }

// mockUploader implements Uploader.
type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (*domain.PDFUpload, error) {
	args := m.Called(ctx, key, body, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PDFUpload), args.Error(1)
}

// uploadTo returns an upload result for key.
func uploadTo(key string, size int) *domain.PDFUpload {
	return &domain.PDFUpload{
		Bucket:    "documents",
		Key:       key,
		URL:       "https://documents.s3.amazonaws.com/" + key,
		SizeBytes: int64(size),
	}
}

// mockSummarizer implements Summarizer.
type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}

// mockSender implements mail.Sender.
type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}
