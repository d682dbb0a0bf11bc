// Package pdf fetches, renders and rasterizes PDF documents.
package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotPDF is returned when the downloaded body is not a PDF document.
	ErrNotPDF = errors.New("pdf: response is not a PDF")
	// ErrTooLarge is returned when the document exceeds the maximum size.
	ErrTooLarge = errors.New("pdf: file exceeds maximum size")
	// ErrDownloadFailed is returned for network and HTTP failures.
	ErrDownloadFailed = errors.New("pdf: download failed")
	// ErrPrivateNetwork is returned when the URL resolves to an internal address.
	ErrPrivateNetwork = errors.New("pdf: request to private network denied")
)

// magic is the header every PDF file starts with.
var magic = []byte("%PDF-")

// Document is a downloaded PDF.
type Document struct {
	Content     []byte
	SHA256      string
	SizeBytes   int64
	ContentType string
	SourceURL   string
}

// DownloaderConfig holds downloader configuration.
type DownloaderConfig struct {
	// Timeout is the HTTP request timeout. Default: 60 seconds.
	Timeout time.Duration
	// MaxSize is the maximum file size in bytes. Default: 100MB.
	MaxSize int64
	// UserAgent is the User-Agent header.
	UserAgent string
	// AllowPrivateNetworks disables the private address guard. Tests only.
	AllowPrivateNetworks bool
}

// Downloader fetches PDFs over HTTP.
type Downloader struct {
	client       *http.Client
	maxSize      int64
	userAgent    string
	allowPrivate bool
	resolve      func(ctx context.Context, host string) ([]string, error)
}

// DefaultUserAgent identifies the worker to document hosts.
const DefaultUserAgent = "Mozilla/5.0 (compatible; integrations-worker/1.0)"

// NewDownloader creates a Downloader, applying defaults for zero values.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100 * 1024 * 1024
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	d := &Downloader{
		maxSize:      cfg.MaxSize,
		userAgent:    cfg.UserAgent,
		allowPrivate: cfg.AllowPrivateNetworks,
		resolve:      net.DefaultResolver.LookupHost,
	}
	d.client = &http.Client{
		Timeout: cfg.Timeout,
		// Redirects are re-checked so an open redirect cannot reach an
		// internal address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: stopped after 10 redirects", ErrDownloadFailed)
			}
			return d.checkURL(req.Context(), req.URL)
		},
	}
	return d
}

// Download fetches the PDF at rawURL. The body must start with the PDF
// header; the Content-Type is recorded but not trusted, since many hosts
// serve documents as application/octet-stream.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrDownloadFailed, rawURL)
	}
	if err := d.checkURL(ctx, u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}
	if resp.ContentLength > d.maxSize {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", ErrTooLarge, resp.ContentLength, d.maxSize)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if !bytes.HasPrefix(content, magic) {
		return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotPDF, contentType)
	}

	sum := sha256.Sum256(content)
	return &Document{
		Content:     content,
		SHA256:      hex.EncodeToString(sum[:]),
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
		SourceURL:   u.String(),
	}, nil
}

func (d *Downloader) checkURL(ctx context.Context, u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrPrivateNetwork, u.Scheme)
	}
	if d.allowPrivate {
		return nil
	}

	host := u.Hostname()
	addrs, err := d.resolve(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", ErrDownloadFailed, host, err)
	}
	for _, a := range addrs {
		addr, err := netip.ParseAddr(a)
		if err != nil {
			continue
		}
		if isInternal(addr) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateNetwork, host, addr)
		}
	}
	return nil
}

// isInternal reports whether addr is loopback, private (RFC 1918, fc00::/7),
// link-local or unspecified.
func isInternal(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
