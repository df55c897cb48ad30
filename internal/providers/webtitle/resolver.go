package webtitle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/resilience"
)

const (
	// MaxPageSize caps how much of a page is read looking for a title
	MaxPageSize = 2 * 1024 * 1024

	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 10 * time.Minute
)

var ErrNoTitle = errors.New("page has no title")

type cached struct {
	title   string
	expires time.Time
}

// Resolver fetches a page and extracts the title a browser would show for it
type Resolver struct {
	client    *retryablehttp.Client
	breaker   *resilience.Breaker
	sanitizer *bluemonday.Policy
	log       *logging.Logger
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cached
}

type Option func(*Resolver)

// WithBreaker guards fetches with b
func WithBreaker(b *resilience.Breaker) Option {
	return func(r *Resolver) { r.breaker = b }
}

func WithLogger(log *logging.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithCacheTTL sets how long resolved titles are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

func WithRetries(n int, minWait, maxWait time.Duration) Option {
	return func(r *Resolver) {
		r.client.RetryMax = n
		r.client.RetryWaitMin = minWait
		r.client.RetryWaitMax = maxWait
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a resolver
func New(opts ...Option) *Resolver {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = DefaultTimeout
	client.Logger = nil

	r := &Resolver{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		ttl:       DefaultCacheTTL,
		now:       time.Now,
		cache:     make(map[string]cached),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logging.OrNop(r.log).Named("webtitle")
	return r
}

// ResolveTitle returns the title of the page at url
func (r *Resolver) ResolveTitle(ctx context.Context, url string) (string, error) {
	if title, ok := r.lookup(url); ok {
		return title, nil
	}

	title, err := resilience.Call(ctx, r.breaker, func(ctx context.Context) (string, error) {
		return r.fetch(ctx, url)
	})
	if err != nil {
		r.log.Debug("Title lookup failed", zap.String("url", url), zap.Error(err))
		return "", err
	}
	r.store(url, title)
	return title, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return r.Extract(body, resp.Header.Get("Content-Type"))
}

// Extract pulls the title out of an HTML document. contentType may be empty.
func (r *Resolver) Extract(body []byte, contentType string) (string, error) {
	if !strings.Contains(strings.ToLower(contentType), "charset=") {
		contentType = "text/html; charset=" + DetectCharset(body)
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}
	root, err := htmlquery.Parse(reader)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	if title := r.clean(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	for _, expr := range []string{
		`//meta[@name="application-name"]`,
		`//meta[@property="og:title"]`,
		`//meta[@property="og:site_name"]`,
	} {
		node := htmlquery.FindOne(root, expr)
		if node == nil {
			continue
		}
		if title := r.clean(htmlquery.SelectAttr(node, "content")); title != "" {
			return title, nil
		}
	}
	return "", ErrNoTitle
}

func (r *Resolver) clean(s string) string {
	s = html.UnescapeString(r.sanitizer.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func (r *Resolver) lookup(url string) (string, bool) {
	if r.ttl <= 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cache[url]
	if !ok || r.now().After(c.expires) {
		delete(r.cache, url)
		return "", false
	}
	return c.title, true
}

func (r *Resolver) store(url, title string) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	r.cache[url] = cached{title: title, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
}

// DetectCharset guesses the encoding of an HTML body
func DetectCharset(data []byte) string {
	result, err := chardet.NewHtmlDetector().DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}
