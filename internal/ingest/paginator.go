package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultDelay     = 6100 * time.Millisecond
	DefaultThreshold = 9000

	maxPageBytes = 16 << 20
)

type PaginatorConfig struct {
	BaseURL string
	Query   string
	AppID   string
	AppKey  string
	// Delay is the minimum spacing between two page requests; <= 0 disables it.
	Delay time.Duration
	// Threshold stops the walk once the reported remaining count drops to it.
	Threshold int
	Client    *http.Client
	Log       zerolog.Logger
}

// Paginator walks the Edamam cursor links one page at a time.
type Paginator struct {
	client    *http.Client
	limiter   *rate.Limiter
	threshold int
	log       zerolog.Logger

	next      string
	started   bool
	remaining int
	pages     int
}

func NewPaginator(cfg PaginatorConfig) (*Paginator, error) {
	if strings.TrimSpace(cfg.AppKey) == "" {
		return nil, ErrMissingAppKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}

	start, err := StartURL(cfg.BaseURL, cfg.Query, cfg.AppID, cfg.AppKey)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &Paginator{
		client:    cfg.Client,
		limiter:   rate.NewLimiter(limit, 1),
		threshold: cfg.Threshold,
		log:       cfg.Log,
		next:      start,
	}, nil
}

// StartURL builds the first page request.
func StartURL(base, query, appID, appKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("type", "public")
	q.Set("q", query)
	q.Set("app_id", appID)
	q.Set("app_key", appKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Remaining is the reported record count not yet consumed.
func (p *Paginator) Remaining() int { return p.remaining }

// Pages is the number of pages fetched so far.
func (p *Paginator) Pages() int { return p.pages }

// Next fetches the following page. It blocks until the rate limiter allows
// the request and returns ErrDone once the budget or the cursor chain is
// exhausted.
func (p *Paginator) Next(ctx context.Context) (*Page, error) {
	if p.started && (p.next == "" || p.remaining <= p.threshold) {
		return nil, ErrDone
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	page, err := p.fetch(ctx, p.next)
	if err != nil {
		return nil, err
	}

	// an empty page that still links onward would never spend the budget
	if len(page.Hits) == 0 && page.Links.Next != nil {
		return nil, fmt.Errorf("malformed page: no hits but a next cursor")
	}

	if !p.started {
		if page.Count == nil {
			return nil, fmt.Errorf("malformed page: missing count")
		}
		p.remaining = *page.Count
		p.started = true
	}
	p.remaining -= len(page.Hits)
	p.pages++

	p.next = ""
	if page.Links.Next != nil {
		p.next = page.Links.Next.Href
	}
	return page, nil
}

func (p *Paginator) fetch(ctx context.Context, u string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	p.log.Debug().Int("page", p.pages+1).Msg("fetching page")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get page: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page Page
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}
