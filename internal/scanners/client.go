package scanners

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Client is the single shared HTTP client for every static scanner: one
// connection pool, a total per-invocation request budget, and a per-host
// token bucket. All blocking calls honor the caller's context.
type Client struct {
	http   *http.Client
	budget atomic.Int64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	uaIdx    atomic.Int64
}

// userAgents is the rotating pool sent to the platforms. Desktop browsers
// only; marketplaces serve materially different markup to mobile agents.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

const (
	requestTimeout = 25 * time.Second
	maxRedirects   = 3
	maxBodyBytes   = 4 << 20
	hostBurst      = 3 // concurrent-ish requests per platform host
)

// NewClient builds the shared client. requestBudget caps total outbound
// requests for the invocation; <=0 means a generous default.
func NewClient(requestBudget int) *Client {
	if requestBudget <= 0 {
		requestBudget = 2000
	}

	c := &Client{
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     60 * time.Second,
				Proxy:               http.ProxyFromEnvironment,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				// Stay within the same host family; a redirect off-site is
				// usually a block or consent interstitial.
				if baseDomain(req.URL.Host) != baseDomain(via[0].URL.Host) {
					return fmt.Errorf("cross-host redirect to %s", req.URL.Host)
				}
				return nil
			},
		},
		limiters: make(map[string]*rate.Limiter),
	}
	c.budget.Store(int64(requestBudget))
	return c
}

// baseDomain trims one subdomain level so www.ebay.com and ebay.com count
// as the same host family.
func baseDomain(host string) string {
	host = strings.ToLower(host)
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return host
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	key := baseDomain(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[key]
	if !ok {
		// ~1 request every 2s per host family, small burst.
		lim = rate.NewLimiter(rate.Every(2*time.Second), hostBurst)
		c.limiters[key] = lim
	}
	return lim
}

// HalveRate cuts a host's token refill in half. Used by the orchestrator's
// back-pressure when a platform's block rate crosses the threshold.
func (c *Client) HalveRate(host string) {
	lim := c.limiterFor(host)
	lim.SetLimit(lim.Limit() / 2)
	log.Printf("[Client] Back-pressure: halved request rate for %s", baseDomain(host))
}

func (c *Client) nextUserAgent() string {
	i := c.uaIdx.Add(1)
	return userAgents[int(i)%len(userAgents)]
}

// FetchResult is one GET outcome, already classified.
type FetchResult struct {
	Status int
	Body   string
	Err    error
	Kind   ErrKind // zero value "" means success

	retryAfter time.Duration // from Retry-After on 429/503
}

// Do sends a caller-built request through the shared pool: same hard
// per-request timeout, invocation budget and per-host token bucket as
// Get, without the browser headers. API scanners that carry their own
// auth headers use this instead of a bare http client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.budget.Add(-1) < 0 {
		return nil, errors.New("request budget exhausted")
	}
	if err := c.limiterFor(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// Get fetches a URL with the full retry discipline:
//   - hard per-request timeout; one retry with 1-3s jittered backoff
//   - 429/503: honor Retry-After, else exponential backoff, max 2 retries
//   - other 4xx/5xx: one retry then give up
//   - 404/410: classified success with empty body (end of results)
func (c *Client) Get(ctx context.Context, rawURL string) FetchResult {
	retries := 0
	maxRetries := 1

	for {
		if c.budget.Add(-1) < 0 {
			return FetchResult{Kind: ErrOther, Err: errors.New("request budget exhausted")}
		}

		u, err := url.Parse(rawURL)
		if err != nil {
			return FetchResult{Kind: ErrOther, Err: err}
		}
		if err := c.limiterFor(u.Host).Wait(ctx); err != nil {
			return FetchResult{Kind: ErrTimeout, Err: err}
		}

		res := c.doOnce(ctx, rawURL)
		switch {
		case res.Kind == "":
			return res
		case res.Kind == ErrTimeout && retries < maxRetries:
			retries++
			if !sleepCtx(ctx, jitter(1*time.Second, 3*time.Second)) {
				return res
			}
		case res.Kind == ErrBlocked && retries < 2:
			retries++
			delay := res.retryAfter
			if delay <= 0 {
				delay = jitter(2*time.Second, 5*time.Second) * time.Duration(retries)
			}
			if !sleepCtx(ctx, delay) {
				return res
			}
		case (res.Kind == ErrHTTP4xx || res.Kind == ErrHTTP5xx) && retries < maxRetries:
			retries++
			if !sleepCtx(ctx, jitter(1*time.Second, 2*time.Second)) {
				return res
			}
		default:
			return res
		}
	}
}

func (c *Client) doOnce(ctx context.Context, rawURL string) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{Kind: ErrOther, Err: err}
	}
	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return FetchResult{Kind: ErrTimeout, Err: err}
		}
		return FetchResult{Kind: ErrOther, Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return FetchResult{Status: resp.StatusCode, Kind: ErrOther, Err: readErr}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return FetchResult{Status: resp.StatusCode, Body: ""} // end of results
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return FetchResult{
			Status:     resp.StatusCode,
			Kind:       ErrBlocked,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 500:
		return FetchResult{Status: resp.StatusCode, Kind: ErrHTTP5xx, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return FetchResult{Status: resp.StatusCode, Kind: ErrHTTP4xx, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	return FetchResult{Status: resp.StatusCode, Body: string(body)}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 && secs <= 120 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepCtx sleeps unless the context dies first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func urlQueryEscape(s string) string {
	return url.QueryEscape(s)
}
