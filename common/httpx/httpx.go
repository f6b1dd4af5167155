package httpx

import (
	"crypto/tls"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
)

// Client wraps http.Client with retries, a host allowlist and a circuit
// breaker shared by all outbound REST calls.
type Client struct {
	hc      *http.Client
	opt     Options
	breaker *gobreaker.CircuitBreaker
}

type Options struct {
	Timeout            time.Duration
	Retry              int
	BackoffMin         time.Duration
	BackoffMax         time.Duration
	HostAllowlist      []string
	MaxConsecutiveFail int
	CircuitOpen        time.Duration
}

var (
	ErrCircuitOpen    = errors.New("circuit open")
	ErrHostNotAllowed = errors.New("host not allowed")
)

func NewFromConfig(cfg *config.HTTPClientConfig) *Client {
	// defaults
	to := 60 * time.Second
	if cfg != nil && cfg.TimeoutMs > 0 {
		to = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	retry := 1
	if cfg != nil && cfg.Retry > 0 {
		retry = cfg.Retry
	}
	bmin := 100 * time.Millisecond
	if cfg != nil && cfg.BackoffMinMs > 0 {
		bmin = time.Duration(cfg.BackoffMinMs) * time.Millisecond
	}
	bmax := 800 * time.Millisecond
	if cfg != nil && cfg.BackoffMaxMs > 0 {
		bmax = time.Duration(cfg.BackoffMaxMs) * time.Millisecond
	}
	mcf := 5
	if cfg != nil && cfg.MaxConsecutiveFailures > 0 {
		mcf = cfg.MaxConsecutiveFailures
	}
	cop := 5 * time.Second
	if cfg != nil && cfg.CircuitOpenSeconds > 0 {
		cop = time.Duration(cfg.CircuitOpenSeconds) * time.Second
	}

	opt := Options{
		Timeout:            to,
		Retry:              retry,
		BackoffMin:         bmin,
		BackoffMax:         bmax,
		MaxConsecutiveFail: mcf,
		CircuitOpen:        cop,
	}
	if cfg != nil {
		opt.HostAllowlist = cfg.HostAllowlist
	}

	transport := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: to}).DialContext,
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:    100,
		IdleConnTimeout: 30 * time.Second,
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "outbound",
		Timeout: cop,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(mcf)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("httpx: circuit %s %s -> %s", name, from.String(), to.String())
		},
	})
	return &Client{
		hc:      &http.Client{Timeout: to, Transport: transport},
		opt:     opt,
		breaker: breaker,
	}
}

func (c *Client) allowed(u string) bool {
	if len(c.opt.HostAllowlist) == 0 {
		return true
	}
	pu, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := pu.Hostname()
	for _, h := range c.opt.HostAllowlist {
		if matchHost(h, host) {
			return true
		}
	}
	return false
}

func matchHost(pattern, host string) bool {
	if pattern == "*" {
		return true
	}
	if strings.EqualFold(pattern, host) {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suf := strings.TrimPrefix(pattern, "*.")
		return strings.HasSuffix(host, "."+suf) || host == suf
	}
	return false
}

// Do executes the request with retries. 5xx responses and transport errors
// count as failures; 4xx responses are returned to the caller as-is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !c.allowed(req.URL.String()) {
		logger.Warnf("httpx: blocked outbound host: %s", req.URL.String())
		return nil, ErrHostNotAllowed
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp *http.Response
		var err error
		for i := 0; i <= c.opt.Retry; i++ {
			if i > 0 && req.GetBody != nil {
				if body, berr := req.GetBody(); berr == nil {
					req.Body = body
				}
			}
			resp, err = c.hc.Do(req)
			if err == nil && resp != nil && resp.StatusCode < 500 {
				return resp, nil
			}
			// close body on failure to reuse connection
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			logger.Warnf("httpx: request failed (try %d/%d) to %s: %v", i+1, c.opt.Retry+1, req.URL.String(), err)
			if i < c.opt.Retry {
				time.Sleep(backoffJitter(c.opt.BackoffMin, c.opt.BackoffMax))
			}
		}
		if err == nil {
			err = errors.New("upstream returned 5xx")
		}
		return nil, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

func backoffJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
