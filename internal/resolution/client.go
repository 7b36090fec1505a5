package resolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxRetries       = 3
	defaultRetryWait = 300 * time.Millisecond
)

// HTTPConfig configura um provedor HTTP
type HTTPConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	RetryWait     time.Duration
}

// statusError é uma resposta 4xx, que não é repetida
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

func isStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == code
}

// httpClient faz chamadas JSON com rate limit e backoff exponencial
type httpClient struct {
	http      *http.Client
	limiter   *rate.Limiter
	retryWait time.Duration
}

func newHTTPClient(cfg HTTPConfig) *httpClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	return &httpClient{
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		retryWait: cfg.RetryWait,
	}
}

func (c *httpClient) getJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		copyHeader(req, header)
		return req, nil
	}, out)
}

func (c *httpClient) postJSON(ctx context.Context, url string, header http.Header, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		copyHeader(req, header)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func copyHeader(req *http.Request, h http.Header) {
	req.Header.Set("Accept", "application/json")
	for k, vs := range h {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// do repete erros de rede, 429 e 5xx; 4xx volta na hora como statusError
func (c *httpClient) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			last = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			last = fmt.Errorf("http %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return &statusError{code: resp.StatusCode, body: string(body)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("request failed after %d retries: %w", maxRetries, last)
}

func (c *httpClient) sleep(ctx context.Context, attempt int) error {
	select {
	case <-time.After(c.retryWait << attempt):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
