// Package http is the fluent, retry-aware client used for outbound calls
// (CAPTCHA verification).
//
//	resp, err := http.Post(verifyURL).
//	    Form(url.Values{"secret": {secret}, "response": {token}}).
//	    Timeout(5 * time.Second).
//	    Retry(3, 200*time.Millisecond).
//	    WithContext(ctx).
//	    Send()
//
//	var out VerifyResponse
//	err = resp.JSON(&out)
//
// Transport errors and 5xx answers are retried with doubling backoff; 4xx
// answers are returned to the caller as is.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// UserAgent is sent on every request unless overridden with Header.
const UserAgent = "storefront/1.0"

const maxResponseBytes = 1 << 20

var defaultTransport gohttp.RoundTripper = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 5 * time.Second,
}

// DefaultClient carries every outgoing request. Tests swap its Transport:
//
//	http.DefaultClient.Transport = mock
//	defer http.ResetTransport()
var DefaultClient = &gohttp.Client{Transport: defaultTransport}

// ResetTransport puts the production transport back.
func ResetTransport() { DefaultClient.Transport = defaultTransport }

// StatusError is a non-2xx answer.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: %s %s answered %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// ------------------- Request -------------------

// Request accumulates options until Send.
type Request struct {
	ctx     context.Context
	method  string
	url     string
	header  gohttp.Header
	payload any
	form    url.Values

	timeout  time.Duration
	attempts int
	backoff  time.Duration
}

func Get(u string) *Request { return newRequest(gohttp.MethodGet, u) }
func Post(u string) *Request { return newRequest(gohttp.MethodPost, u) }
func Put(u string) *Request { return newRequest(gohttp.MethodPut, u) }

func newRequest(method, u string) *Request {
	h := gohttp.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", UserAgent)
	return &Request{
		ctx:      context.Background(),
		method:   method,
		url:      u,
		header:   h,
		timeout:  10 * time.Second,
		attempts: 1,
		backoff:  250 * time.Millisecond,
	}
}

func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// Body sends v as JSON. Strings and byte slices are sent verbatim.
func (r *Request) Body(v any) *Request {
	r.payload, r.form = v, nil
	return r
}

// Form sends v url-encoded.
func (r *Request) Form(v url.Values) *Request {
	r.form, r.payload = v, nil
	return r
}

// Timeout bounds each attempt.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry makes up to n attempts, waiting wait, 2*wait, 4*wait… in between.
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.attempts, r.backoff = n, wait
	return r
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// ------------------- Send -------------------

// Send performs the request. A 5xx left after the last attempt comes back as
// a *StatusError.
func (r *Request) Send() (*Response, error) {
	var lastErr error
	wait := r.backoff

	for attempt := 1; ; attempt++ {
		resp, err := r.once()
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= gohttp.StatusInternalServerError:
			lastErr = resp.Throw()
		default:
			return resp, nil
		}

		if attempt >= r.attempts {
			break
		}
		logger.WithCtx(r.ctx).Warn("http: retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "backoff", wait, "error", lastErr)
		select {
		case <-time.After(wait):
		case <-r.ctx.Done():
			return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, r.ctx.Err())
		}
		wait *= 2
	}

	return nil, fmt.Errorf("http: %s %s failed after %d attempt(s): %w", r.method, r.url, r.attempts, lastErr)
}

func (r *Request) once() (*Response, error) {
	body, contentType, err := r.encode()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	req.Header = r.header.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{method: r.method, url: r.url, StatusCode: res.StatusCode, Headers: res.Header, Raw: raw}, nil
}

func (r *Request) encode() (io.Reader, string, error) {
	switch v := r.payload.(type) {
	case nil:
		if r.form != nil {
			return bytes.NewBufferString(r.form.Encode()), "application/x-www-form-urlencoded", nil
		}
		return nil, "", nil
	case string:
		return bytes.NewBufferString(v), "application/json", nil
	case []byte:
		return bytes.NewReader(v), "application/json", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("http: encode body: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// ------------------- Response -------------------

type Response struct {
	method string
	url    string

	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

func (r *Response) JSON(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode %s: %w", r.url, err)
	}
	return nil
}

// Throw returns a *StatusError unless the status is 2xx.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	body := string(r.Raw)
	if len(body) > 256 {
		body = body[:256]
	}
	return &StatusError{Method: r.method, URL: r.url, Code: r.StatusCode, Body: body}
}
