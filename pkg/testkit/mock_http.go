package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ─── MockTransport ────────────────────────────────────────────────────────────

// MockTransport implements http.RoundTripper for pkg/http's DefaultClient.
// Outgoing requests are matched against the scenario's "httprequest" steps
// and answered with synthetic responses.
type MockTransport struct {
	mu      sync.Mutex
	steps   []httpMockEntry
	require bool
	seen    []string
}

type httpMockEntry struct {
	step      MockStep
	callCount int
}

// NewMockTransport builds a MockTransport from the "httprequest" steps in s.
func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired}
	for _, step := range s.NetUtilMockStep {
		if step.Method == MethodHTTP {
			mt.steps = append(mt.steps, httpMockEntry{step: step})
		}
	}
	return mt
}

// RoundTrip answers req from the first matching step.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	url := req.URL.String()
	mt.seen = append(mt.seen, req.Method+" "+url)

	for i := range mt.steps {
		entry := &mt.steps[i]
		if !urlMatches(url, entry.step.MatchURL) {
			continue
		}
		entry.callCount++
		return buildHTTPResponse(req, entry.step.ReturnData)
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call to %s", url)
	}

	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Calls lists "METHOD url" for every intercepted request.
func (mt *MockTransport) Calls() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]string(nil), mt.seen...)
}

// AssertAllCalled returns one error per isMock=true step that never fired.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.step.IsMock && e.callCount == 0 {
			errs = append(errs, fmt.Errorf(
				"testkit: http mock (matchUrl=%q) was never called", e.step.MatchURL))
		}
	}
	return errs
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func urlMatches(candidate, pattern string) bool {
	return pattern == "" || strings.HasPrefix(candidate, pattern)
}

func buildHTTPResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}

	body, err := rd.payload()
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}

// payload returns the inline JSON, or the base64-decoded Body.
func (rd MockReturnData) payload() ([]byte, error) {
	if len(rd.JSON) > 0 {
		return rd.JSON, nil
	}
	if rd.Body == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(rd.Body)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
		if err != nil {
			return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
		}
	}
	return decoded, nil
}
