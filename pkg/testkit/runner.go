// Package testkit: runner.go
//
// Run() executes a single scenario against an http.Handler.
// RunDir() discovers every scenario in a directory and runs them as subtests,
// in file name order, so scenarios may build on each other's state.
package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	storefronthttp "github.com/shashiranjanraj/storefront/pkg/http"
)

// ─── Options ──────────────────────────────────────────────────────────────────

type runConfig struct {
	identities map[string]identity
	vars       map[string]string
}

type identity struct {
	id      string
	isAdmin bool
}

// Option configures a run.
type Option func(*runConfig)

// Identity registers a name scenarios can send requests as ("as": name). The
// runner signs a bearer token for it.
func Identity(name, userID string, isAdmin bool) Option {
	return func(c *runConfig) { c.identities[name] = identity{id: userID, isAdmin: isAdmin} }
}

// Vars supplies "{{key}}" substitutions for URLs and bodies.
func Vars(vars map[string]string) Option {
	return func(c *runConfig) {
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

func newRunConfig(opts []Option) *runConfig {
	c := &runConfig{identities: map[string]identity{}, vars: map[string]string{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *runConfig) expand(s string) string {
	for k, v := range c.vars {
		s = strings.ReplaceAll(s, "{{"+k+"}}", v)
	}
	return s
}

// ─── Public API ───────────────────────────────────────────────────────────────

// Run executes a single scenario from a JSON file against handler.
//
// Lifecycle per scenario:
//  1. Load the scenario JSON file.
//  2. Build the request body and expand {{vars}}.
//  3. Install the HTTP mock transport on pkg/http's client.
//  4. Arm function mocks (sendmail, …).
//  5. Fire the request, signed as the scenario's identity.
//  6. Assert status code and the expected response subset.
//  7. Verify all isMock=true steps fired.
//  8. Reset all mocks.
func Run(t *testing.T, handler http.Handler, scenarioPath string, opts ...Option) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", scenarioPath, err)
	}

	cfg := newRunConfig(opts)
	t.Run(s.Name, func(t *testing.T) {
		runScenario(t, handler, s, cfg)
	})
}

// RunDir runs every scenario in dir as a t.Run subtest. Files that fail to
// parse are reported as test failures.
func RunDir(t *testing.T, handler http.Handler, dir string, opts ...Option) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Error(err)
	}
	if len(scenarios) == 0 {
		t.Fatalf("testkit: no scenarios in %q", dir)
	}

	cfg := newRunConfig(opts)
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			runScenario(t, handler, s, cfg)
		})
	}
}

// ─── Internal execution ───────────────────────────────────────────────────────

func runScenario(t *testing.T, handler http.Handler, s *Scenario, cfg *runConfig) {
	t.Helper()

	// ── 1. Build request body ─────────────────────────────────────────────

	body := []byte(s.RequestBody)
	if p := s.RequestBodyPath(); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("[%s] read request file %q: %v", s.Name, p, err)
		}
		body = data
	}
	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = strings.NewReader(cfg.expand(string(body)))
	}

	// ── 2. Install HTTP mock transport ────────────────────────────────────

	mt := NewMockTransport(s)
	storefronthttp.DefaultClient.Transport = mt
	defer storefronthttp.ResetTransport()

	// ── 3. Arm function mocks ─────────────────────────────────────────────

	resetAllMockers()
	defer resetAllMockers()
	if err := ArmFuncMocks(s); err != nil {
		t.Fatalf("[%s] arm func mocks: %v", s.Name, err)
	}

	// ── 4. Fire the request ───────────────────────────────────────────────

	req := httptest.NewRequest(s.RequestMethod, cfg.expand(s.RequestURL), reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.RemoteAddr = "192.0.2.10:4000"

	if s.As != "" {
		who, ok := cfg.identities[s.As]
		if !ok {
			t.Fatalf("[%s] unknown identity %q", s.Name, s.As)
		}
		token, err := auth.GenerateToken(who.id, s.As+"@testkit.local", who.isAdmin)
		if err != nil {
			t.Fatalf("[%s] sign token: %v", s.Name, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, cfg.expand(v))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// ── 5. Assertions ─────────────────────────────────────────────────────

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())

	expected := []byte(s.Response)
	if p := s.ResponseBodyPath(); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, p, err)
		}
		expected = data
	}
	if len(expected) > 0 {
		AssertJSONContains(t, s, []byte(cfg.expand(string(expected))), rec.Body.Bytes())
	}

	AssertMocksAllCalled(t, s, mt)
}

// ─── Debug helpers ────────────────────────────────────────────────────────────

// DumpScenario writes a human-readable summary of the scenario to w.
func DumpScenario(w io.Writer, s *Scenario) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Scenario: %s\n", s.Name)
	fmt.Fprintf(&b, "  %s %s → %d\n", s.RequestMethod, s.RequestURL, s.ExpectedCode)
	if s.As != "" {
		fmt.Fprintf(&b, "  as: %s\n", s.As)
	}
	fmt.Fprintf(&b, "  isMockRequired: %v\n", s.IsMockRequired)
	for i, step := range s.NetUtilMockStep {
		fmt.Fprintf(&b, "  mockStep[%d]: method=%s  isMock=%v  matchUrl=%q\n",
			i, step.Method, step.IsMock, step.MatchURL)
	}
	_, _ = w.Write(b.Bytes())
}
