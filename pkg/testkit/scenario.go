// Package testkit drives REST API tests from JSON scenario files.
//
// Each scenario describes:
//   - the request to fire (method, URL, inline body or body file, headers)
//   - who sends it ("as": a name registered with Identity)
//   - the expected status and, optionally, a JSON document the response
//     must contain
//   - mock steps for outgoing HTTP calls (pkg/http) and mail sends
//
// Scenario files live next to the *_test.go files:
//
//	testdata/api/
//	  01_list_products.json
//	  05_register.json
//	  05_register_req.json
//
// Example _test.go:
//
//	func TestAPI(t *testing.T) {
//	    handler := kernel.NewHTTPKernel(opts).Handler()
//	    testkit.RunDir(t, handler, "testdata/api",
//	        testkit.Identity("customer", buyerID, false),
//	        testkit.Vars(map[string]string{"product": productID}))
//	}
//
// "{{name}}" placeholders in the URL and body are replaced from Vars.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ─── Schema ───────────────────────────────────────────────────────────────────

// Scenario describes a single REST API test case loaded from a JSON file.
type Scenario struct {
	// Meta
	Name        string `json:"name"`
	Description string `json:"description"`

	// Request
	RequestMethod   string            `json:"requestMethod"`   // GET, POST, PUT, PATCH, DELETE
	RequestURL      string            `json:"requestUrl"`      // e.g. /api/cart
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline JSON body
	RequestFileName string            `json:"requestFileName"` // body file, relative to the scenario dir
	Headers         map[string]string `json:"headers"`
	As              string            `json:"as"` // identity name; empty means anonymous

	// Response assertions
	ExpectedCode     int             `json:"expectedCode"`
	Response         json.RawMessage `json:"response"`         // inline subset the body must contain
	ResponseFileName string          `json:"responseFileName"` // same, from a file

	// IsMockRequired fails outgoing HTTP calls that no step matches.
	IsMockRequired bool `json:"isMockRequired"`

	// Mock steps, matched in definition order.
	NetUtilMockStep []MockStep `json:"netUtilMockStep"`

	// resolved at load time, not in JSON
	dir string
}

// MockStep describes one intercepted side effect.
//
// Built-in methods:
//
//	"httprequest": outgoing pkg/http calls
//	"sendmail":    pkg/mail sends through MailMocker
//
// Any other string is dispatched to a registered FuncMocker.
type MockStep struct {
	Method string `json:"method"`

	// IsMock marks the step as expected: the run fails if it never fires.
	IsMock bool `json:"isMock"`

	// MatchURL prefix-matches the outgoing request URL ("httprequest" only).
	// Empty matches any request.
	MatchURL string `json:"matchUrl"`

	ReturnData MockReturnData `json:"returnData"`
}

// MockReturnData is the synthetic outcome of a mock step.
type MockReturnData struct {
	// StatusCode of the synthetic HTTP response; defaults to 200. For
	// function mocks a code >= 400 makes the call fail.
	StatusCode int `json:"statusCode"`

	// JSON is returned verbatim as the response body.
	JSON json.RawMessage `json:"json"`

	// Body is a base64-encoded body, used when JSON is empty.
	Body string `json:"body"`
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if len(s.RequestBody) > 0 && s.RequestFileName != "" {
		return fmt.Errorf("requestBody and requestFileName are exclusive")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	s.RequestMethod = strings.ToUpper(s.RequestMethod)
	for i, step := range s.NetUtilMockStep {
		if step.Method == "" {
			return fmt.Errorf("netUtilMockStep[%d].method is required", i)
		}
	}
	return nil
}

func (s *Scenario) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// RequestBodyPath returns the absolute path of the request body file, or "".
func (s *Scenario) RequestBodyPath() string { return s.resolve(s.RequestFileName) }

// ResponseBodyPath returns the absolute path of the expected response file, or "".
func (s *Scenario) ResponseBodyPath() string { return s.resolve(s.ResponseFileName) }

// LoadAllFromDir loads every *.json file in dir that parses as a scenario,
// in file name order. Body files (no "name") are skipped.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}
	sort.Strings(entries)

	var (
		scenarios []*Scenario
		errs      []error
	)
	for _, path := range entries {
		if !isScenarioFile(path) {
			continue
		}
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, errs
}

// isScenarioFile tells scenario files from body fixtures by their
// "requestUrl" key.
func isScenarioFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	var probe map[string]json.RawMessage
	if json.Unmarshal(data, &probe) != nil {
		// templated bodies are not valid JSON until expanded
		return strings.Contains(string(data), `"requestUrl"`)
	}
	_, ok := probe["requestUrl"]
	return ok
}
