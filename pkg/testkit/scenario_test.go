package testkit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	storefronthttp "github.com/shashiranjanraj/storefront/pkg/http"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/testkit"
)

// selfHandler exercises every testkit feature:
//
//	GET  /whoami          echoes the bearer identity
//	POST /echo/{anything} echoes the JSON body plus the path
//	POST /notify          calls an upstream over pkg/http, then mails
func selfHandler(mailer mail.Mailer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if len(token) < 8 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		c, err := auth.ValidateToken(token[7:])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": c.ID, "isAdmin": c.IsAdmin})
	})
	mux.HandleFunc("POST /echo/{rest}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"path": r.PathValue("rest"), "body": body})
	})
	mux.HandleFunc("POST /notify", func(w http.ResponseWriter, r *http.Request) {
		resp, err := storefronthttp.Get("https://upstream.test/flag").WithContext(r.Context()).Send()
		if err != nil || !resp.OK() {
			writeJSON(w, http.StatusBadGateway, map[string]any{"message": "upstream"})
			return
		}
		var flag struct {
			Enabled bool `json:"enabled"`
		}
		_ = resp.JSON(&flag)
		if err := mailer.Send(r.Context(), mail.Message{To: []string{"a@b.c"}, Subject: "hi"}); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": "mail"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"enabled": flag.Enabled})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRunDirSelf(t *testing.T) {
	mailer := testkit.NewMailMocker()
	testkit.RegisterMocker(testkit.MethodMail, mailer)

	testkit.RunDir(t, selfHandler(mailer), "testdata/self",
		testkit.Identity("buyer", "u-1", false),
		testkit.Identity("boss", "u-2", true),
		testkit.Vars(map[string]string{"slug": "tee", "qty": "3"}),
	)
}

func TestRunSingleScenario(t *testing.T) {
	mailer := testkit.NewMailMocker()
	testkit.RegisterMocker(testkit.MethodMail, mailer)

	testkit.Run(t, selfHandler(mailer), "testdata/self/03_notify.json")
	// the runner resets mockers after each scenario
	assert.Zero(t, mailer.WasCalled())
}

func TestLoadScenarioValidation(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err := testkit.LoadScenario(write("a.json", `{"requestUrl":"/x","expectedCode":200}`))
	assert.ErrorContains(t, err, "name is required")

	_, err = testkit.LoadScenario(write("b.json", `{"name":"b","requestUrl":"/x"}`))
	assert.ErrorContains(t, err, "expectedCode")

	_, err = testkit.LoadScenario(write("c.json",
		`{"name":"c","requestUrl":"/x","expectedCode":200,"requestBody":{},"requestFileName":"c_req.json"}`))
	assert.ErrorContains(t, err, "exclusive")

	s, err := testkit.LoadScenario(write("d.json", `{"name":"d","requestUrl":"/x","expectedCode":200,"requestFileName":"d_req.json"}`))
	require.NoError(t, err)
	assert.Equal(t, "GET", s.RequestMethod)
	assert.Equal(t, filepath.Join(dir, "d_req.json"), s.RequestBodyPath())
}

func TestLoadAllSkipsBodyFixtures(t *testing.T) {
	scenarios, errs := testkit.LoadAllFromDir("testdata/self")
	assert.Empty(t, errs)
	require.Len(t, scenarios, 5)
	assert.Equal(t, "whoami as buyer", scenarios[0].Name)
}

func TestDiffJSONIsSubset(t *testing.T) {
	var exp, act any
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"list":[{"x":"y"}]}`), &exp))
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":2,"list":[{"x":"y","z":0},{"x":"w"}]}`), &act))
	assert.Empty(t, testkit.DiffJSON("", exp, act))

	require.NoError(t, json.Unmarshal([]byte(`{"a":2,"c":true}`), &exp))
	diffs := testkit.DiffJSON("", exp, act)
	assert.Len(t, diffs, 2)
}

func TestMockTransportRequiresMatch(t *testing.T) {
	s := &testkit.Scenario{
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{
			{Method: testkit.MethodHTTP, IsMock: true, MatchURL: "https://a.test/"},
		},
	}
	mt := testkit.NewMockTransport(s)

	req := httptest.NewRequest(http.MethodGet, "https://b.test/", nil)
	_, err := mt.RoundTrip(req)
	assert.Error(t, err)
	assert.Len(t, mt.AssertAllCalled(), 1)

	req = httptest.NewRequest(http.MethodGet, "https://a.test/ping", nil)
	resp, err := mt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, mt.AssertAllCalled())
	assert.Equal(t, []string{"GET https://b.test/", "GET https://a.test/ping"}, mt.Calls())
}
