package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"retail-sim/internal/adapters/web"
	"retail-sim/internal/app"
	"retail-sim/internal/core"
	"retail-sim/internal/lock"
	"retail-sim/internal/logger"
	"retail-sim/internal/store"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := app.NewAppService(app.Deps{
		Engine: core.NewEngine(core.DefaultCatalog()),
		Store:  store.NewMemoryStore(),
		Locks:  lock.NewLocalLocker(),
		Log:    logger.Discard(),
	})
	srv := httptest.NewServer(web.NewHandler(svc, web.Options{AllowedOrigins: []string{"http://localhost:3000"}, MaxBodyBytes: 4096}, logger.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/sessions", `{"player_name":"Ada"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var res app.SessionResult
	decode(t, resp, &res)
	return res.Session.ID
}

const design = `{"products":{
	"jacket":{"retail_price":"120","fabric":"wool"},
	"trousers":{"retail_price":"70","fabric":"denim"},
	"tshirt":{"retail_price":"25","fabric":"cotton"}}}`

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/api/sessions/" + id

	resp := do(t, http.MethodPost, base+"/commit", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("week 1 commit status = %d", resp.StatusCode)
	}

	// week 2 is blocked until price and fabric are set
	resp = do(t, http.MethodPost, base+"/commit", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("blocked commit status = %d", resp.StatusCode)
	}
	var blocked core.CommitOutcome
	decode(t, resp, &blocked)
	if blocked.Committed || len(blocked.Validation.Errors) == 0 {
		t.Errorf("blocked outcome = %+v", blocked)
	}

	resp = do(t, http.MethodPut, base+"/decisions", design)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decisions status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, base+"/validate", "")
	var dry core.CommitOutcome
	decode(t, resp, &dry)
	if !dry.Validation.CanCommit {
		t.Fatalf("validate = %+v", dry.Validation)
	}
	if resp := do(t, http.MethodPost, base+"/commit", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, base+"/weeks/1", "")
	var w1 core.WeeklyState
	decode(t, resp, &w1)
	if !w1.IsCommitted {
		t.Error("week 1 not committed")
	}

	resp = do(t, http.MethodGet, base+"/weeks", "")
	var list app.WeekListResult
	decode(t, resp, &list)
	if len(list.Weeks) != 3 {
		t.Errorf("weeks = %d, want 3", len(list.Weeks))
	}

	resp = do(t, http.MethodGet, base+"/report.html", "")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("report content type = %q", ct)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/api/sessions/"

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown session", http.MethodGet, "missing", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown week", http.MethodGet, id + "/weeks/9", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad week", http.MethodGet, id + "/weeks/x", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", http.MethodPut, id + "/decisions", `{"bogus":1}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"rejected decisions", http.MethodPut, id + "/decisions", `{"discounts":{"jacket":"1.5"}}`, http.StatusUnprocessableEntity, "DECISIONS_REJECTED"},
		{"no advisor", http.MethodPost, id + "/advice", `{"brief":"x"}`, http.StatusServiceUnavailable, "ADVISOR_UNAVAILABLE"},
		{"too large", http.MethodPut, id + "/decisions", `{"cancel_batches":["` + strings.Repeat("x", 5000) + `"]}`, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, base+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Code      string       `json:"code"`
				RequestID string       `json:"request_id"`
				Issues    []core.Issue `json:"issues"`
			}
			decode(t, resp, &body)
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if body.RequestID == "" {
				t.Error("missing request id")
			}
			if tt.code == "DECISIONS_REJECTED" && len(body.Issues) == 0 {
				t.Error("rejection carries no issues")
			}
		})
	}
}

func TestDemandPreview(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/api/demand/preview",
		`{"product":"jacket","week":8,"rrp":"120","discount":"0","marketing_spend":"216667","has_print":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res app.DemandPreviewResult
	decode(t, resp, &res)
	if res.Breakdown.Units <= 0 {
		t.Errorf("units = %d", res.Breakdown.Units)
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/demand/preview", `{"product":"hat","week":8,"rrp":"10"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown product status = %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	srv := newServer(t)
	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "http://localhost:3000"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/health", nil)
		req.Header.Set("Origin", tt.origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("preflight status = %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: allow = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestSchemaEndpoint(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/schema/decisions", "")
	var schema map[string]any
	decode(t, resp, &schema)
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["production"]; !ok {
		t.Errorf("schema properties = %v", props)
	}
}
