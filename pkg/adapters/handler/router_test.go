package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/notify"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/tinybird"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/config"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/services"
)

const testSecret = "router-secret"

type recordingSink struct {
	mu     sync.Mutex
	events []domain.ClickEvent
}

func (s *recordingSink) Send(_ context.Context, event domain.ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) last() (domain.ClickEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return domain.ClickEvent{}, false
	}
	return s.events[len(s.events)-1], true
}

func newTestRouter(t *testing.T) (http.Handler, *recordingSink) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := sqlstore.New("file:handler_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sink := &recordingSink{}
	slugs := services.NewSlugService(repo, repo)
	cfg := &config.Config{JWTSecret: testSecret, AppURL: "https://bio.example"}

	router := NewRouter(cfg, Services{
		Links:     services.NewLinkService(repo, slugs, notify.NewBroker()),
		Slugs:     slugs,
		Clicks:    services.NewClickService(slugs, sink),
		Analytics: services.NewAnalyticsService(tinybird.NewPipeClient("", "", time.Second), services.AnalyticsPipes{}),
	})
	return router, sink
}

func doRequest(t *testing.T, h http.Handler, method, path, principal string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if principal != "" {
		req.AddCookie(&http.Cookie{Name: authCookie, Value: generateTestToken(t, testSecret, principal)})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func createLink(t *testing.T, h http.Handler, principal, title, url string) domain.Link {
	t.Helper()
	rr := doRequest(t, h, "POST", "/api/v1/links", principal, LinkRequest{Title: title, URL: url})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rr.Code, rr.Body.String())
	}
	var link domain.Link
	decodeBody(t, rr, &link)
	return link
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doRequest(t, router, "GET", "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLinkLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	a := createLink(t, router, "alice", "Blog", "blog.example")
	if a.URL != "https://blog.example" {
		t.Errorf("URL = %q, want https prefix", a.URL)
	}
	b := createLink(t, router, "alice", "Shop", "https://shop.example")

	rr := doRequest(t, router, "PUT", "/api/v1/links/order", "alice", ReorderRequest{LinkIDs: []string{b.ID, a.ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder: got %d %s", rr.Code, rr.Body.String())
	}
	var list struct {
		Data []domain.Link `json:"data"`
	}
	decodeBody(t, rr, &list)
	if len(list.Data) != 2 || list.Data[0].ID != b.ID || list.Data[1].ID != a.ID {
		t.Fatalf("order after reorder = %+v", list.Data)
	}

	rr = doRequest(t, router, "PUT", "/api/v1/links/"+a.ID, "alice", LinkRequest{Title: "Blog v2", URL: "https://blog.example/v2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, router, "GET", "/api/v1/links/count", "alice", nil)
	var count map[string]int64
	decodeBody(t, rr, &count)
	if count["count"] != 2 {
		t.Errorf("count = %d, want 2", count["count"])
	}

	rr = doRequest(t, router, "DELETE", "/api/v1/links/"+a.ID, "alice", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = doRequest(t, router, "GET", "/api/v1/links/"+a.ID, "alice", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get deleted: got %d, want 404", rr.Code)
	}
}

func TestLinkErrors(t *testing.T) {
	router, _ := newTestRouter(t)
	link := createLink(t, router, "alice", "Blog", "https://blog.example")

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"anonymous list", "GET", "/api/v1/links", "", nil, http.StatusUnauthorized},
		{"empty title", "POST", "/api/v1/links", "alice", LinkRequest{Title: "  ", URL: "https://x.example"}, http.StatusBadRequest},
		{"bad url", "POST", "/api/v1/links", "alice", LinkRequest{Title: "x", URL: "https://"}, http.StatusBadRequest},
		{"foreign update", "PUT", "/api/v1/links/" + link.ID, "mallory", LinkRequest{Title: "x", URL: "https://x.example"}, http.StatusForbidden},
		{"foreign delete", "DELETE", "/api/v1/links/" + link.ID, "mallory", nil, http.StatusForbidden},
		{"missing update", "PUT", "/api/v1/links/nope", "alice", LinkRequest{Title: "x", URL: "https://x.example"}, http.StatusNotFound},
		{"foreign analytics", "GET", "/api/v1/links/" + link.ID + "/analytics", "mallory", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, tt.method, tt.path, tt.user, tt.body)
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	// The link survives the foreign attempts.
	rr := doRequest(t, router, "GET", "/api/v1/links/"+link.ID, "alice", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("owner get: got %d", rr.Code)
	}
}

func TestAnalyticsUnconfigured(t *testing.T) {
	router, _ := newTestRouter(t)
	link := createLink(t, router, "alice", "Blog", "https://blog.example")

	rr := doRequest(t, router, "GET", "/api/v1/links/"+link.ID+"/analytics?days=7", "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var got domain.LinkAnalytics
	decodeBody(t, rr, &got)
	if got.State != domain.AnalyticsUnconfigured {
		t.Errorf("state = %q", got.State)
	}
	if got.Summary == nil || got.Summary.LinkID != link.ID {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestUsernameAndPublicPage(t *testing.T) {
	router, _ := newTestRouter(t)
	createLink(t, router, "alice", "Blog", "https://blog.example")

	rr := doRequest(t, router, "GET", "/u/nobody-here", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown slug: got %d", rr.Code)
	}

	rr = doRequest(t, router, "GET", "/api/v1/me/username", "alice", nil)
	var me map[string]string
	decodeBody(t, rr, &me)
	if me["slug"] != "alice" || me["url"] != "https://bio.example/u/alice" {
		t.Errorf("me before claim = %v", me)
	}

	rr = doRequest(t, router, "PUT", "/api/v1/me/username", "alice", setUsernameRequest{Username: "Alice_B"})
	var result domain.SetUsernameResult
	decodeBody(t, rr, &result)
	if !result.Success {
		t.Fatalf("claim failed: %+v", result)
	}

	rr = doRequest(t, router, "PUT", "/api/v1/me/username", "bob", setUsernameRequest{Username: "Alice_B"})
	result = domain.SetUsernameResult{}
	decodeBody(t, rr, &result)
	if result.Success || result.Error != "Username is unavailable" {
		t.Errorf("second claim = %+v", result)
	}

	rr = doRequest(t, router, "GET", "/api/v1/usernames/Alice_B/availability", "", nil)
	var avail domain.Availability
	decodeBody(t, rr, &avail)
	if avail.Available {
		t.Errorf("claimed name reported available")
	}

	rr = doRequest(t, router, "GET", "/u/Alice_B", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public page: got %d", rr.Code)
	}
	var page domain.PublicPage
	decodeBody(t, rr, &page)
	if page.PrincipalID != "alice" || len(page.Links) != 1 {
		t.Errorf("page = %+v", page)
	}

	rr = doRequest(t, router, "GET", "/api/v1/slugs/Alice_B", "", nil)
	var resolved map[string]string
	decodeBody(t, rr, &resolved)
	if resolved["principal_id"] != "alice" {
		t.Errorf("resolved = %v", resolved)
	}
}

func TestTrackClick(t *testing.T) {
	router, sink := newTestRouter(t)
	link := createLink(t, router, "alice", "Blog", "https://blog.example")

	tests := []struct {
		name    string
		body    string
		want    int
		wantErr string
	}{
		{"bad body", "{", http.StatusBadRequest, "Invalid request body"},
		{"missing link", `{"profileUsername":"alice"}`, http.StatusBadRequest, "linkId is required"},
		{"unknown profile", `{"profileUsername":"ghost","linkId":"x"}`, http.StatusBadRequest, "Profile not found."},
		{"ok", `{"profileUsername":"alice","linkId":"` + link.ID + `","linkTitle":"Blog","linkUrl":"https://blog.example"}`, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/track-click", strings.NewReader(tt.body))
			req.Header.Set("X-Vercel-IP-Country", "TH")
			req.Header.Set("X-Vercel-IP-City", "Chiang%20Mai")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			if tt.wantErr != "" {
				var body errorResponse
				decodeBody(t, rr, &body)
				if body.Error != tt.wantErr {
					t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
				}
			}
		})
	}

	ev, ok := sink.last()
	if !ok {
		t.Fatal("no event reached the sink")
	}
	if ev.ProfileUserID != "alice" || ev.Location.Country != "TH" || ev.Location.City != "Chiang Mai" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Referrer != "direct" {
		t.Errorf("Referrer = %q, want direct", ev.Referrer)
	}
}

func TestGeoFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    domain.Geo
	}{
		{"none", nil, domain.Geo{}},
		{
			"vercel",
			map[string]string{"X-Vercel-IP-Country": "US", "X-Vercel-IP-Country-Region": "CA", "X-Vercel-IP-City": "San%20Francisco"},
			domain.Geo{Country: "US", Region: "CA", City: "San Francisco"},
		},
		{
			"cloudflare fallback",
			map[string]string{"CF-IPCountry": "DE", "CF-IPLatitude": "52.52", "CF-IPLongitude": "13.40"},
			domain.Geo{Country: "DE", Latitude: "52.52", Longitude: "13.40"},
		},
		{
			"vercel wins",
			map[string]string{"X-Vercel-IP-Country": "US", "CF-IPCountry": "DE"},
			domain.Geo{Country: "US"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/track-click", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := geoFromRequest(req); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLinkEventsStream(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/v1/links/events", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, testSecret, "alice"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Headers arrive only after the subscription is in place.
	createLink(t, router, "alice", "Blog", "https://blog.example")

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "event: "+string(domain.LinkCreated) {
			return
		}
	}
	t.Fatalf("stream ended without a created event: %v", scanner.Err())
}
