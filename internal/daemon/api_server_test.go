package daemon_test

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"ghoststation/internal/api"
	"ghoststation/internal/config"
	"ghoststation/internal/daemon"
	"ghoststation/internal/logging"
	"ghoststation/internal/testsupport"
)

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	d, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), logging.NewNop(), daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, cfg
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAPITriggerAcceptedAndListed(t *testing.T) {
	var dir string
	d, _ := newTestDaemon(t, testsupport.WithReplayDir(&dir))
	square := image.Rect(96, 96, 160, 160)
	testsupport.WriteFrame(t, filepath.Join(dir, "0001.jpg"), testsupport.Frame(640, 480, 40, &square, 255))

	w := serve(t, d.Handler(), http.MethodPost, "/api/trigger", `{"audioLevel":2.2,"magneticDelta":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("trigger status %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.CaptureResponse](t, w)
	if resp.Status != "accepted" || resp.Kind != "multi" || resp.Score != 3 || resp.EventID == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if w.Header().Get(api.RequestIDHeader) == "" {
		t.Fatal("expected request id header on response")
	}

	list := decodeBody[api.EventListResponse](t, serve(t, d.Handler(), http.MethodGet, "/api/events?limit=5", ""))
	if len(list.Events) != 1 || list.Events[0].ID != resp.EventID || list.Events[0].Modality != "video" {
		t.Fatalf("unexpected events %+v", list.Events)
	}

	one := serve(t, d.Handler(), http.MethodGet, "/api/events/"+strconv.FormatInt(resp.EventID, 10), "")
	if one.Code != http.StatusOK {
		t.Fatalf("event status %d", one.Code)
	}
	if got := decodeBody[api.EventResponse](t, one); got.Event.Score != 3 {
		t.Fatalf("unexpected event %+v", got.Event)
	}
}

func TestAPIRejectionIsNotAnError(t *testing.T) {
	d, _ := newTestDaemon(t)
	w := serve(t, d.Handler(), http.MethodPost, "/api/evp", `{"transcript":"hello","audioLevel":0.2,"magneticDelta":9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody[api.CaptureResponse](t, w)
	if resp.Status != "rejected" || resp.Reason == "" || resp.EventID != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	offline := decodeBody[api.CaptureResponse](t, serve(t, d.Handler(), http.MethodPost, "/api/trigger", `{"audioLevel":4}`))
	if offline.Status != "rejected" || offline.Reason != "camera offline" {
		t.Fatalf("unexpected offline response %+v", offline)
	}
}

func TestAPIMalformedRequests(t *testing.T) {
	d, _ := newTestDaemon(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"broken json", http.MethodPost, "/api/trigger", `{"audioLevel":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/trigger", `{"volume":3}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/evp", "", http.StatusBadRequest},
		{"negative audio", http.MethodPost, "/api/evp", `{"audioLevel":-2}`, http.StatusBadRequest},
		{"bad latitude", http.MethodPost, "/api/sessions/start", `{"latitude":123}`, http.StatusBadRequest},
		{"bad event id", http.MethodGet, "/api/events/abc", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/events?limit=many", "", http.StatusBadRequest},
		{"missing event", http.MethodGet, "/api/events/999", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, d.Handler(), tt.method, tt.path, tt.body)
			if w.Code != tt.code {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.code, w.Body.String())
			}
			if resp := decodeBody[api.ErrorResponse](t, w); resp.Status != "error" || resp.Error == "" {
				t.Fatalf("unexpected error body %+v", resp)
			}
		})
	}
}

func TestAPISessionLifecycle(t *testing.T) {
	d, _ := newTestDaemon(t)
	h := d.Handler()

	started := decodeBody[api.SessionResponse](t, serve(t, h, http.MethodPost, "/api/sessions/start", `{"title":"basement","location":"Ouro Preto"}`))
	if started.Status != "active" || started.Session == nil || started.Session.Title != "basement" {
		t.Fatalf("unexpected start response %+v", started)
	}

	second := decodeBody[api.SessionResponse](t, serve(t, h, http.MethodPost, "/api/sessions/start", ""))
	if second.Superseded == nil || second.Superseded.ID != started.Session.ID {
		t.Fatalf("expected first session to be superseded, got %+v", second)
	}

	status := decodeBody[api.StationStatus](t, serve(t, h, http.MethodGet, "/api/status", ""))
	if status.ActiveSession == nil || status.ActiveSession.ID != second.Session.ID || status.CameraConnected {
		t.Fatalf("unexpected status %+v", status)
	}

	closed := decodeBody[api.SessionResponse](t, serve(t, h, http.MethodPost, "/api/sessions/close", ""))
	if closed.Status != "closed" || closed.Session == nil || closed.Session.EndedAt == "" {
		t.Fatalf("unexpected close response %+v", closed)
	}
	w := serve(t, h, http.MethodPost, "/api/sessions/close", "")
	if w.Code != http.StatusOK || decodeBody[api.SessionResponse](t, w).Status != "no_session" {
		t.Fatalf("expected no_session, got %d %s", w.Code, w.Body.String())
	}

	list := decodeBody[api.SessionListResponse](t, serve(t, h, http.MethodGet, "/api/sessions", ""))
	if len(list.Sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(list.Sessions))
	}
}

func TestAPIRequiresToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "hunter2"
	d, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), logging.NewNop(), daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	w := serve(t, d.Handler(), http.MethodGet, "/api/status", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestAPIClientAgainstDaemon(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	client := api.NewClient(srv.URL, "", srv.Client())
	ctx := context.Background()
	resp, err := client.SubmitEVP(ctx, api.EVPRequest{Transcript: "leave", AudioLevel: 3.1, AnomalousFrequencies: []float64{19000}})
	if err != nil {
		t.Fatalf("SubmitEVP: %v", err)
	}
	if resp.Status != "accepted" {
		t.Fatalf("unexpected response %+v", resp)
	}
	event, err := client.Event(ctx, resp.EventID)
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if event.Modality != "audio" || event.Transcript != "leave" {
		t.Fatalf("unexpected event %+v", event)
	}
	if _, err := client.Event(ctx, resp.EventID+100); err == nil {
		t.Fatal("expected not found error")
	}
}
