package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/username/church-calendar/internal/calendar"
	"github.com/username/church-calendar/internal/hebrew"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type testSource struct{}

func (testSource) Observances(ctx context.Context, start, end time.Time) ([]hebrew.Observance, error) {
	return []hebrew.Observance{
		{Date: time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), Description: "Tu BiShvat", Categories: hebrew.CategoryFestival},
		{Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Description: "Rosh Chodesh Adar I", Categories: hebrew.CategoryRoshChodesh},
	}, nil
}

type testServer struct {
	reg    *Registry
	hub    *Hub
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	factory := func() *calendar.Engine {
		return calendar.NewEngine(calendar.Options{
			Location:  time.UTC,
			WeekStart: time.Sunday,
			Enricher:  calendar.NewEnricher(nil, testSource{}, time.Second, logger),
			Now:       func() time.Time { return testNow },
			Logger:    logger,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger)
	go hub.Run(ctx)

	reg := NewRegistry(factory, hub, logger)
	t.Cleanup(func() {
		reg.Close()
		cancel()
	})

	return &testServer{reg: reg, hub: hub, router: NewRouter(reg, hub, logger)}
}

func (ts *testServer) do(t *testing.T, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func (ts *testServer) session(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, "POST", "/api/sessions", "", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/sessions = %d", rec.Code)
	}
	return decode[map[string]string](t, rec)["session_id"]
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.session(t)

	rec := ts.do(t, "GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["sessions"] != float64(1) {
		t.Errorf("health = %v", body)
	}
}

func TestCalendarNavigation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)

	tests := []struct {
		method string
		path   string
		body   string
		title  string
	}{
		{"GET", "/api/calendar", "", "January 2024"},
		{"POST", "/api/calendar/next", "", "February 2024"},
		{"POST", "/api/calendar/previous", "", "January 2024"},
		{"POST", "/api/calendar/goto", `{"month":"2024-10"}`, "October 2024"},
		{"POST", "/api/calendar/today", "", "January 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, id, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get(SessionHeader); got != id {
				t.Errorf("session header = %q, want %q", got, id)
			}
			v := decode[calendar.View](t, rec)
			if v.Title != tt.title {
				t.Errorf("title = %q, want %q", v.Title, tt.title)
			}
		})
	}

	if rec := ts.do(t, "POST", "/api/calendar/sideways", id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown action status = %d, want 404", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/calendar/goto", id, `{"month":"October"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad goto status = %d, want 400", rec.Code)
	}
}

func TestUnknownSessionGetsNewOne(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/calendar", "does-not-exist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	id := rec.Header().Get(SessionHeader)
	if id == "" || id == "does-not-exist" {
		t.Errorf("session header = %q, want a new id", id)
	}
	if ts.reg.Len() != 1 {
		t.Errorf("sessions = %d, want 1", ts.reg.Len())
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ts := newTestServer(t)
	a, b := ts.session(t), ts.session(t)

	ts.do(t, "POST", "/api/calendar/next", a, "")
	ts.do(t, "POST", "/api/events", a, `{"title":"Only in A","date":"2024-01-14"}`)

	v := decode[calendar.View](t, ts.do(t, "GET", "/api/calendar", b, ""))
	if v.Title != "January 2024" {
		t.Errorf("session B title = %q, navigation leaked between sessions", v.Title)
	}
	events := decode[[]calendar.Event](t, ts.do(t, "GET", "/api/events", b, ""))
	if len(events) != 0 {
		t.Errorf("session B events = %v", events)
	}
}

func TestEventLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)

	rec := ts.do(t, "POST", "/api/events", id,
		`{"title":"Sunday Service","date":"2024-01-14","type":"Service","time":"9:00 AM"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[calendar.Event](t, rec)
	if created.ID == "" || created.Type != calendar.EventTypeService {
		t.Errorf("created = %+v", created)
	}

	day := decode[DayResponse](t, ts.do(t, "GET", "/api/days/2024-01-14", id, ""))
	if len(day.Events) != 1 || day.Events[0].Title != "Sunday Service" || !day.HasContent {
		t.Errorf("day = %+v", day)
	}

	upcoming := decode[[]calendar.Event](t, ts.do(t, "GET", "/api/events/upcoming?from=2024-01-01&days=30", id, ""))
	if len(upcoming) != 1 {
		t.Errorf("upcoming = %v", upcoming)
	}

	if rec := ts.do(t, "DELETE", "/api/events/"+created.ID, id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := ts.do(t, "DELETE", "/api/events/"+created.ID, id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("second delete status = %d, want no-op 204", rec.Code)
	}

	byDate := decode[[]calendar.Event](t, ts.do(t, "GET", "/api/events?date=2024-01-14", id, ""))
	if len(byDate) != 0 {
		t.Errorf("events after delete = %v", byDate)
	}
}

func TestEventValidation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)

	tests := []struct {
		name string
		body string
	}{
		{"Invalid JSON", `{"title":`},
		{"Missing title", `{"date":"2024-01-14"}`},
		{"Missing date", `{"title":"x"}`},
		{"Bad date", `{"title":"x","date":"someday"}`},
		{"Bad type", `{"title":"x","date":"2024-01-14","type":"Concert"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "POST", "/api/events", id, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			errResp := decode[ErrorResponse](t, rec)
			if errResp.Error == "" || errResp.Message == "" {
				t.Errorf("error envelope = %+v", errResp)
			}
		})
	}

	if rec := ts.do(t, "GET", "/api/events/upcoming?days=9999", id, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("upcoming days=9999 status = %d, want 400", rec.Code)
	}
}

func TestSelection(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)

	v := decode[calendar.View](t, ts.do(t, "PUT", "/api/calendar/selection", id, `{"date":"2024-01-18"}`))
	if v.Selected == nil || v.Selected.Day() != 18 {
		t.Fatalf("selected = %v", v.Selected)
	}

	// navigation keeps the selection
	v = decode[calendar.View](t, ts.do(t, "POST", "/api/calendar/next", id, ""))
	if v.Selected == nil {
		t.Error("selection cleared by navigation")
	}

	v = decode[calendar.View](t, ts.do(t, "DELETE", "/api/calendar/selection", id, ""))
	if v.Selected != nil {
		t.Errorf("selected after clear = %v", v.Selected)
	}
}

func TestDayAnnotation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)

	s, _ := ts.reg.Get(id)
	s.Engine.Wait()

	day := decode[DayResponse](t, ts.do(t, "GET", "/api/days/2024-01-25", id, ""))
	if day.Annotation == nil || !day.Annotation.IsHoliday || day.Annotation.HolidayName != "Tu BiShvat" {
		t.Errorf("annotation = %+v", day.Annotation)
	}
	if day.Annotation != nil && day.Annotation.BiblicalReference != "Deuteronomy 8:8" {
		t.Errorf("reference = %q", day.Annotation.BiblicalReference)
	}

	if rec := ts.do(t, "GET", "/api/days/not-a-date", id, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
}

func TestExportICS(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)
	ts.do(t, "POST", "/api/events", id, `{"title":"Sunday Service","date":"2024-01-14","type":"Service"}`)

	rec := ts.do(t, "GET", "/api/calendar.ics", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Sunday Service", "church-calendar-2024-01.ics"} {
		if !strings.Contains(body+rec.Header().Get("Content-Disposition"), want) {
			t.Errorf("export lacks %q", want)
		}
	}
}

// brokenWriter accepts headers but fails every body write
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header       { return w.header }
func (w *brokenWriter) WriteHeader(status int)    { w.status = status }
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestExportICS_WriteFailureLogged(t *testing.T) {
	ts := newTestServer(t)
	s := ts.reg.Create()

	core, logs := observer.New(zap.WarnLevel)
	handler := ExportICS(ts.reg, zap.New(core))

	req := httptest.NewRequest("GET", "/api/calendar.ics", nil)
	req.Header.Set(SessionHeader, s.ID)
	handler(&brokenWriter{header: http.Header{}}, req)

	entries := logs.FilterMessage("iCalendar export failed").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d export failures, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["session_id"]; got != s.ID {
		t.Errorf("session_id = %v, want %s", got, s.ID)
	}
}

func TestRegistryEvictIdle(t *testing.T) {
	ts := newTestServer(t)
	clock := testNow
	ts.reg.now = func() time.Time { return clock }

	old := ts.reg.Create()
	clock = clock.Add(90 * time.Minute)
	fresh := ts.reg.Create()
	clock = clock.Add(45 * time.Minute)

	if n := ts.reg.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("EvictIdle() = %d, want 1", n)
	}
	if _, ok := ts.reg.Get(old.ID); ok {
		t.Error("idle session still present")
	}
	if _, ok := ts.reg.Get(fresh.ID); !ok {
		t.Error("recent session evicted")
	}
	if n := ts.reg.RefreshAll(); n != 1 {
		t.Errorf("RefreshAll() = %d, want 1", n)
	}
}

func TestWebSocketCommitPush(t *testing.T) {
	ts := newTestServer(t)
	id := ts.session(t)
	s, _ := ts.reg.Get(id)
	s.Engine.Wait()

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?session=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ts.do(t, "POST", "/api/calendar/next", id, "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg struct {
		Type    MessageType                 `json:"type"`
		Payload AnnotationsCommittedPayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeAnnotationsCommitted || msg.Payload.SessionID != id || msg.Payload.Month != "2024-02" {
		t.Errorf("message = %+v", msg)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/ws?session=missing", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
