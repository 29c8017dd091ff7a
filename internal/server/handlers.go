package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/username/church-calendar/internal/calendar"
	"github.com/username/church-calendar/internal/export"
	"github.com/username/church-calendar/pkg/dateutil"
	"go.uber.org/zap"
)

// SessionHeader carries the calendar session id
const SessionHeader = "X-Session-ID"

// maxUpcomingDays bounds the ?days= parameter of the upcoming endpoint
const maxUpcomingDays = 366

// EventRequest is the body of POST /api/events
type EventRequest struct {
	Title                string `json:"title"`
	Date                 string `json:"date"` // YYYY-MM-DD
	Time                 string `json:"time"`
	Location             string `json:"location"`
	Department           string `json:"department"`
	Description          string `json:"description"`
	Type                 string `json:"type"`
	IsRecurring          bool   `json:"isRecurring"`
	BiblicalSignificance string `json:"biblicalSignificance"`
}

// SelectionRequest is the body of PUT /api/calendar/selection
type SelectionRequest struct {
	Date string `json:"date"`
}

// GoToRequest is the body of POST /api/calendar/goto
type GoToRequest struct {
	Month string `json:"month"` // YYYY-MM
}

// DayResponse describes a single day
type DayResponse struct {
	Date       string               `json:"date"`
	InMonth    bool                 `json:"isInDisplayedMonth"`
	Today      bool                 `json:"isToday"`
	HasContent bool                 `json:"hasAnyContent"`
	Events     []calendar.Event     `json:"events"`
	Annotation *calendar.Annotation `json:"annotation,omitempty"`
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("session")
}

// resolveSession finds the request's session, opening a new one when needed
func resolveSession(w http.ResponseWriter, r *http.Request, reg *Registry) *Session {
	s, _ := reg.Resolve(sessionID(r))
	w.Header().Set(SessionHeader, s.ID)
	return s
}

func parseDay(w http.ResponseWriter, raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		WriteError(w, http.StatusBadRequest, ErrValidation, "Date is required")
		return time.Time{}, false
	}
	d, err := dateutil.ParseDate(raw, loc)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid date: "+raw)
		return time.Time{}, false
	}
	return d, true
}

func nonNil(events []calendar.Event) []calendar.Event {
	if events == nil {
		return []calendar.Event{}
	}
	return events
}

// HealthCheck reports liveness and open sessions
func HealthCheck(reg *Registry, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": reg.Len(),
			"clients":  hub.ClientCount(),
		})
	}
}

// CreateSession opens a new calendar session
func CreateSession(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := reg.Create()
		w.Header().Set(SessionHeader, s.ID)
		writeJSON(w, http.StatusCreated, map[string]string{"session_id": s.ID})
	}
}

// GetCalendar returns the merged month view
func GetCalendar(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		writeJSON(w, http.StatusOK, s.Engine.View())
	}
}

// Navigate moves the displayed month: next, previous, today or goto
func Navigate(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		engine := s.Engine

		switch mux.Vars(r)["action"] {
		case "next":
			engine.NextMonth()
		case "previous":
			engine.PreviousMonth()
		case "today":
			engine.GoToToday()
		case "goto":
			var req GoToRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid request body")
				return
			}
			month, err := dateutil.ParseMonth(req.Month, engine.Location())
			if err != nil {
				WriteError(w, http.StatusBadRequest, ErrValidation, "Month must be YYYY-MM")
				return
			}
			engine.GoTo(month)
		default:
			WriteError(w, http.StatusNotFound, ErrNotFound, "Unknown navigation action")
			return
		}

		writeJSON(w, http.StatusOK, engine.View())
	}
}

// SetSelection selects a day
func SetSelection(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)

		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid request body")
			return
		}
		d, ok := parseDay(w, req.Date, s.Engine.Location())
		if !ok {
			return
		}

		s.Engine.Select(d)
		writeJSON(w, http.StatusOK, s.Engine.View())
	}
}

// ClearSelection removes the selected day
func ClearSelection(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		s.Engine.ClearSelection()
		writeJSON(w, http.StatusOK, s.Engine.View())
	}
}

// GetDay returns events and annotation of one day
func GetDay(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		engine := s.Engine

		d, ok := parseDay(w, mux.Vars(r)["date"], engine.Location())
		if !ok {
			return
		}

		resp := DayResponse{
			Date:       dateutil.DayKey(d),
			InMonth:    engine.IsSameMonth(d),
			Today:      engine.IsToday(d),
			HasContent: engine.HasContent(d),
			Events:     nonNil(engine.EventsForDate(d)),
		}
		if ann, ok := engine.AnnotationForDate(d); ok {
			resp.Annotation = &ann
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ListEvents returns all events, or those of ?date=
func ListEvents(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)

		if raw := r.URL.Query().Get("date"); raw != "" {
			d, ok := parseDay(w, raw, s.Engine.Location())
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, nonNil(s.Engine.EventsForDate(d)))
			return
		}
		writeJSON(w, http.StatusOK, nonNil(s.Engine.Events()))
	}
}

// CreateEvent adds an event to the session
func CreateEvent(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)

		var req EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "Invalid request body")
			return
		}
		if req.Title == "" {
			WriteError(w, http.StatusBadRequest, ErrValidation, "Title is required")
			return
		}
		d, ok := parseDay(w, req.Date, s.Engine.Location())
		if !ok {
			return
		}

		evType := calendar.EventTypeSpecial
		if req.Type != "" {
			t, err := calendar.ParseEventType(req.Type)
			if err != nil {
				WriteError(w, http.StatusBadRequest, ErrValidation, err.Error())
				return
			}
			evType = t
		}

		stored := s.Engine.AddEvent(calendar.Event{
			Title:                req.Title,
			Date:                 d,
			Time:                 req.Time,
			Location:             req.Location,
			Department:           req.Department,
			Description:          req.Description,
			Type:                 evType,
			Recurring:            req.IsRecurring,
			BiblicalSignificance: req.BiblicalSignificance,
		})
		writeJSON(w, http.StatusCreated, stored)
	}
}

// DeleteEvent removes an event; unknown ids are a no-op
func DeleteEvent(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		s.Engine.RemoveEvent(mux.Vars(r)["id"])
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpcomingEvents returns events from ?from= (default today) within ?days=
func UpcomingEvents(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		engine := s.Engine
		q := r.URL.Query()

		if q.Get("from") == "" && q.Get("days") == "" {
			writeJSON(w, http.StatusOK, nonNil(engine.UpcomingFromToday()))
			return
		}

		from := dateutil.Today(engine.Location())
		if raw := q.Get("from"); raw != "" {
			d, ok := parseDay(w, raw, engine.Location())
			if !ok {
				return
			}
			from = d
		}

		days := calendar.DefaultUpcomingDays
		if raw := q.Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > maxUpcomingDays {
				WriteError(w, http.StatusBadRequest, ErrValidation, "days must be between 0 and 366")
				return
			}
			days = n
		}

		writeJSON(w, http.StatusOK, nonNil(engine.Upcoming(from, days)))
	}
}

// ExportICS writes the displayed month as an iCalendar file
func ExportICS(reg *Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := resolveSession(w, r, reg)
		v := s.Engine.View()

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition",
			`attachment; filename="church-calendar-`+v.Month.Format("2006-01")+`.ics"`)
		if err := export.WriteMonth(w, v, time.Now()); err != nil {
			// Headers are already sent, the client sees a truncated file
			logger.Warn("iCalendar export failed",
				zap.String("session_id", s.ID),
				zap.String("month", v.Month.Format("2006-01")),
				zap.Error(err))
		}
	}
}
