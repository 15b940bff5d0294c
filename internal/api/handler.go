package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/domain"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/lifecycle"
	"github.com/ShivanshGhelani/CampusConnect-v2-sub001/internal/scheduler"
)

type Store interface {
	LoadAllEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	SaveEvent(ctx context.Context, event domain.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// Scheduler is the engine surface the handlers need: membership changes
// and the health view.
type Scheduler interface {
	AddEvent(ev domain.Event)
	UpdateEvent(eventID string, ev domain.Event)
	RemoveEvent(eventID string)
	Status() scheduler.Status
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	store  Store
	engine Scheduler
	db     HealthChecker
	clock  func() time.Time
}

func NewHandler(store Store, engine Scheduler) *Handler {
	return &Handler{store: store, engine: engine, clock: time.Now}
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/scheduler/status" && r.Method == http.MethodGet:
		h.schedulerStatus(w, r)

	case path == "/events" && r.Method == http.MethodPost:
		h.createEvent(w, r)

	case path == "/events" && r.Method == http.MethodGet:
		h.listEvents(w, r)

	case strings.HasPrefix(path, "/events/") && r.Method == http.MethodPut:
		h.updateEvent(w, r)

	case strings.HasPrefix(path, "/events/") && r.Method == http.MethodDelete:
		h.deleteEvent(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || h.db == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["database"] = "healthy"
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

func (h *Handler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()

	resp := SchedulerStatusResponse{
		Running:       st.Running,
		QueueLength:   st.QueueLength,
		EventsTracked: st.EventsTracked,
		LastRecovery: RecoveryResponse{
			Found:     st.LastRecovery.Found,
			Executed:  st.LastRecovery.Executed,
			Failed:    st.LastRecovery.Failed,
			Discarded: st.LastRecovery.Discarded,
		},
	}
	if st.NextTrigger != nil {
		resp.NextTrigger = &TriggerResponse{
			EventID:     st.NextTrigger.EventID,
			Type:        string(st.NextTrigger.Type),
			TriggerTime: st.NextTrigger.TriggerTime.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ts, err := parseEventRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetEvent(r.Context(), req.ID); err == nil {
		writeError(w, http.StatusConflict, "event already exists")
		return
	} else if err != sql.ErrNoRows {
		log.Printf("api: lookup event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	now := h.clock().UTC()
	ev := h.buildEvent(req.ID, req.Title, ts, now)
	ev.CreatedAt = now

	if err := h.store.SaveEvent(r.Context(), ev); err != nil {
		log.Printf("api: create event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	h.engine.AddEvent(ev)

	writeJSON(w, http.StatusCreated, eventResponse(ev))
}

func (h *Handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.ID = eventID

	ts, err := parseEventRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetEvent(r.Context(), eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: lookup event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}

	now := h.clock().UTC()
	ev := h.buildEvent(eventID, req.Title, ts, now)
	ev.CreatedAt = existing.CreatedAt

	if err := h.store.SaveEvent(r.Context(), ev); err != nil {
		log.Printf("api: update event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	h.engine.UpdateEvent(eventID, ev)

	writeJSON(w, http.StatusOK, eventResponse(ev))
}

// buildEvent assembles an event with its status computed from the
// timestamps. A changed schedule takes effect immediately rather than
// waiting for the next trigger.
func (h *Handler) buildEvent(id, title string, ts eventTimestamps, now time.Time) domain.Event {
	ev := domain.Event{
		ID:                id,
		Title:             title,
		RegistrationStart: ts.RegistrationStart,
		RegistrationEnd:   ts.RegistrationEnd,
		EventStart:        ts.EventStart,
		EventEnd:          ts.EventEnd,
		CertificateStart:  ts.CertificateStart,
		CertificateEnd:    ts.CertificateEnd,
		LastStatusUpdate:  now,
		UpdatedAt:         now,
	}
	pair := lifecycle.CalculateStatus(ev, now)
	ev.Status = pair.Main
	ev.SubStatus = pair.Sub
	return ev
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.store.LoadAllEvents(r.Context())
	if err != nil {
		log.Printf("api: list events error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Status is recomputed per event: between wakes the stored pair can
	// lag the calendar, and listings must not show the stale value.
	now := h.clock().UTC()
	resp := ListEventsResponse{Events: make([]EventResponse, len(events))}
	for i, ev := range events {
		pair := lifecycle.CalculateStatus(ev, now)
		ev.Status = pair.Main
		ev.SubStatus = pair.Sub
		resp.Events[i] = eventResponse(ev)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.store.DeleteEvent(r.Context(), eventID); err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		log.Printf("api: delete event error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	h.engine.RemoveEvent(eventID)

	w.WriteHeader(http.StatusNoContent)
}

// eventIDFromPath extracts the event ID from /events/{id}.
func eventIDFromPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "events" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
