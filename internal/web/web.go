// Package web exposes the agenda and day layouts over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calcols/internal/config"
	"calcols/internal/dayview"
	"calcols/internal/geometry"
	appLog "calcols/internal/log"
	"calcols/internal/model"
)

// Agenda is the read side of *agenda.Agenda used by the server.
type Agenda interface {
	Occurrences() []model.Occurrence
}

// Server provides the HTTP API for occurrences and day layouts.
type Server struct {
	cfg    *config.Config
	agenda Agenda
	loc    *time.Location
	mux    *http.ServeMux

	// now is injectable for tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, agenda Agenda) *Server {
	s := &Server{
		cfg:    cfg,
		agenda: agenda,
		loc:    resolveLocationOrLocal(cfg.Timezone),
		mux:    http.NewServeMux(),
		now:    time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on cfg.Listen until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calcols", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func toDTO(o model.Occurrence) occurrenceDTO {
	return occurrenceDTO{
		SourceID:    o.SourceID,
		UID:         o.UID,
		InstanceKey: o.InstanceKey,
		Summary:     o.Summary,
		Description: o.Description,
		Location:    o.Location,
		AllDay:      o.AllDay,
		Start:       o.Start,
		End:         o.End,
	}
}

// handleEvents returns the agenda's occurrences within a window around today.
//
// GET /api/events?days=7&backfill=1
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	backfill := parseIntDefault(q.Get("backfill"), 1)
	if backfill < 0 {
		backfill = 0
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	rangeStart := today.AddDate(0, 0, -backfill)
	rangeEnd := today.AddDate(0, 0, days)

	dtos := []occurrenceDTO{}
	for _, o := range s.agenda.Occurrences() {
		if o.Hidden || o.Start.After(rangeEnd) || o.End.Before(rangeStart) {
			continue
		}
		dtos = append(dtos, toDTO(o))
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     dtos,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: s.loc.String(),
	})
}

// layoutResponse is the JSON response shape for /api/layout.
type layoutResponse struct {
	Date   string          `json:"date"`
	Mode   dayview.Mode    `json:"mode"`
	Slots  []slotDTO       `json:"slots"`
	AllDay []occurrenceDTO `json:"all_day"`
}

type slotDTO struct {
	occurrenceDTO
	Column  int     `json:"column"`
	Columns int     `json:"columns"`
	Offset  float64 `json:"offset"`
	Width   float64 `json:"width"`
	Top     float64 `json:"top,omitempty"`
	Bottom  float64 `json:"bottom,omitempty"`
}

// handleLayout lays out one day of the agenda.
//
// GET /api/layout?date=2025-03-14&mode=visual&height=960
//   - date:   YYYY-MM-DD in the display timezone (default today)
//   - mode:   time, day or visual (default from config)
//   - height: pixel height of the day for visual mode (default from config)
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date := s.now().In(s.loc)
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: want YYYY-MM-DD")
			return
		}
		date = d
	}

	modeName := q.Get("mode")
	if modeName == "" {
		modeName = s.cfg.Layout.Mode
	}
	mode, err := dayview.ParseMode(modeName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	height := s.cfg.Layout.ViewHeight
	if v := q.Get("height"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || h <= 0 {
			writeError(w, http.StatusBadRequest, "invalid height: want a positive number")
			return
		}
		height = h
	}

	policy, err := geometry.ParsePolicy(s.cfg.Layout.HeightPolicy)
	if err != nil {
		appLog.Warn("api layout: bad height policy in config; using time", "policy", s.cfg.Layout.HeightPolicy)
		policy = geometry.HeightByTime
	}

	view, err := dayview.Build(s.agenda.Occurrences(), dayview.Options{
		Date:           date,
		Mode:           mode,
		IncludeAllDay:  s.cfg.Layout.IncludeAllDay,
		Height:         height,
		MinEntryHeight: s.cfg.Layout.MinEntryHeight,
		Policy:         policy,
	})
	if err != nil {
		if errors.Is(err, geometry.ErrInvalidHeight) || errors.Is(err, dayview.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		appLog.Error("api layout: build failed", err, "date", date.Format(time.DateOnly), "mode", string(mode))
		writeError(w, http.StatusInternalServerError, "failed to build layout")
		return
	}

	resp := layoutResponse{
		Date:   view.Date.Format(time.DateOnly),
		Mode:   view.Mode,
		Slots:  make([]slotDTO, 0, len(view.Slots)),
		AllDay: make([]occurrenceDTO, 0, len(view.AllDay)),
	}
	for _, sl := range view.Slots {
		resp.Slots = append(resp.Slots, slotDTO{
			occurrenceDTO: toDTO(sl.Occurrence),
			Column:        sl.Column,
			Columns:       sl.Columns,
			Offset:        sl.Offset,
			Width:         sl.Width,
			Top:           sl.Top,
			Bottom:        sl.Bottom,
		})
	}
	for _, o := range view.AllDay {
		resp.AllDay = append(resp.AllDay, toDTO(o))
	}

	appLog.Debug("api layout",
		"date", resp.Date,
		"mode", string(mode),
		"slots", len(resp.Slots),
		"all_day", len(resp.AllDay),
	)
	writeJSON(w, http.StatusOK, resp)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
