package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"weekcal/internal/calendar"
	"weekcal/internal/config"
	"weekcal/internal/engine"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

// Refresher triggers an immediate re-fetch of all sources.
type Refresher interface {
	RefreshOnce(ctx context.Context) (*engine.Submission, error)
}

// Server exposes the laid-out week over HTTP.
type Server struct {
	cfg       *config.Config
	processor *engine.Processor
	refresher Refresher
	now       func() time.Time
	router    chi.Router
}

type Option func(*Server)

// WithClock overrides time.Now, used to pick the default visible range.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithRefresher(r Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

func NewServer(cfg *config.Config, p *engine.Processor, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		processor: p,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.basicAuthEnabled() {
			r.Use(s.basicAuth)
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/days", s.handleDays)
			r.Get("/day", s.handleDay)
			r.Get("/hit", s.handleHit)
			r.Put("/fragments/{item}/{index}/bounds", s.handleSetBounds)
			r.Delete("/bounds", s.handleClearBounds)
			r.Post("/items/{item}/move", s.handleMove)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	s.router = r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
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

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
		)
	})
}

// basicAuthEnabled treats an empty username or password as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="weekcal", charset="UTF-8"`)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
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

func parseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// fragmentDTO is the JSON view of a packed fragment.
type fragmentDTO struct {
	ItemID   int64     `json:"item_id"`
	Index    int       `json:"index"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	AllDay   bool      `json:"all_day"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`

	Column           int     `json:"column"`
	ColumnCount      int     `json:"column_count"`
	RelativeStart    float64 `json:"relative_start"`
	RelativeWidth    float64 `json:"relative_width"`
	MinutesFromStart int     `json:"minutes_from_start"`

	StartsOnEarlierDay bool `json:"starts_on_earlier_day"`
	EndsOnLaterDay     bool `json:"ends_on_later_day"`

	Arrangement string      `json:"arrangement"`
	Draggable   bool        `json:"draggable"`
	Style       model.Style `json:"style"`
	Bounds      *model.Rect `json:"bounds,omitempty"`
	Payload     any         `json:"payload,omitempty"`
}

func toDTO(f *model.Fragment) fragmentDTO {
	return fragmentDTO{
		ItemID:             f.ItemID(),
		Index:              f.Index,
		Title:              f.Item.Title,
		Subtitle:           f.Item.Subtitle,
		AllDay:             f.IsAllDay(),
		Start:              f.Start,
		End:                f.End,
		Column:             f.Column,
		ColumnCount:        f.ColumnCount,
		RelativeStart:      f.RelativeStart,
		RelativeWidth:      f.RelativeWidth,
		MinutesFromStart:   f.MinutesFromStart,
		StartsOnEarlierDay: f.StartsOnEarlierDay(),
		EndsOnLaterDay:     f.EndsOnLaterDay(),
		Arrangement:        f.Item.Arrangement.String(),
		Draggable:          f.Item.Draggable,
		Style:              f.Item.Style,
		Bounds:             f.Bounds,
		Payload:            f.Item.Payload,
	}
}

func toDTOs(frags []*model.Fragment) []fragmentDTO {
	out := make([]fragmentDTO, 0, len(frags))
	for _, f := range frags {
		out = append(out, toDTO(f))
	}
	return out
}

// visibleRange resolves the days shown for a request. The start defaults to
// the first day of the current week.
func (s *Server) visibleRange(startParam string, n int) ([]calendar.Date, error) {
	var start calendar.Date
	if startParam == "" {
		today := calendar.DateOf(s.now().In(s.cfg.Location()))
		start = calendar.PreviousFirstDayOfWeek(today, s.cfg.FirstDayOfWeek())
	} else {
		d, err := calendar.ParseDate(startParam)
		if err != nil {
			return nil, err
		}
		start = d
	}

	minDate, maxDate := s.cfg.DateBounds()
	return calendar.FitRange(start, n, minDate, maxDate)
}
