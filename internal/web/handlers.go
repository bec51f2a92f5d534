package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"weekcal/internal/calendar"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

const maxDaysPerRequest = 62

type dayResponse struct {
	Date   string        `json:"date"`
	Timed  []fragmentDTO `json:"timed"`
	AllDay []fragmentDTO `json:"all_day,omitempty"`
}

type daysResponse struct {
	Days      []dayResponse `json:"days"`
	MinHour   int           `json:"min_hour"`
	MaxHour   int           `json:"max_hour"`
	Timezone  string        `json:"timezone"`
	WeekStart string        `json:"week_start"`
}

func (s *Server) day(d calendar.Date) dayResponse {
	q := s.processor.QueryByDay(d)
	resp := dayResponse{Date: d.String(), Timed: toDTOs(q.Timed)}
	if s.cfg.ShowAllDay {
		resp.AllDay = toDTOs(q.AllDay)
	}
	return resp
}

// handleDays returns the packed fragments of a range of days.
//
// GET /api/days?start=2025-06-09&days=7
//   - start: first day (default: start of the current week)
//   - days:  number of days (default: visible_days)
func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := parseIntDefault(q.Get("days"), s.cfg.VisibleDays)
	if err != nil || n <= 0 || n > maxDaysPerRequest {
		writeError(w, http.StatusBadRequest, "days must be between 1 and "+strconv.Itoa(maxDaysPerRequest))
		return
	}

	dates, err := s.visibleRange(q.Get("start"), n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := daysResponse{
		Days:      make([]dayResponse, 0, len(dates)),
		MinHour:   s.cfg.MinHour,
		MaxHour:   s.cfg.MaxHour,
		Timezone:  s.cfg.Location().String(),
		WeekStart: s.cfg.WeekStart,
	}
	for _, d := range dates {
		resp.Days = append(resp.Days, s.day(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDay returns the fragments of one day. GET /api/day?date=2025-06-10
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	d, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, s.day(d))
}

// handleHit finds the fragment drawn at a point. GET /api/hit?x=10&y=20
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	f, ok := s.processor.FindFragmentAt(x, y)
	if !ok {
		writeError(w, http.StatusNotFound, "no fragment at point")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(f))
}

// handleSetBounds records where a renderer drew a fragment.
//
// PUT /api/fragments/{item}/{index}/bounds {"left":..,"top":..,"right":..,"bottom":..}
func (s *Server) handleSetBounds(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fragment index")
		return
	}

	var rect model.Rect
	if err := json.NewDecoder(r.Body).Decode(&rect); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bounds")
		return
	}
	if rect.Right < rect.Left || rect.Bottom < rect.Top {
		writeError(w, http.StatusBadRequest, "bounds are inverted")
		return
	}

	if !s.processor.Cache().SetBounds(itemID, index, rect) {
		writeError(w, http.StatusNotFound, "fragment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearBounds forgets timed fragment bounds, e.g. after a scroll.
func (s *Server) handleClearBounds(w http.ResponseWriter, _ *http.Request) {
	s.processor.Cache().ClearTimedBounds()
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// handleMove applies a drag: the item gets new bounds and its fragments are
// rebuilt before the response is written.
//
// POST /api/items/{item}/move {"start":"...","end":"..."}
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Start.Before(req.End) {
		writeError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	item, ok := s.processor.Store().Get(itemID)
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.IsAllDay() || !item.Draggable {
		writeError(w, http.StatusConflict, "item is not draggable")
		return
	}

	if err := s.processor.UpdateDraggedItem(item.WithBounds(req.Start, req.End), s.cfg.LayoutConfig()); err != nil {
		appLog.Error("drag update failed", err, "item", itemID)
		writeError(w, http.StatusInternalServerError, "layout config is invalid")
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(s.processor.Cache().Fragments(itemID)))
}

type refreshResponse struct {
	Submission string `json:"submission"`
	Fragments  int    `json:"fragments"`
}

// handleRefresh re-fetches all sources and waits for the new layout.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}

	sub, err := s.refresher.RefreshOnce(r.Context())
	if err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	if err := sub.Wait(r.Context()); err != nil {
		writeError(w, http.StatusGatewayTimeout, "refresh did not finish")
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Submission: sub.ID.String(), Fragments: sub.Fragments()})
}
