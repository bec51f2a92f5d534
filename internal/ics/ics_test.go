package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"weekcal/internal/model"
)

func calendarBody(events ...string) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//weekcal//test//EN\r\n")
	for _, ev := range events {
		b.WriteString(strings.ReplaceAll(strings.TrimSpace(ev), "\n", "\r\n"))
		b.WriteString("\r\n")
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

const meeting = `BEGIN:VEVENT
UID:meeting-1
DTSTAMP:20250601T000000Z
DTSTART:20250610T090000Z
DTEND:20250610T100000Z
SUMMARY:Team meeting
LOCATION:Room 4
END:VEVENT`

const holiday = `BEGIN:VEVENT
UID:holiday-1
DTSTAMP:20250601T000000Z
DTSTART;VALUE=DATE:20250611
DTEND;VALUE=DATE:20250614
SUMMARY:Holiday trip
END:VEVENT`

const standup = `BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250601T000000Z
DTSTART:20250609T080000Z
DTEND:20250609T081500Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20250611T080000Z
SUMMARY:Standup
END:VEVENT`

const standupMoved = `BEGIN:VEVENT
UID:standup-1
DTSTAMP:20250601T000000Z
RECURRENCE-ID:20250612T080000Z
DTSTART:20250612T090000Z
DTEND:20250612T091500Z
SUMMARY:Standup (moved)
END:VEVENT`

var week = ExpandConfig{
	DisplayLocation: time.UTC,
	RangeStart:      time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
	RangeEnd:        time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
}

func TestParseICS(t *testing.T) {
	src := Source{ID: "work"}
	events, err := ParseICS(src, calendarBody(meeting, holiday))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}

	m := events[0]
	if m.UID != "meeting-1" || m.Summary != "Team meeting" || m.Location != "Room 4" || m.AllDay {
		t.Errorf("meeting = %+v", m)
	}
	if !m.Start.Equal(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("meeting start = %v", m.Start)
	}

	h := events[1]
	if !h.AllDay {
		t.Error("holiday not detected as all-day")
	}
	if days := h.End.Sub(h.Start).Hours() / 24; days != 3 {
		t.Errorf("holiday spans %v days, want 3", days)
	}
}

func TestParseICSSkipsEventsWithoutUID(t *testing.T) {
	broken := strings.Replace(meeting, "UID:meeting-1\n", "", 1)
	events, err := ParseICS(Source{ID: "x"}, calendarBody(broken, holiday))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(events) != 1 || events[0].UID != "holiday-1" {
		t.Errorf("events = %+v, want only holiday", events)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS(Source{}, nil); err == nil {
		t.Error("ParseICS(nil) error = nil")
	}
}

func TestExpandRecurrence(t *testing.T) {
	events, err := ParseICS(Source{ID: "work"}, calendarBody(standup, standupMoved))
	if err != nil {
		t.Fatal(err)
	}

	res, err := ExpandOccurrences(events, week)
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	var got []string
	for _, occ := range res.Occurrences {
		got = append(got, occ.Start.Format("01-02 15:04")+" "+occ.Summary)
	}
	want := []string{
		"06-09 08:00 Standup",
		"06-10 08:00 Standup",
		"06-12 09:00 Standup (moved)",
		"06-13 08:00 Standup",
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("occurrences (-want +got):\n%s", d)
	}
}

func TestExpandRangeFilter(t *testing.T) {
	events, _ := ParseICS(Source{ID: "work"}, calendarBody(meeting))
	cfg := week
	cfg.RangeStart = time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	res, err := ExpandOccurrences(events, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 0 {
		t.Errorf("occurrences = %v, want none", res.Occurrences)
	}

	cfg.RangeEnd = cfg.RangeStart.Add(-time.Hour)
	if _, err := ExpandOccurrences(events, cfg); err == nil {
		t.Error("inverted range error = nil")
	}
}

func TestExpandCap(t *testing.T) {
	events, _ := ParseICS(Source{ID: "work"}, calendarBody(standup))
	cfg := week
	cfg.MaxOccurrencesPerEvent = 2

	res, err := ExpandOccurrences(events, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 2 {
		t.Errorf("len = %d, want 2", len(res.Occurrences))
	}
	if d := cmp.Diff([]string{"standup-1"}, res.TruncatedEvents); d != "" {
		t.Errorf("TruncatedEvents (-want +got):\n%s", d)
	}
}

func TestToItems(t *testing.T) {
	events, _ := ParseICS(Source{ID: "work"}, calendarBody(meeting, holiday))
	res, _ := ExpandOccurrences(events, week)

	cfg := DefaultItemConfig()
	cfg.HighlightKeywords = []string{"holiday"}
	items := ToItems(res.Occurrences, cfg)

	if len(items) != 4 {
		t.Fatalf("len(items) = %d, want 1 timed + 3 all-day", len(items))
	}
	if items[0].IsAllDay() || items[0].Title != "Team meeting" || !items[0].Draggable {
		t.Errorf("timed item = %+v", items[0])
	}

	seen := map[int64]bool{}
	for i, it := range items[1:] {
		if !it.IsAllDay() {
			t.Errorf("item %d is not all-day", i+1)
		}
		if want := 11 + i; it.Start().Day() != want {
			t.Errorf("all-day item %d on day %d, want %d", i, it.Start().Day(), want)
		}
		if it.Style.TextColor != cfg.HighlightColor {
			t.Errorf("all-day item %d not highlighted", i)
		}
		if seen[it.ID] {
			t.Errorf("duplicate id %d", it.ID)
		}
		seen[it.ID] = true
	}

	again := ToItems(res.Occurrences, cfg)
	for i := range items {
		if !items[i].Equal(again[i]) {
			t.Errorf("item %d not stable across conversions", i)
		}
		if items[i].ID < 0 {
			t.Errorf("item %d id %d is negative", i, items[i].ID)
		}
	}
}

func TestToItemsBackgroundSource(t *testing.T) {
	src := Source{ID: "blocked", Background: true}
	events, _ := ParseICS(src, calendarBody(meeting))
	res, _ := ExpandOccurrences(events, week)

	items := ToItems(res.Occurrences, DefaultItemConfig())
	if len(items) != 1 {
		t.Fatalf("len = %d", len(items))
	}
	it := items[0]
	if it.Arrangement != model.Background || it.Draggable {
		t.Errorf("item = %+v, want non-draggable background", it)
	}
	if it.Style.BackgroundColor != DefaultItemConfig().BackgroundColor {
		t.Errorf("background color = %q", it.Style.BackgroundColor)
	}
	if p, ok := it.Payload.(Payload); !ok || p.SourceID != "blocked" {
		t.Errorf("payload = %#v", it.Payload)
	}
}

func TestFetchOneUsesETagCache(t *testing.T) {
	body := calendarBody(meeting)
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "work", URL: srv.URL + "/cal.ics"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch error = %v", err)
	}
	if first.FromCache {
		t.Error("first fetch served from cache")
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch error = %v", err)
	}
	if !second.FromCache || string(second.Body) != string(body) {
		t.Errorf("second fetch FromCache = %v, body len %d", second.FromCache, len(second.Body))
	}
	if notModified.Load() != 1 {
		t.Errorf("conditional requests = %d, want 1", notModified.Load())
	}
}

func TestFetchOneFallsBackToCache(t *testing.T) {
	body := calendarBody(meeting)
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "work", URL: srv.URL}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("fetch with cached body error = %v", err)
	}
	if !res.FromCache {
		t.Error("expected cached body after server error")
	}

	if _, err := NewFetcher(t.TempDir()).FetchOne(context.Background(), src); err == nil {
		t.Error("fetch without cache succeeded on server error")
	}
}

func TestFetchAllKeepsOrderAndReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write(calendarBody(meeting))
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "local.ics")
	if err := os.WriteFile(local, calendarBody(holiday), 0o600); err != nil {
		t.Fatal(err)
	}

	sources := []Source{
		{ID: "a", URL: srv.URL + "/a"},
		{ID: "missing", URL: srv.URL + "/missing"},
		{ID: "local", Path: local},
		{ID: "b", URL: srv.URL + "/b"},
	}
	res, err := NewFetcher(filepath.Join(dir, "cache"), WithConcurrency(2)).FetchAll(context.Background(), sources)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("FetchAll() error = %v, want the missing source", err)
	}

	var ids []string
	for _, r := range res {
		ids = append(ids, r.Source.ID)
	}
	if d := cmp.Diff([]string{"a", "local", "b"}, ids); d != "" {
		t.Errorf("result order (-want +got):\n%s", d)
	}
}

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cal.ics")
	if err := os.WriteFile(path, calendarBody(holiday, meeting), 0o600); err != nil {
		t.Fatal(err)
	}

	r := &Resolver{
		Fetcher: NewFetcher(filepath.Join(dir, "cache")),
		Sources: []Source{{ID: "local", URL: "file://" + path}},
		Items:   DefaultItemConfig(),
	}
	items, err := r.Resolve(context.Background(), week)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("len(items) = %d, want 4", len(items))
	}
	if items[0].Title != "Team meeting" {
		t.Errorf("first item = %q, want the earliest occurrence", items[0].Title)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/private/cal.ics?token=abc", "https://example.com/...(redacted)"},
		{"not a url", "ics://...(redacted)"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
