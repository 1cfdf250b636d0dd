package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/laptoptracker/laptop-tracker/internal/handler/dto"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// ErrWindowsDisabled is shown on the Windows page when no poller runs for it.
var ErrWindowsDisabled = errors.New(dto.ErrIntuneDisabled)

// Server renders the dashboard pages from the pollers' latest state.
type Server struct {
	pollers  map[string]*Poller
	feeds    []Feed
	interval time.Duration
	tmpl     *template.Template
	logger   *slog.Logger
	now      func() time.Time
}

type pageData struct {
	Feed       Feed
	Feeds      []Feed
	Filters    []Filter
	View       View
	PollMillis int64
}

// NewServer creates a Server over the given pollers. The Windows tab is
// always listed; without a poller it shows the disabled message.
func NewServer(pollers []*Poller, interval time.Duration, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s := &Server{
		pollers:  make(map[string]*Poller, len(pollers)),
		feeds:    []Feed{FeedMac, FeedWindows},
		interval: interval,
		tmpl:     tmpl,
		logger:   logger.With("component", "dashboard"),
		now:      time.Now,
	}
	for _, p := range pollers {
		s.pollers[p.Feed().Key] = p
	}
	return s, nil
}

// Routes mounts the dashboard endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get(FeedMac.Route, s.page(FeedMac))
	r.Get(FeedWindows.Route, s.page(FeedWindows))
	r.Get("/partial", s.partial)
	r.Post("/refresh", s.refresh)
}

func (s *Server) feedFor(key string) (Feed, bool) {
	for _, f := range s.feeds {
		if f.Key == key {
			return f, true
		}
	}
	return Feed{}, false
}

// view builds the list for a feed from its poller state.
func (s *Server) view(feed Feed, query string, filter Filter) View {
	p, ok := s.pollers[feed.Key]
	if !ok {
		v := View{Feed: feed, Query: query, Filter: filter, Loaded: true}
		v.Error = &ErrorView{Summary: ErrWindowsDisabled.Error()}
		return v
	}

	state := p.State()
	if !state.Loaded {
		return View{Feed: feed, Query: query, Filter: filter}
	}

	v := Build(state.Devices, s.now(), query, filter)
	v.Feed = feed
	v.UpdatedAt = state.UpdatedAt
	if state.Err != nil {
		v.Error = errorView(state.Err)
	}
	return v
}

func errorView(err error) *ErrorView {
	ev := &ErrorView{Summary: err.Error()}
	var ferr *FetchError
	if errors.As(err, &ferr) {
		ev.Message = ferr.Message
		ev.Hint = ferr.Hint
		ev.Raw = ferr.Raw
	}
	return ev
}

func (s *Server) page(feed Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := pageData{
			Feed:       feed,
			Feeds:      s.feeds,
			Filters:    Filters,
			View:       s.view(feed, q.Get("q"), ParseFilter(q.Get("filter"))),
			PollMillis: s.interval.Milliseconds(),
		}
		s.render(w, "page", data)
	}
}

// partial handles GET /partial?feed=&q=&filter=.
func (s *Server) partial(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	feed, ok := s.feedFor(q.Get("feed"))
	if !ok {
		http.Error(w, "unknown feed", http.StatusNotFound)
		return
	}
	s.render(w, "list", s.view(feed, q.Get("q"), ParseFilter(q.Get("filter"))))
}

// refresh handles POST /refresh?feed=. It polls the feed immediately.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pollers[r.URL.Query().Get("feed")]
	if !ok {
		http.Error(w, "unknown feed", http.StatusNotFound)
		return
	}
	if err := p.Refresh(r.Context()); err != nil {
		s.logger.Warn("manual refresh failed", "feed", p.Feed().Key, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render failed", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
