// Package web serves the leaderboard and mint pages and their JSON API.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matrixise/sui-friday/internal/leaderboard"
	"github.com/matrixise/sui-friday/internal/mint"
	"github.com/matrixise/sui-friday/internal/notify"
	"github.com/matrixise/sui-friday/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// RequestTimeout bounds every route except the mint submissions, which wait
// for on-chain confirmation.
const RequestTimeout = 30 * time.Second

// recentNotifications is how many toasts the mint page shows
const recentNotifications = 5

// Leaderboard is the read side of the aggregator
type Leaderboard interface {
	Board() leaderboard.Board
	Entry(addr string) (leaderboard.Entry, bool)
}

// Minter runs mint attempts
type Minter interface {
	Mint(ctx context.Context) mint.Outcome
	Settings() mint.Settings
	HasWallet() bool
	Account() string
	InFlight() bool
	State() mint.State
}

// TrackerView is the mirrored mint tracker
type TrackerView interface {
	State() mint.TrackerState
	Limit() uint64
}

// AccountView is the connected account balance
type AccountView interface {
	Balance() mint.AccountBalance
}

// Notifications lists recent toasts, newest first
type Notifications interface {
	Recent(limit int) []notify.Notification
}

// History reads the persisted balance history of a wallet
type History interface {
	History(ctx context.Context, address string, limit int) ([]storage.BalanceSnapshot, error)
}

// Server holds the view dependencies
type Server struct {
	board   Leaderboard
	minter  Minter
	tracker TrackerView
	feed    Notifications
	account AccountView
	history History
	health  http.Handler
	metrics http.Handler
	network string

	pages map[string]*template.Template
}

type Option func(*Server)

// WithAccount shows the connected account balance on the mint page
func WithAccount(a AccountView) Option {
	return func(s *Server) {
		s.account = a
	}
}

// WithHistory enables /api/leaderboard/{address}/history
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithHealth mounts h on /health
func WithHealth(h http.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics mounts h on /metrics
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithNetwork labels the header with the network name
func WithNetwork(name string) Option {
	return func(s *Server) {
		s.network = name
	}
}

// NewServer parses the embedded templates
func NewServer(board Leaderboard, minter Minter, tracker TrackerView, feed Notifications, opts ...Option) (*Server, error) {
	s := &Server{
		board:   board,
		minter:  minter,
		tracker: tracker,
		feed:    feed,
	}
	for _, opt := range opts {
		opt(s)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	return s, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	for name, file := range map[string]string{
		"home":        "templates/home.html",
		"leaderboard": "templates/leaderboard.html",
		"mint":        "templates/mint.html",
	} {
		cloned, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone layout: %w", err)
		}
		if _, err := cloned.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		pages[name] = cloned
	}
	return pages, nil
}

// Handler builds the chi router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))

		r.Get("/", s.handleHome)
		r.Get("/coin-leaderboard", s.handleLeaderboard)
		r.Get("/nft-mint", s.handleMintPage)

		r.Get("/api/leaderboard", s.handleLeaderboardAPI)
		r.Get("/api/leaderboard/{address}/history", s.handleHistoryAPI)
		r.Get("/api/mint", s.handleMintAPI)
		r.Get("/api/notifications", s.handleNotificationsAPI)

		if s.health != nil {
			r.Method(http.MethodGet, "/health", s.health)
		}
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}
	})

	// Mint submissions wait for confirmation and only accept same-origin posts
	r.Group(func(r chi.Router) {
		r.Use(http.NewCrossOriginProtection().Handler)

		r.Post("/nft-mint", s.handleMintSubmit)
		r.Post("/api/mint", s.handleMintSubmitAPI)
	})

	return r
}

// requestLogger logs one slog line per request
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			slog.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data page) {
	tmpl, ok := s.pages[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	data.Network = s.network
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("Template rendering failed", "page", name, "error", err)
		http.Error(w, "template rendering error", http.StatusInternalServerError)
	}
}
