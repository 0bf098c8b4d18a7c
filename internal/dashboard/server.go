// Package dashboard serves a small read-only web view over the
// notification ledger: recent activity, aggregate statistics and a
// health endpoint. It never mutates anything.
package dashboard

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/Re4zOon/repo-maintainer/config"
	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

//go:embed dashboard.html.tmpl
var pageTemplate string

var pageTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"itemLabel": itemLabel,
	"shortTime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}).Parse(pageTemplate))

const recentLimit = 10

// Server is the dashboard HTTP server.
type Server struct {
	store   *ledger.Store
	cfg     *config.Config
	version string

	username string
	password string

	now func() time.Time
}

// NewServer builds a dashboard over the ledger. Basic auth is enabled
// when both DASHBOARD_USERNAME and DASHBOARD_PASSWORD are set in the
// environment; the health endpoint is always open.
func NewServer(store *ledger.Store, cfg *config.Config, version string) *Server {
	return &Server{
		store:    store,
		cfg:      cfg,
		version:  version,
		username: os.Getenv("DASHBOARD_USERNAME"),
		password: os.Getenv("DASHBOARD_PASSWORD"),
		now:      time.Now,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.auth(s.handleStats))
	mux.HandleFunc("GET /{$}", s.auth(s.handleIndex))
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("dashboard listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.username == "" || s.password == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="repo-maintainer"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   s.version,
	})
}

type recentNotification struct {
	Recipient  string `json:"recipient"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	Item       string `json:"item"`
	NotifiedAt string `json:"notified_at"`
}

type recentComment struct {
	ProjectID   string `json:"project_id"`
	Number      int    `json:"mr_iid"`
	Index       int    `json:"comment_index"`
	CommentedAt string `json:"commented_at"`
}

type statsResponse struct {
	Notifications struct {
		Total         int                  `json:"total"`
		Branches      int                  `json:"branches"`
		MergeRequests int                  `json:"merge_requests"`
		Recent        []recentNotification `json:"recent"`
	} `json:"notifications"`
	Comments struct {
		Total  int             `json:"total"`
		Recent []recentComment `json:"recent"`
	} `json:"mr_comments"`
	Ages struct {
		MeanDays   float64 `json:"mean_days"`
		MedianDays float64 `json:"median_days"`
	} `json:"notification_ages"`
	Config struct {
		StaleDays                 int  `json:"stale_days"`
		CleanupWeeks              int  `json:"cleanup_weeks"`
		NotificationFrequencyDays int  `json:"notification_frequency_days"`
		EnableAutoArchive         bool `json:"enable_auto_archive"`
		EnableComments            bool `json:"enable_mr_comments"`
		ProjectsCount             int  `json:"projects_count"`
	} `json:"config"`
}

func (s *Server) buildStats(ctx context.Context) (*statsResponse, error) {
	var resp statsResponse

	branches, requests, err := s.store.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	resp.Notifications.Branches = branches
	resp.Notifications.MergeRequests = requests
	resp.Notifications.Total = branches + requests

	notifications, err := s.store.RecentNotifications(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	for _, n := range notifications {
		resp.Notifications.Recent = append(resp.Notifications.Recent, recentNotification{
			Recipient:  n.Recipient,
			Type:       string(n.ItemType),
			ProjectID:  n.ProjectID,
			Item:       n.ItemKey,
			NotifiedAt: n.Notified.Format(time.RFC3339),
		})
	}

	total, err := s.store.CountComments(ctx)
	if err != nil {
		return nil, err
	}
	resp.Comments.Total = total

	comments, err := s.store.RecentComments(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		resp.Comments.Recent = append(resp.Comments.Recent, recentComment{
			ProjectID:   c.ProjectID,
			Number:      c.Number,
			Index:       c.Index,
			CommentedAt: c.Commented.Format(time.RFC3339),
		})
	}

	instants, err := s.store.AllLastNotified(ctx)
	if err != nil {
		return nil, err
	}
	if len(instants) > 0 {
		ages := make([]float64, len(instants))
		for i, t := range instants {
			ages[i] = s.now().Sub(t).Hours() / 24
		}
		// stats errors only on empty input, excluded above.
		resp.Ages.MeanDays, _ = stats.Mean(ages)
		resp.Ages.MedianDays, _ = stats.Median(ages)
	}

	resp.Config.StaleDays = s.cfg.StaleDays
	resp.Config.CleanupWeeks = s.cfg.CleanupWeeks
	resp.Config.NotificationFrequencyDays = s.cfg.NotificationFrequencyDays
	resp.Config.EnableAutoArchive = s.cfg.EnableAutoArchive
	resp.Config.EnableComments = s.cfg.EnableComments
	resp.Config.ProjectsCount = len(s.cfg.Projects)
	return &resp, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.buildStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("dashboard stats query failed")
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type pageData struct {
	Version       string
	Stats         *statsResponse
	Notifications []ledger.NotificationRow
	Comments      []ledger.CommentRow
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := s.buildStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("dashboard stats query failed")
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	notifications, err := s.store.RecentNotifications(ctx, recentLimit)
	if err != nil {
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}
	comments, err := s.store.RecentComments(ctx, recentLimit)
	if err != nil {
		http.Error(w, "database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTmpl.Execute(w, pageData{
		Version:       s.version,
		Stats:         resp,
		Notifications: notifications,
		Comments:      comments,
	})
	if err != nil {
		log.Error().Err(err).Msg("dashboard render failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("dashboard response encoding failed")
	}
}

// itemLabel renders an item key with its type prefix for the HTML page.
func itemLabel(itemType model.ItemType, key string) string {
	if itemType == model.ItemTypeRequest {
		return "!" + key
	}
	return key
}
