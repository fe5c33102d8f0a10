package www

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/NYTimes/gziphandler"

	"github.com/orinocoz/energymeter/config"
	"github.com/orinocoz/energymeter/database"
	"github.com/orinocoz/energymeter/metrics"
	"github.com/orinocoz/energymeter/settings"
	"github.com/orinocoz/energymeter/spot"
	"github.com/orinocoz/energymeter/tariff"
)

type LogReader interface {
	GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error)
}

type Server struct {
	logger   *slog.Logger
	config   config.AppConfigApi
	cache    *spot.Cache
	engine   *tariff.Engine
	settings *settings.Manager
	logs     LogReader
	now      func() time.Time
	handler  http.Handler
}

//go:embed static
var embeddedStaticDir embed.FS

func NewServer(cache *spot.Cache, engine *tariff.Engine, mgr *settings.Manager, logs LogReader, config config.AppConfigApi) *Server {
	s := &Server{
		logger:   slog.Default().With("module", "www"),
		config:   config,
		cache:    cache,
		engine:   engine,
		settings: mgr,
		logs:     logs,
		now:      time.Now,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/prices", s.logReqMW("prices", s.handlePrices))
	mux.Handle("GET /api/health", s.logReqMW("health", s.handleHealth))
	mux.Handle("GET /api/summary", s.logReqMW("summary", s.handleSummary))
	mux.Handle("GET /api/best-window", s.logReqMW("best_window", s.handleBestWindow))
	mux.Handle("GET /api/settings", s.logReqMW("settings", s.handleGetSettings))
	mux.Handle("PUT /api/settings", s.logReqMW("settings", s.handleUpdateSettings))
	mux.Handle("DELETE /api/settings", s.logReqMW("settings", s.handleResetSettings))
	mux.Handle("GET /api/log", s.logReqMW("log", NewLogHandler(s.logger.With(slog.String("handler", "log")), s.logs)))
	mux.Handle("GET /defaults.json", s.logReqMW("defaults", s.handleDefaults))
	mux.Handle("/", staticFilesHandler(s.config.WwwDir))

	// promhttp compresses on its own
	root := http.NewServeMux()
	root.Handle("GET /metrics", metrics.Handler())
	root.Handle("/", gziphandler.GzipHandler(mux))
	return root
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// logReqMW logs the request and records its status and duration.
func (s *Server) logReqMW(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remoteAddr", r.RemoteAddr))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprint(rec.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.logger.Info("starting server...", slog.String("addr", addr))
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srvErrors := make(chan error, 1)
	go func() {
		defer close(srvErrors)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrors <- err
		}
	}()

	select {
	case err := <-srvErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

func staticFilesHandler(extDir *string) http.Handler {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
