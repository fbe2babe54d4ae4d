package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/api"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/blobstore"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/cache"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/config"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/jobs"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/middleware"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/services"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/utils"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// openStore returns the configured store and a close func. The path
// "memory" keeps everything in process.
func openStore(cfg config.Config) (api.Store, func(), error) {
	if cfg.SQLitePath == "memory" {
		log.Printf("store: in-memory (data is lost on exit)")
		return api.NewMemoryStore(), func() {}, nil
	}
	st, err := openSQLite(cfg)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {
		if err := st.Close(); err != nil {
			log.Printf("warning: failed to close sqlite db: %v", err)
		}
	}, nil
}

func openCache(ctx context.Context, cfg config.Config) (services.TemplateCache, func()) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory(), func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rc, err := cache.NewRedis(pingCtx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		log.Printf("redis %s unavailable, using in-process template cache: %v", cfg.Redis.Addr, err)
		return cache.NewMemory(), func() {}
	}
	log.Printf("template cache: redis %s", cfg.Redis.Addr)
	return rc, func() { _ = rc.Close() }
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.JWTSecret == "" {
		log.Printf("GFGP_JWT_SECRET not set, using the development secret")
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	tcache, closeCache := openCache(ctx, cfg)
	defer closeCache()
	blobs, err := blobstore.NewFileStore(cfg.EvidenceDir)
	if err != nil {
		return err
	}

	svc := api.NewServices(store, tcache, blobs, api.Options{
		Evidence: services.EvidenceOptions{MaxBytes: cfg.MaxEvidenceBytes, AllowedTypes: cfg.EvidenceTypes},
		Sessions: services.SessionOptions{Delay: cfg.AutosaveDelay, SaveTimeout: cfg.SaveTimeout, IdleTTL: cfg.SessionIdleTTL},
	})
	if cfg.TemplatesDir != "" {
		if _, err := seedTemplates(ctx, svc.Templates, cfg.TemplatesDir); err != nil {
			return err
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	scheduler, err := jobs.New(jobs.Config{
		AuditCron:      cfg.AuditCron,
		AuditRetention: cfg.RetentionWindow(),
		ReaperCron:     cfg.ReaperCron,
	}, svc.Audit, svc.Sessions, limiter)
	if err != nil {
		return err
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc, store, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		log.Printf("GFGP server listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCtx.Done():
		log.Printf("shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	scheduler.Stop(shutdownCtx)
	svc.Sessions.Shutdown()
	return nil
}

func newHandler(cfg config.Config, svc *api.Services, store api.Store, limiter *middleware.RateLimiter) http.Handler {
	commit := os.Getenv("GFGP_COMMIT")
	buildTime := os.Getenv("GFGP_BUILD_TIME")

	mux := http.NewServeMux()
	api.NewRouter(svc).Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		locale := middleware.LocaleFromContext(r.Context())
		ok := true
		status := http.StatusOK
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Printf("health: store ping: %v", err)
			ok, status = false, http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":              ok,
			"name":            "GFGP API",
			"locale":          locale,
			"msg":             utils.T(locale, "health.ok"),
			"commit":          commit,
			"build_time":      buildTime,
			"editingSessions": svc.Sessions.Len(),
		})
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"version":    Version,
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Frontend: static files when present, else a dev proxy when configured.
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	} else if devURL := os.Getenv("GFGP_DEV_FRONTEND_URL"); devURL != "" {
		if u, err := url.Parse(devURL); err == nil {
			mux.Handle("/", httputil.NewSingleHostReverseProxy(u))
		} else {
			log.Printf("invalid GFGP_DEV_FRONTEND_URL=%q: %v", devURL, err)
		}
	}

	var h http.Handler = mux
	h = middleware.LocaleMiddleware(h)
	h = middleware.WithAuth(cfg.JWTSecret)(h)
	h = limiter.Middleware(h)
	h = middleware.NoStore(h)
	h = middleware.SecureHeaders(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return middleware.Recover(h)
}
