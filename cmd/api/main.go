// cmd/api/main.go
package main

import (
	"net/http"
	"os"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/dentsi/cache"
	"github.com/briangreenhill/dentsi/dentsi"
	"github.com/briangreenhill/dentsi/internal/config"
	"github.com/briangreenhill/dentsi/internal/dashboard"
	"github.com/briangreenhill/dentsi/internal/http/routes"
	"github.com/briangreenhill/dentsi/internal/logging"
	"github.com/briangreenhill/dentsi/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New(os.Stderr, config.LogConfig{})
		boot.Fatal().Err(err).Msg("load config")
	}

	// Logger
	logger := logging.New(os.Stdout, cfg.Log)
	logger.Info().Str("port", cfg.Port).Str("backend", cfg.Backend.BaseURL).Msg("starting dashboard")

	// Backend client
	client, err := dentsi.New(cfg.Backend.BaseURL,
		dentsi.WithCache(cache.NewMemoryCache(), cfg.Backend.CacheTTL),
		dentsi.WithTimeout(cfg.Backend.RequestTimeout),
		dentsi.WithDemoTimeout(cfg.Backend.DemoTimeout),
		dentsi.WithLogger(logger.With().Str("component", "dentsi").Logger()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend client")
	}

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.Session.Lifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = cfg.Session.CookieSecure

	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse templates")
	}

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:    sess,
		Tmpl:    tmpl,
		Backend: client,
		Limits: dashboard.Limits{
			Appointments: cfg.Backend.AppointmentsLimit,
			Calls:        cfg.Backend.CallsLimit,
		},
		Log: logger,
	})

	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(s.Router)
	h = hlog.RequestIDHandler("req_id", "X-Request-ID")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.NewHandler(logger)(h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           sess.LoadAndSave(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
