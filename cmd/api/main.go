package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-struk/internal/auth"
	"github.com/noah-isme/backend-struk/internal/cache"
	"github.com/noah-isme/backend-struk/internal/catalog"
	"github.com/noah-isme/backend-struk/internal/config"
	"github.com/noah-isme/backend-struk/internal/health"
	"github.com/noah-isme/backend-struk/internal/lock"
	"github.com/noah-isme/backend-struk/internal/obs"
	"github.com/noah-isme/backend-struk/internal/places"
	"github.com/noah-isme/backend-struk/internal/ratelimit"
	"github.com/noah-isme/backend-struk/internal/receipt"
	"github.com/noah-isme/backend-struk/internal/render"
	"github.com/noah-isme/backend-struk/internal/resilience"
	"github.com/noah-isme/backend-struk/internal/security"
)

const metricsNamespace = "struk"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "backend-struk",
			Environment:   cfg.AppEnv,
			Exporter:      cfg.TracingExporter,
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	rdb, closeRedis := connectRedis(cfg, logger)
	defer closeRedis()

	catalogConfig := catalog.ServiceConfig{MaxQuantity: map[catalog.Category]int{}}
	if cfg.TemplatesFile != "" {
		source, err := os.ReadFile(cfg.TemplatesFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.TemplatesFile).Msg("read templates file")
		}
		catalogConfig.Source = source
	}
	for name, q := range cfg.MaxQuantity {
		catalogConfig.MaxQuantity[catalog.Category(name)] = q
	}
	catalogService, err := catalog.NewService(catalogConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	receiptService, err := receipt.NewService(receipt.Config{
		Catalog: catalogService,
		Logger:  logger.With().Str("component", "receipt").Logger(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise receipt service")
	}
	receiptHandler := receipt.NewHandler(receipt.HandlerConfig{
		Service: receiptService,
		Formats: map[string]receipt.Format{
			"png": {ContentType: "image/png", Extension: "png", Write: render.PNG},
			"pdf": {ContentType: "application/pdf", Extension: "pdf", Write: func(w io.Writer, r receipt.Receipt) error {
				return render.PDF(w, r, time.Now())
			}},
		},
	})

	placesHandler := places.Handler{Service: newPlacesService(cfg, rdb, logger)}

	loginLimiter, err := auth.NewLoginLimiter(rdb, cfg.LoginRate)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise login limiter")
	}
	authService, err := auth.NewService(auth.Config{
		Password:     cfg.AuthPassword,
		PasswordHash: cfg.AuthPasswordHash,
		Secret:       cfg.AuthSecret,
		SessionTTL:   cfg.SessionTTL,
		Limiter:      loginLimiter,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := &auth.Handler{
		Service:        authService,
		Catalog:        catalogService,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
	}

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestContext)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.CookieSecure}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Receipt-ID", "Retry-After"},
		AllowCredentials: len(cfg.CORSAllowedOrigins) > 0,
		MaxAge:           300,
	}))
	r.Use(auth.Gate{Service: authService}.Middleware)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPassword))
	}

	drain := &health.Drain{}
	healthHandler := health.Handler{
		Checker:      health.RedisChecker{Client: rdb},
		RedisTimeout: cfg.ReadyRedisTimeout,
		Templates:    func() int { return len(catalogService.Templates()) },
		Drain:        drain,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Group(func(a chi.Router) {
		a.Use(security.SameOrigin{Allowed: cfg.CORSAllowedOrigins}.Middleware)
		a.Get("/auth", authHandler.Form)
		a.Post("/auth", authHandler.Login)
		a.Post("/auth/logout", authHandler.Logout)
	})
	r.Get("/", authHandler.Landing)

	r.Route("/api", func(api chi.Router) {
		api.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		placesLimit := ratelimit.Handler{
			Limiter: ratelimit.New(rdb, "struk:ratelimit:", cfg.PlacesRateWindow, cfg.PlacesRateMax),
			Key:     ratelimit.ByClientIP("places"),
			OnError: func(err error) {
				logger.Warn().Err(err).Msg("places rate limiter unavailable")
			},
			OnLimited: places.RateLimited,
		}
		api.With(placesLimit.Middleware).Get("/places/search", placesHandler.Search)

		apiLimit := ratelimit.Handler{
			Limiter: ratelimit.New(rdb, "struk:ratelimit:", cfg.APIRateWindow, cfg.APIRateMax),
			Key:     ratelimit.ByClientIP("api"),
			OnError: func(err error) {
				logger.Warn().Err(err).Msg("api rate limiter unavailable")
			},
		}
		api.Route("/v1", func(v chi.Router) {
			v.Use(apiLimit.Middleware)
			v.Get("/templates", catalogHandler.List)
			v.Get("/templates/{id}", catalogHandler.Get)
			v.Post("/amounts/decompose", receiptHandler.Decompose)
			v.Post("/baskets/synthesize", receiptHandler.Synthesize)
			v.Post("/receipts/preview", receiptHandler.Preview)
			v.Post("/receipts/export", receiptHandler.Export)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		drain.Begin()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("places_provider", cfg.PlacesProvider).Bool("redis", rdb != nil).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

// connectRedis returns a nil interface when REDIS_URL is unset so callers can
// compare against nil safely.
func connectRedis(cfg *config.Config, logger zerolog.Logger) (redis.UniversalClient, func()) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; places cache disabled, rate limits counted per process")
		return nil, func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}
}

func newPlacesService(cfg *config.Config, rdb redis.UniversalClient, logger zerolog.Logger) *places.Service {
	var client places.Client
	switch cfg.PlacesProvider {
	case "mock":
		client = places.MockClient{}
	case "google":
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Target:       "places",
			MinRequests:  5,
			FailureRatio: 0.5,
			OpenFor:      30 * time.Second,
			Logger:       logger,
		})
		httpClient := &http.Client{
			Timeout: cfg.PlacesTimeout,
			Transport: otelhttp.NewTransport(&resilience.Transport{
				Base:        http.DefaultTransport,
				Breaker:     breaker,
				MaxAttempts: cfg.PlacesMaxAttempts,
				BaseBackoff: 200 * time.Millisecond,
				Jitter:      0.2,
			}),
		}
		google, err := places.NewGoogleClient(places.GoogleConfig{
			APIKey:     cfg.PlacesAPIKey,
			HTTPClient: httpClient,
			Language:   cfg.PlacesLanguage,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise places client")
		}
		client = google
	default:
		return nil
	}
	var locker places.Locker
	if rdb != nil {
		locker = lock.Locker{Client: rdb, Prefix: "struk:lock:"}
	}
	return places.NewService(places.ServiceConfig{
		Client: client,
		Cache:  cache.NewJSON(rdb, "struk:", cfg.PlacesCacheTTL),
		Locker: locker,
		Logger: logger.With().Str("component", "places").Logger(),
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
