package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/app"
	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/resilience"
	"github.com/noah-isme/backend-pos/internal/session"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

const metricsNamespace = "pos"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	store := session.RedisStore{R: redisClient, Prefix: "pos"}
	locker := lock.Locker{R: redisClient}

	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("backend").
		WithLogger(logger)
	upClient := &upstream.Client{
		BaseURL: cfg.UpstreamBaseURL,
		Token:   cfg.UpstreamToken,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			MaxAttempts: cfg.UpstreamMaxAttempts,
			Timeout:     cfg.UpstreamTimeout,
		},
	}

	bus := &events.Bus{Notifiers: []events.Notifier{
		events.LogNotifier{Logger: logger},
		events.MetricsNotifier{Counter: obs.DomainEventsTotal},
	}}

	validate := validator.New()
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	bodyLimit := common.BodyLimit{Max: 1 << 20}

	cartSvc := &cart.Service{
		Store:      store,
		Locker:     locker,
		TTL:        cfg.SessionTTL,
		Promotions: upClient,
		Products:   upClient,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Validate: validate, Currency: cfg.CurrencyCode}

	receiptSvc := &receipt.Service{
		Store:     store,
		Locker:    locker,
		TTL:       cfg.SessionTTL,
		Products:  receiptProducts{c: upClient},
		Submitter: upClient,
		Events:    bus,
	}
	receiptHandler := &receipt.Handler{Svc: receiptSvc, Validate: validate}

	checkoutSvc := &checkout.Service{Carts: cartSvc, Orders: upClient, Events: bus}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	var limitStrategy ratelimit.Strategy
	switch cfg.RateLimitStrategy {
	case "store":
		limiterStore, err := app.NewLimiterStore(redisClient)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise limiter store")
		}
		limitStrategy = ratelimit.StoreLimiter{Store: limiterStore}
	default:
		limitStrategy = ratelimit.SlidingWindow{Client: redisClient, Prefix: "pos:ratelimit:"}
	}
	writeLimit := ratelimit.Handler{
		Limiter: limitStrategy,
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return common.ClientIP(r) },
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitMax,
		},
		OnError: func(err error) {
			logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}

	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsCSV), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(bodyLimit.Middleware)

	r.Handle("/metrics", promhttp.Handler())

	healthHandler := health.Handler{
		Checker: readinessChecker{redis: redisClient, upstream: upClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(writeLimit.Middleware)
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Delete("/{id}", cartHandler.Destroy)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
				g.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
				g.Post("/{id}/clear", cartHandler.Clear)
				g.Post("/{id}/promotions", cartHandler.ApplyPromotion)
				g.Delete("/{id}/promotions", cartHandler.RemoveAllPromotions)
				g.Delete("/{id}/promotions/{promoId}", cartHandler.RemovePromotion)
				g.Put("/{id}/promo-code", cartHandler.SetPromoCode)
				g.Put("/{id}/customer", cartHandler.SetCustomer)
				g.Put("/{id}/payment", cartHandler.SetPayment)
				g.Post("/{id}/checkout", checkoutHandler.Checkout)
			})
		})

		v.Route("/receipts", func(c chi.Router) {
			c.Get("/{id}", receiptHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(writeLimit.Middleware)
				g.Use(idem.Middleware)
				g.Post("/", receiptHandler.Create)
				g.Delete("/{id}", receiptHandler.Destroy)
				g.Post("/{id}/items", receiptHandler.AddItem)
				g.Patch("/{id}/items/{index}", receiptHandler.UpdateLine)
				g.Delete("/{id}/items/{index}", receiptHandler.RemoveLine)
				g.Post("/{id}/clear", receiptHandler.Clear)
				g.Put("/{id}/supplier", receiptHandler.SetSupplier)
				g.Put("/{id}/note", receiptHandler.SetNote)
				g.Post("/{id}/submit", receiptHandler.Submit)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// receiptProducts narrows the backend product lookup to the fields the
// receipt workflow needs.
type receiptProducts struct {
	c *upstream.Client
}

func (a receiptProducts) ProductByID(ctx context.Context, id string) (receipt.Product, error) {
	p, err := a.c.ProductByID(ctx, id)
	if err != nil {
		return receipt.Product{}, err
	}
	return receipt.Product{ID: p.ID, Price: p.Price}, nil
}

type readinessChecker struct {
	redis    *redis.Client
	upstream *upstream.Client
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingUpstream(ctx context.Context, timeout time.Duration) error {
	if c.upstream == nil {
		return errors.New("upstream not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.upstream.Ping(ctx)
}
