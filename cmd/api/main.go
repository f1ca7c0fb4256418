// @title           Finance API
// @version         1.0
// @description     Personal finance: expenses with shares, budgets, budget groups, payment methods, settlements, analytics and notifications.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fkhayef/finance/docs"
	"github.com/fkhayef/finance/internal/analytics"
	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/budgetgroup"
	"github.com/fkhayef/finance/internal/cache"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/config"
	"github.com/fkhayef/finance/internal/currency"
	"github.com/fkhayef/finance/internal/database"
	"github.com/fkhayef/finance/internal/expense"
	"github.com/fkhayef/finance/internal/expense/share"
	"github.com/fkhayef/finance/internal/notification"
	"github.com/fkhayef/finance/internal/paymentmethod"
	"github.com/fkhayef/finance/internal/settlement"
	"github.com/fkhayef/finance/internal/user"
	"github.com/fkhayef/finance/pkg/logging"
	"github.com/fkhayef/finance/pkg/metrics"
	mw "github.com/fkhayef/finance/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database", "driver", cfg.DatabaseDriver)

	if cfg.MigrateOnStart {
		if err := database.RunMigrations(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()

	// Exchange rates: stored rates first, configured fallback second, cached
	dbRates := currency.NewDBProvider(db)
	rateCache := cache.NewLRUCache[decimal.Decimal](cfg.RateCacheSize, cfg.RateCacheTTL, nil)
	cachedRates := currency.NewCachedProvider(
		currency.NewFallbackProvider(dbRates, currency.NewStaticProvider(cfg.FallbackRates)),
		rateCache,
	)
	converter := currency.NewConverter(cachedRates)
	currencyHandler := currency.NewHandler(converter, dbRates, cachedRates)

	// Notifications go out over AMQP only when a broker is configured
	var publisher notification.Publisher
	if cfg.AMQPURL != "" {
		p, err := notification.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to connect to message broker", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		slog.Info("Publishing events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	notificationService := notification.NewService(notification.NewRepository(db), publisher, m)
	notificationHandler := notification.NewHandler(notificationService)

	// User feature
	userService := user.NewService(user.NewRepository(db), cfg.BaseCurrency)
	userHandler := user.NewHandler(userService)

	// Category feature
	categoryService := category.NewService(category.NewRepository(db))
	categoryHandler := category.NewHandler(categoryService)

	// Budget feature
	budgetService := budget.NewService(
		budget.NewRepository(db),
		categoryService,
		userService,
		cfg.DefaultAlertThreshold,
		budget.WithNotifier(notificationService),
		budget.WithMetrics(m),
	)
	budgetHandler := budget.NewHandler(budgetService)

	// Budget group feature
	policy, _ := budgetgroup.ParseDeletePolicy(cfg.BudgetGroupDeletePolicy)
	groupService := budgetgroup.NewService(budgetgroup.NewRepository(db), budgetService, categoryService, policy)
	groupHandler := budgetgroup.NewHandler(groupService)

	// Payment method feature
	methodCache := cache.NewLRUCache[paymentmethod.PaymentMethod](cfg.PaymentMethodCacheSize, cfg.PaymentMethodCacheTTL, nil)
	paymentMethodService := paymentmethod.NewService(paymentmethod.NewRepository(db), methodCache)
	paymentMethodHandler := paymentmethod.NewHandler(paymentMethodService)

	// Share strategies are looked up by share type
	calculator := share.NewCalculator(share.NewRegistry())

	// Expense feature
	expenseRepo := expense.NewRepository(db)
	expenseService := expense.NewService(
		expenseRepo,
		calculator,
		categoryService,
		converter,
		userService,
		expense.WithObserver(budgetService),
		expense.WithNotifier(notificationService),
		expense.WithPaymentMethods(paymentMethodService),
		expense.WithMetrics(m),
	)
	expenseHandler := expense.NewHandler(expenseService)

	// Analytics feature
	analyticsService := analytics.NewService(analytics.NewRepository(db), budgetService, categoryService, userService)
	analyticsHandler := analytics.NewHandler(analyticsService)

	// Settlement feature
	settlementService := settlement.NewService(settlement.NewRepository(db), expenseRepo, notificationService)
	settlementHandler := settlement.NewHandler(settlementService)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Test-User-ID"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	var auth func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeDev:
		slog.Warn("AUTH_MODE=dev: requests are trusted without a token", "default_user", cfg.DevUserID)
		auth = mw.DevUserMiddleware(cfg.DevUserID)
	default:
		auth = mw.NewAuthenticator(cfg.JWTSecret).Middleware
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Mount("/users", userHandler.Routes())
		r.Mount("/categories", categoryHandler.Routes())
		r.Mount("/budgets", budgetHandler.Routes())
		r.Mount("/budget-groups", groupHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/payment-methods", paymentMethodHandler.Routes())
		r.Mount("/analytics", analyticsHandler.Routes())
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Mount("/currency", currencyHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
