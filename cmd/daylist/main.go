// Command daylist runs the to-do list web application: a rendered-HTML
// fasthttp server over a SQL database, with session cookies, email
// verification and an optional Google sign-in.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daylistio/daylist/handlers"
	"github.com/daylistio/daylist/pkg/config"
	"github.com/daylistio/daylist/pkg/core"
	"github.com/daylistio/daylist/pkg/db"
	"github.com/daylistio/daylist/pkg/observability/prometheus"
	"github.com/daylistio/daylist/pkg/web"
	"github.com/daylistio/daylist/pkg/web/middleware"
	"github.com/daylistio/daylist/pkg/web/middleware/auth"
	"github.com/daylistio/daylist/pkg/web/middleware/security"
	"github.com/daylistio/daylist/services"
	"github.com/daylistio/daylist/views"

	"github.com/valyala/fasthttp"

	// SQL drivers selected by database.driver in the configuration
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Config is the application configuration, loaded from YAML with
// DAYLIST_* environment overrides (e.g. DAYLIST_SESSION_SECRET).
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`

		// BaseURL is the externally reachable origin, used for the
		// links inside verification and reset emails
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Session struct {
		Secret string `yaml:"secret"`
	} `yaml:"session"`

	SMTP   services.SMTPConfig   `yaml:"smtp"`
	Google services.GoogleConfig `yaml:"google"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = "daylist.db"
	return cfg
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logger := core.NewDefaultLogger()

	cfg := defaultConfig()
	if err := config.LoadWithEnv(*configPath, "DAYLIST", &cfg); err != nil {
		logger.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := config.Validate(&cfg,
		config.RequiredFields("Session.Secret"),
		config.OneOf("Database.Driver", "sqlite3", "postgres"),
	); err != nil {
		logger.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(db.DefaultPoolConfig(cfg.Database.DSN, cfg.Database.Driver))
	if err != nil {
		logger.Errorf("failed to open database: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(pool.DB(), pool.DriverName()); err != nil {
		logger.Errorf("failed to run migrations: %v", err)
		os.Exit(1)
	}

	renderer, err := views.New()
	if err != nil {
		logger.Errorf("failed to parse templates: %v", err)
		os.Exit(1)
	}

	users := services.NewUserService(pool.DB())
	lists := services.NewListService(pool.DB())
	tasks := services.NewTaskService(pool.DB())
	tokens := services.NewTokens(cfg.Session.Secret)
	google := services.NewGoogleService(cfg.Google)
	sessions := auth.NewSessions(auth.DefaultSessionConfig(cfg.Session.Secret))

	var mailer services.Mailer
	if cfg.SMTP.Host != "" {
		mailer = services.NewSMTPMailer(cfg.SMTP)
	} else {
		mailer = &services.LogMailer{Logger: logger}
	}

	listHandler := handlers.NewListHandler(lists, tasks, google, renderer, logger)
	authHandler := handlers.NewAuthHandler(users, lists, tokens, mailer, sessions, google, renderer, cfg.Server.BaseURL, logger)
	accountHandler := handlers.NewAccountHandler(users, sessions, renderer)
	googleHandler := handlers.NewGoogleHandler(google, users, lists, tokens, sessions, logger)

	router := web.NewRouter()
	router.Use(middleware.Recovery(middleware.RecoveryConfig{Logger: logger}))
	router.Use(security.Headers(security.DefaultHeadersConfig()))
	router.Use(prometheus.MetricsMiddleware())
	router.Use(sessions.WithPrincipal())

	// Per-route middleware: brute-force protection on the credential
	// endpoints, login redirect on the account pages.
	credLimit := security.RateLimit(security.RateLimitConfig{RequestsPerMinute: 20})
	requireAuth := sessions.RequireAuth()

	router.GET("/", listHandler.Home)
	router.GET("/new", listHandler.NewPage)
	router.GET("/saved_lists", requireAuth(listHandler.SavedLists))

	router.GET("/add", listHandler.AddTask)
	router.POST("/add", listHandler.AddTask)
	router.POST("/first_save", listHandler.FirstSave)
	router.GET("/update/:task_id", listHandler.ToggleComplete)
	router.GET("/star/:task_id", listHandler.ToggleStar)
	router.GET("/delete/:task_id", listHandler.DeleteTask)
	router.POST("/change_list_name/", listHandler.Rename)
	router.GET("/new_list/:list_id", listHandler.ResetList)
	router.GET("/delete_list/:list_id", requireAuth(listHandler.DeleteList))
	router.GET("/save_list/:list_id", listHandler.SaveList)
	router.GET("/save_list_for_new_user/:list_id", listHandler.SaveListForNewUser)
	router.GET("/save_list_for_google/:list_id", listHandler.SaveListForGoogle)
	router.GET("/dark/:page", listHandler.ToggleDark)

	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", credLimit(authHandler.Login))
	router.GET("/register", authHandler.RegisterPage)
	router.POST("/register", credLimit(authHandler.Register))
	router.GET("/logout", authHandler.Logout)
	// Slashless spellings would otherwise fall through to /:list_id
	router.GET("/forgot_password", authHandler.ForgotPasswordPage)
	router.GET("/forgot_password/", authHandler.ForgotPasswordPage)
	router.POST("/forgot_password/", credLimit(authHandler.ForgotPassword))
	router.GET("/verified/:token", authHandler.Verified)
	router.GET("/reset_password/:token", authHandler.ResetPasswordPage)
	router.POST("/reset_password/:token", authHandler.ResetPassword)

	router.GET("/account", requireAuth(accountHandler.AccountPage))
	router.POST("/account", requireAuth(accountHandler.UpdateAccount))
	router.GET("/change_password", requireAuth(accountHandler.PasswordPage))
	router.POST("/change_password", requireAuth(accountHandler.ChangePassword))

	router.GET("/google", googleHandler.Start)
	router.GET("/google/", googleHandler.Start)
	router.GET("/google/auth", googleHandler.Callback)
	router.GET("/google/auth/", googleHandler.Callback)

	router.GET("/health", func(ctx *web.RequestContext) error {
		return ctx.Text(fasthttp.StatusOK, "ok")
	})
	prometheus.RegisterMetricsEndpoint(router, "/metrics")

	// The bare list route must come last: it would otherwise shadow
	// every other single-segment path.
	router.GET("/:list_id", listHandler.ViewList)

	// Feed the connection pool gauges while the server runs
	stopGauges := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := pool.Stats()
				prometheus.GetMetrics().UpdateDatabasePool(stats.OpenConnections, stats.Idle, stats.InUse)
			case <-stopGauges:
				return
			}
		}
	}()

	server := web.NewServer(router, web.DefaultServerConfig(cfg.Server.Addr), logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("daylist listening on %s", cfg.Server.Addr)
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Errorf("server error: %v", err)
		}
	}

	close(stopGauges)
	if err := server.Stop(); err != nil {
		logger.Errorf("failed to stop server: %v", err)
	}
}
