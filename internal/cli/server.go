package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyber-eval-service/internal/app"
	"cyber-eval-service/internal/auth"
	"cyber-eval-service/internal/config"
	"cyber-eval-service/internal/infra/entra"
	"cyber-eval-service/internal/infra/memory"
	"cyber-eval-service/internal/infra/postgres"
	"cyber-eval-service/internal/infra/qr"
	infraredis "cyber-eval-service/internal/infra/redis"
	"cyber-eval-service/internal/infra/verifiedid"
	transport "cyber-eval-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the evaluation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 8*time.Hour)
	attemptTTL := config.TTLDuration(cfg.Redis.TTL, sessionTTL)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.DefaultQuizzes())
	var records app.IssuanceRecordRepository = memory.NewIssuanceStore()
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
		records = postgres.NewIssuanceStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var attempts app.AttemptRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		attempts = infraredis.NewAttemptStore(redisClient, attemptTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		attempts = memory.NewAttemptStore()
	}
	if _, err := quizRepo.GetQuiz(ctx, cfg.Quiz.ID); err != nil {
		return fmt.Errorf("load quiz %s: %w", cfg.Quiz.ID, err)
	}

	tokens := entra.NewClient(entra.Config{
		AuthorityHost: cfg.Identity.AuthorityHost,
		TenantID:      cfg.Identity.TenantID,
		ClientID:      cfg.Identity.ClientID,
		ClientSecret:  cfg.Identity.ClientSecret,
		Timeout:       config.TTLDuration(cfg.Identity.Timeout, 0),
	})
	issuer := verifiedid.NewClient(verifiedid.Config{
		Endpoint: cfg.Issuance.Endpoint,
		Timeout:  config.TTLDuration(cfg.Issuance.Timeout, 0),
	})

	scopes := cfg.Identity.Scopes
	if len(scopes) == 0 {
		scopes = entra.DefaultVerifiedIDScopes
	}
	if cfg.CallbackURL() != "" && cfg.Callback.APIKey == "" {
		log.Printf("PUBLIC_URL is set but CALLBACK_API_KEY is empty; callbacks will be rejected")
	}

	hub := app.NewStatusHub()
	quizService := app.NewQuizService(attempts, quizRepo, cfg.Quiz.ID)
	issuanceService := app.NewIssuanceService(app.IssuanceSettings{
		Authority:      cfg.Issuance.Authority,
		CredentialType: cfg.Issuance.CredentialType,
		Manifest:       cfg.Issuance.Manifest,
		ClientName:     cfg.Issuance.ClientName,
		IncludeQRCode:  cfg.IncludeQRCode(),
		Scopes:         scopes,
		CallbackURL:    cfg.CallbackURL(),
		CallbackAPIKey: cfg.Callback.APIKey,
	}, tokens, issuer, records, qr.NewRenderer())
	callbackService := app.NewCallbackService(cfg.Callback.APIKey, records, hub)

	sessions := auth.NewSessionManager(cfg.Session.Secret, sessionTTL, cfg.Session.CookieName, cfg.Session.SecureCookie)
	var signIn *auth.SignIn
	if cfg.Server.PublicURL != "" {
		authorityHost := cfg.Identity.AuthorityHost
		if authorityHost == "" {
			authorityHost = entra.DefaultAuthorityHost
		}
		signIn = auth.NewSignIn(auth.SignInConfig{
			AuthorityHost: authorityHost,
			TenantID:      cfg.Identity.TenantID,
			ClientID:      cfg.Identity.ClientID,
			ClientSecret:  cfg.Identity.ClientSecret,
			RedirectURL:   cfg.SignInRedirectURL(),
			Secure:        cfg.Session.SecureCookie,
		})
	} else {
		log.Printf("PUBLIC_URL not set; interactive sign-in is disabled")
	}

	handler := transport.NewHandler(transport.Deps{
		Quiz:           quizService,
		Issuance:       issuanceService,
		Callbacks:      callbackService,
		Records:        records,
		Hub:            hub,
		Sessions:       sessions,
		SignIn:         signIn,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.Middleware(handler.Routes(), cfg.Server.AllowedOrigins),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would cut the issuance status websocket
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("starting evaluation service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
