package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hie/bridge/internal/config"
	"github.com/hie/bridge/internal/domain/directory"
	"github.com/hie/bridge/internal/domain/documentretrieval"
	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/domain/inbound"
	"github.com/hie/bridge/internal/domain/outbound"
	"github.com/hie/bridge/internal/platform/auth"
	"github.com/hie/bridge/internal/platform/backend"
	"github.com/hie/bridge/internal/platform/blobstore"
	"github.com/hie/bridge/internal/platform/middleware"
	"github.com/hie/bridge/internal/platform/resultpub"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridge-server",
		Short: "Cross-gateway exchange bridge",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(gatewayCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the gateway directory",
	}

	initCmd := &cobra.Command{
		Use:   "init-schema",
		Short: "Create the gateway directory table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := directoryService(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, directory.Schema); err != nil {
				return err
			}
			fmt.Println("Gateway directory schema is up to date.")
			return nil
		},
	}
	cmd.AddCommand(initCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List directory entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, pool, err := directoryService(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := svc.List(ctx, false)
			if err != nil {
				return err
			}
			fmt.Printf("%-36s %-24s %-20s %-8s\n", "OID", "NAME", "HOME COMMUNITY", "ACTIVE")
			for _, e := range entries {
				fmt.Printf("%-36s %-24s %-20s %-8t\n", e.OID, e.Name, e.HomeCommunityID, e.Active)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register an external gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := &directory.Entry{Active: true}
			entry.OID, _ = cmd.Flags().GetString("oid")
			entry.Name, _ = cmd.Flags().GetString("name")
			entry.HomeCommunityID, _ = cmd.Flags().GetString("home-community")
			entry.XCPDURL, _ = cmd.Flags().GetString("xcpd-url")
			entry.XCAQueryURL, _ = cmd.Flags().GetString("xca-query-url")
			entry.XCARetrieveURL, _ = cmd.Flags().GetString("xca-retrieve-url")

			ctx := context.Background()
			svc, pool, err := directoryService(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := svc.Create(ctx, entry); err != nil {
				return err
			}
			fmt.Printf("Registered gateway %s (%s)\n", entry.Name, entry.ID)
			return nil
		},
	}
	addCmd.Flags().String("oid", "", "Organization OID")
	addCmd.Flags().String("name", "", "Display name")
	addCmd.Flags().String("home-community", "", "Home community OID")
	addCmd.Flags().String("xcpd-url", "", "Patient discovery endpoint")
	addCmd.Flags().String("xca-query-url", "", "Document query endpoint")
	addCmd.Flags().String("xca-retrieve-url", "", "Document retrieval endpoint")
	cmd.AddCommand(addCmd)

	return cmd
}

func directoryService(ctx context.Context) (*directory.Service, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for gateway management")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return directory.NewService(directory.NewRepoPG(pool)), pool, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()

	// Gateway directory, backed by postgres when configured.
	var repo directory.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("database unreachable")
		}
		repo = directory.NewRepoPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		repo = directory.NewRepoMem()
		logger.Warn().Msg("DATABASE_URL not set, gateway directory is in-memory")
	}
	dirSvc := directory.NewService(repo)

	// Retrieved document storage.
	var store blobstore.Store
	if cfg.MedicalDocumentsBucket != "" {
		s3store, err := blobstore.NewS3Store(ctx, cfg.AWSRegion, cfg.MedicalDocumentsBucket)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize document store")
		}
		store = s3store
		logger.Info().Str("bucket", cfg.MedicalDocumentsBucket).Msg("using S3 document store")
	} else {
		store = blobstore.NewMemoryStore()
		logger.Warn().Msg("MEDICAL_DOCUMENTS_BUCKET not set, document store is in-memory")
	}

	// Result delivery for outbound fan-out results.
	endpoints := map[string]string{}
	if cfg.PDResultURL != "" {
		endpoints[string(exchange.TransactionPatientDiscovery)] = cfg.PDResultURL
	}
	if cfg.DQResultURL != "" {
		endpoints[string(exchange.TransactionDocumentQuery)] = cfg.DQResultURL
	}
	if cfg.DRResultURL != "" {
		endpoints[string(exchange.TransactionDocumentRetrieval)] = cfg.DRResultURL
	}
	var publishers resultpub.Multi
	if len(endpoints) > 0 {
		publishers = append(publishers, resultpub.NewHTTPPublisher(endpoints, 30*time.Second, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := resultpub.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaResultTopic, logger)
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaResultTopic).Msg("publishing results to kafka")
	}
	var publisher resultpub.Publisher = publishers
	if len(publishers) == 0 {
		publisher = resultpub.Nop{}
		logger.Warn().Msg("no result publishers configured")
	}

	// Outbound side: fan-out dispatch to external gateways.
	gatewayTimeout := time.Duration(cfg.GatewayTimeoutSeconds) * time.Second
	soapClient := outbound.NewClient(gatewayTimeout)
	processor := documentretrieval.NewProcessor(store, 15*time.Minute, logger)
	dispatcher := outbound.NewDispatcher(soapClient, processor, gatewayTimeout, logger)
	outSvc := outbound.NewService(dispatcher, publisher, dirSvc, logger)
	outHandler := outbound.NewHandler(outSvc)

	// Inbound side: SOAP endpoints answered by the internal backends.
	backendClient := backend.NewClient(30 * time.Second)
	inSvc := inbound.NewService(backendClient, inbound.Config{
		HomeCommunityID:      cfg.HomeCommunityID,
		PatientDiscoveryURL:  cfg.PDBackendURL,
		DocumentQueryURL:     cfg.DQBackendURL,
		DocumentRetrievalURL: cfg.DRBackendURL,
	}, logger)
	throttle := middleware.NewThrottle(cfg.InboundMaxInFlight, logger)
	inHandler := inbound.NewHandler(inSvc, throttle)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// The JSON API requires a bearer token; the SOAP surface does not, its
	// trust model is the SAML assertion on the envelope.
	if cfg.AuthHS256Secret == "" && !cfg.IsDev() {
		logger.Warn().Msg("AUTH_HS256_SECRET not set, JSON API is unauthenticated")
	}
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.Middleware(auth.Config{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Secret:   []byte(cfg.AuthHS256Secret),
	}))

	outHandler.RegisterRoutes(apiV1.Group("/exchange"))
	directory.NewHandler(dirSvc).RegisterRoutes(apiV1)
	inHandler.RegisterRoutes(e.Group("/soap"))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
