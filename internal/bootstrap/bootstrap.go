package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/univgates1-stack/univgates-sub001/internal/app/controllers"
	appMigrations "github.com/univgates1-stack/univgates-sub001/internal/app/migrations"
	appRepos "github.com/univgates1-stack/univgates-sub001/internal/app/repositories"
	appRoutes "github.com/univgates1-stack/univgates-sub001/internal/app/routes"
	appServices "github.com/univgates1-stack/univgates-sub001/internal/app/services"
	"github.com/univgates1-stack/univgates-sub001/internal/config"
	"github.com/univgates1-stack/univgates-sub001/internal/db"
	appMiddleware "github.com/univgates1-stack/univgates-sub001/internal/middleware"
	pkgAuth "github.com/univgates1-stack/univgates-sub001/internal/pkg/auth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/cache"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/filestorage"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/logger"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/oauth"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/realtime"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/validation"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/watermark"
	"github.com/univgates1-stack/univgates-sub001/internal/pkg/websocket"
	"github.com/univgates1-stack/univgates-sub001/internal/seed"
)

const busBuffer = 256

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos *appRepos.Repositories

	Redis       *redis.Client // nil when redis is unreachable
	Bus         *realtime.Bus
	JWTService  *pkgAuth.JWTService
	FileStorage *filestorage.LocalStorage

	AuthService      *appServices.AuthService
	RoleStore        *appServices.RoleStore
	MessagingService *appServices.MessagingService

	Controllers    appRoutes.Controllers
	ChatSocket     *websocket.Handler
	Hub            *websocket.Hub
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// Close releases the connections held by the dependencies. Background workers
// stop when the context passed to BuildDependencies is cancelled.
func (d *Dependencies) Close() {
	if d.MessagingService != nil {
		d.MessagingService.Wait()
	}
	if d.Bus != nil {
		if err := d.Bus.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close realtime bus")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration, initializes Sentry when a DSN is
// configured and then the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	sentryEnabled := cfg.Sentry.DSN != ""
	if sentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Sentry")
			sentryEnabled = false
		}
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:        logLevel,
		Pretty:       strings.ToLower(cfg.Logging.Format) == "text",
		ReportErrors: sentryEnabled,
		Service:      "univgates-api",
	})

	if err := validation.RegisterWithGin(); err != nil {
		return nil, lgr, fmt.Errorf("failed to register validation rules: %w", err)
	}

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Bool("sentry", sentryEnabled).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds default data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		database.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(dbPool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	admin := seed.AdminAccount{Email: cfg.App.AdminEmail, Password: cfg.App.AdminPassword}
	if err := seed.CreateDefaultData(ctx, dbPool, admin, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return database, nil
}

// BuildDependencies initializes repositories, services and controllers. ctx
// bounds the background workers (bus, role cache invalidation, websocket hub).
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(dbPool)

	redisClient, err := cache.NewClient(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, caching disabled")
	} else {
		deps.Redis = redisClient
	}

	deps.Bus, err = realtime.NewBus(realtime.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		Buffer:        busBuffer,
	}, lgr)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize realtime bus: %w", err)
	}
	deps.Bus.Start(ctx)

	deps.FileStorage, err = filestorage.NewLocalStorage(
		cfg.Storage.Path,
		strings.TrimRight(cfg.Server.PublicURL, "/")+"/uploads",
		cfg.Storage.Bucket,
		lgr,
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  cfg.AccessTokenTTL(),
		RefreshTokenExp: cfg.RefreshTokenTTL(),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	var provider appServices.OAuthProvider
	if cfg.CasdoorEnabled() {
		provider = oauth.NewCasdoorExchanger(oauth.Config{
			Endpoint:     cfg.Casdoor.Endpoint,
			ClientID:     cfg.Casdoor.ClientID,
			ClientSecret: cfg.Casdoor.ClientSecret,
			Certificate:  cfg.Casdoor.Certificate,
			Organization: cfg.Casdoor.Organization,
			Application:  cfg.Casdoor.Application,
			RedirectURL:  cfg.Casdoor.RedirectURL,
		})
	} else {
		lgr.Info().Msg("Casdoor not configured, OAuth sign-in disabled")
	}

	repos := deps.Repos

	resolver := appServices.NewRoleResolver(repos.RoleRepository, repos.IdentityRepository, lgr)
	deps.RoleStore = appServices.NewRoleStore(resolver, cache.NewHelper(deps.Redis, "role:"), cfg.App.RoleCacheTTL, lgr)
	if err := deps.RoleStore.Run(ctx, deps.Bus); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to subscribe role cache to auth events: %w", err)
	}

	deps.AuthService = appServices.NewAuthService(
		repos.IdentityRepository,
		deps.JWTService,
		provider,
		deps.Bus,
		lgr,
	)
	redirects := appServices.NewAuthRedirectService(deps.AuthService, deps.RoleStore, appServices.NewRedirectPolicy(cfg.App.PublicPaths), lgr)

	// A dismissed nudge stays hidden for as long as the session can live
	profileService := appServices.NewProfileService(repos.RoleRepository, repos.StudentRepository,
		cache.NewHelper(deps.Redis, "nudge:"), cfg.RefreshTokenTTL(), deps.Bus, lgr)
	applicationService := appServices.NewApplicationService(repos.ApplicationRepository, repos.ProgramRepository,
		repos.DocumentRepository, repos.RoleRepository, profileService, lgr)
	documentService := appServices.NewDocumentService(repos.DocumentRepository, deps.FileStorage, cfg.Storage.MaxUploadSize, lgr)
	exportService := appServices.NewExportService(repos.ApplicationRepository, lgr)
	accountService := appServices.NewAccountService(repos.AccountRepository, repos.IdentityRepository,
		repos.RoleRepository, deps.FileStorage, deps.Bus, lgr)

	deps.MessagingService = appServices.NewMessagingService(
		repos.ChatRepository,
		repos.IdentityRepository,
		deps.RoleStore,
		deps.FileStorage,
		watermark.NewClient(cfg.App.WatermarkURL, cfg.App.WatermarkTimeout),
		deps.JWTService,
		deps.Bus,
		deps.Bus,
		appServices.MessagingConfig{
			FilesBaseURL:  strings.TrimRight(cfg.Server.PublicURL, "/") + "/api/v1/files",
			SignedURLTTL:  cfg.Storage.SignedURLTTL,
			PageMax:       cfg.App.ConversationPageMax,
			MaxUploadSize: cfg.Storage.MaxUploadSize,
		},
		lgr,
	)

	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run(ctx)
	deps.ChatSocket = websocket.NewHandler(deps.Hub, deps.MessagingService, []string{cfg.Server.FrontendURL}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.AuthService, deps.RoleStore)

	deps.Controllers = appRoutes.Controllers{
		Auth:        appControllers.NewAuthController(deps.AuthService, redirects, deps.RoleStore, lgr),
		Profile:     appControllers.NewProfileController(profileService, deps.RoleStore),
		Application: appControllers.NewApplicationController(applicationService),
		Document:    appControllers.NewDocumentController(documentService),
		Chat:        appControllers.NewChatController(deps.MessagingService, lgr),
		Function:    appControllers.NewFunctionController(accountService, deps.RoleStore, lgr),
		Admin:       appControllers.NewAdminController(applicationService, accountService, exportService),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		sentrygin.New(sentrygin.Options{Repanic: true}),
		appMiddleware.RequestLogger(lgr),
		gin.Recovery(),
	)

	appRoutes.SetupRouter(router, deps.Controllers, deps.ChatSocket.HandleConnection, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
