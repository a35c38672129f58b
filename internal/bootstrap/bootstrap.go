package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/frogmembers/api/internal/app/controllers"
	appMigrations "github.com/frogmembers/api/internal/app/migrations"
	appRepos "github.com/frogmembers/api/internal/app/repositories"
	appRoutes "github.com/frogmembers/api/internal/app/routes"
	appServices "github.com/frogmembers/api/internal/app/services"
	"github.com/frogmembers/api/internal/config"
	"github.com/frogmembers/api/internal/db"
	appMiddleware "github.com/frogmembers/api/internal/middleware"
	"github.com/frogmembers/api/internal/pkg/ai"
	pkgAuth "github.com/frogmembers/api/internal/pkg/auth"
	"github.com/frogmembers/api/internal/pkg/calendar"
	"github.com/frogmembers/api/internal/pkg/chatops"
	"github.com/frogmembers/api/internal/pkg/cms"
	"github.com/frogmembers/api/internal/pkg/documents"
	"github.com/frogmembers/api/internal/pkg/filestorage"
	"github.com/frogmembers/api/internal/pkg/helpers"
	"github.com/frogmembers/api/internal/pkg/logger"
	"github.com/frogmembers/api/internal/pkg/payments"
	"github.com/frogmembers/api/internal/pkg/ratelimit"
	"github.com/frogmembers/api/internal/pkg/tokencrypt"
	"github.com/frogmembers/api/internal/pkg/validation"
	"github.com/frogmembers/api/internal/pkg/websocket"
	"github.com/frogmembers/api/internal/seed"
)

// avatarTypes are the sniffed content types accepted for profile pictures
var avatarTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	JWTService     *pkgAuth.JWTService
	Hub            *websocket.Hub
	WSHandler      *websocket.Handler
	ChatLimiter    *ratelimit.Limiter
	FileStorage    filestorage.FileStorage
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.EqualFold(cfg.Logging.Format, "text"),
		Service: "frogmembers-api",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	dbPool, err := db.Connect(context.Background(), cfg, logger.WithComponent("db"))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	migrationsDir := cfg.Server.Migrations
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		dbPool.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, logger.WithComponent("migrations"))
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	repos := appRepos.NewRepositories(dbPool)
	if err := seed.BootstrapAdmins(ctx, repos.ProfileRepository, repos.AdminRoleRepository, cfg.Admin.BootstrapIdentities, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to bootstrap admins, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes repositories, integrations, services and controllers.
// Integrations without configuration are left nil and their endpoints answer 503.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(dbPool)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.Register(v); err != nil {
			return nil, fmt.Errorf("failed to register validators: %w", err)
		}
	}

	storage, err := newFileStorage(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	deps.FileStorage = storage

	notifier := chatops.NewSlackNotifier(
		cfg.ChatOps.WebhookURL,
		cfg.ChatOps.Username,
		helpers.ParseDuration(cfg.ChatOps.Timeout, 5*time.Second),
	)
	if !notifier.Enabled() {
		lgr.Info().Msg("Chat-ops webhook not configured, notifications disabled")
	}

	var gateway payments.Gateway
	if cfg.BillingEnabled() {
		gateway = payments.NewStripeGateway(payments.Config{
			SecretKey:     cfg.Billing.SecretKey,
			WebhookSecret: cfg.Billing.WebhookSecret,
			PriceID:       cfg.Billing.PriceID,
			SuccessURL:    cfg.Billing.SuccessURL,
			CancelURL:     cfg.Billing.CancelURL,
		})
	} else {
		lgr.Info().Msg("Stripe not configured, billing disabled")
	}

	var (
		docs       appServices.DocumentRequester
		authorizer appServices.IntegrationAuthorizer
	)
	if cfg.DocumentsEnabled() {
		sealer, err := tokencrypt.NewSealer(cfg.Security.TokenEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("document integration needs a token encryption key: %w", err)
		}
		timeout := helpers.ParseDuration(cfg.Documents.Timeout, 15*time.Second)
		tokens := documents.NewTokenManager(documents.OAuthConfig{
			ClientID:     cfg.Documents.ClientID,
			ClientSecret: cfg.Documents.ClientSecret,
			AuthURL:      cfg.Documents.AuthURL,
			TokenURL:     cfg.Documents.TokenURL,
			RedirectURL:  cfg.Documents.RedirectURL,
			Scopes:       cfg.Documents.Scopes,
			Timeout:      timeout,
		}, deps.Repos.OAuthTokenRepository, sealer, logger.WithComponent("documents"))
		docs = documents.NewClient(cfg.Documents.APIBaseURL, cfg.Documents.TemplateID, tokens, timeout, logger.WithComponent("documents"))
		authorizer = tokens
	} else {
		lgr.Info().Msg("Document collection not configured, submissions disabled")
	}

	var busy appServices.BusyCalendar
	calendarClient, err := calendar.NewClient(ctx, calendar.Config{
		APIKey:          cfg.Calendar.APIKey,
		CredentialsFile: cfg.Calendar.CredentialsFile,
		CalendarID:      cfg.Calendar.CalendarID,
		Endpoint:        cfg.Calendar.Endpoint,
	})
	switch {
	case err == nil:
		busy = calendarClient
	case errors.Is(err, calendar.ErrNotConfigured):
		lgr.Info().Msg("Calendar not configured, availability disabled")
	default:
		return nil, fmt.Errorf("failed to initialize calendar client: %w", err)
	}

	var completer ai.Completer
	gemini, err := ai.NewGeminiCompleter(ctx, ai.Config{
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		SystemPrompt: cfg.AI.SystemPrompt,
		MaxTokens:    cfg.AI.MaxTokens,
	})
	switch {
	case err == nil:
		completer = gemini
	case errors.Is(err, ai.ErrNotConfigured):
		lgr.Info().Msg("Gemini API key not configured, chat assistant disabled")
	default:
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}

	cmsClient := cms.NewClient(cms.Config{
		BaseURL:          cfg.CMSBaseURL(),
		APIKey:           cfg.CMS.APIKey,
		AllowedEndpoints: cfg.CMS.AllowedEndpoints,
		CacheTTL:         helpers.ParseDuration(cfg.CMS.CacheTTL, 5*time.Minute),
		CacheSize:        cfg.CMS.CacheSize,
		Timeout:          helpers.ParseDuration(cfg.CMS.Timeout, 10*time.Second),
	}, logger.WithComponent("cms"))

	deps.Hub = websocket.NewHub(logger.WithComponent("websocket"))
	deps.ChatLimiter = ratelimit.PerMinute(cfg.RateLimit.ChatPerMinute, cfg.RateLimit.ChatBurst)

	repos := deps.Repos
	svc := &appServices.Services{}
	svc.ProfileService = appServices.NewProfileService(
		repos.ProfileRepository,
		repos.AdminRoleRepository,
		repos.UploadRepository,
		storage,
		filestorage.UploadPolicy{MaxBytes: cfg.Storage.MaxUpload, AllowedTypes: avatarTypes},
		notifier,
		logger.WithComponent("profile"),
	)
	svc.DirectoryService = appServices.NewDirectoryService(repos.ProfileRepository)
	svc.CatalogService = appServices.NewCatalogService(repos.SchoolRepository, repos.CourseRepository, logger.WithComponent("catalog"))
	svc.ApplicationService = appServices.NewApplicationService(
		repos.ApplicationRepository,
		repos.CourseRepository,
		docs,
		cfg.Documents.WebhookSecret,
		notifier,
		logger.WithComponent("applications"),
	)
	svc.ChatService = appServices.NewChatService(
		repos.ChatRepository,
		repos.ProfileRepository,
		completer,
		deps.Hub,
		deps.ChatLimiter,
		cfg.AI.HistoryWindow,
		logger.WithComponent("chat"),
	)
	svc.VisaPlanService = appServices.NewVisaPlanService(repos.VisaPlanRepository, notifier, logger.WithComponent("visa_plans"))
	svc.BillingService = appServices.NewBillingService(repos.ProfileRepository, gateway, cfg.Billing.PortalReturn, logger.WithComponent("billing"))
	svc.ContentService = appServices.NewContentService(cmsClient, logger.WithComponent("content"))
	svc.CalendarService = appServices.NewCalendarService(busy, logger.WithComponent("calendar"))
	svc.AdminService = appServices.NewAdminService(
		repos.ProfileRepository,
		repos.AdminRoleRepository,
		repos.StatsRepository,
		repos.OAuthStateRepository,
		repos.OAuthTokenRepository,
		authorizer,
		logger.WithComponent("admin"),
	)
	deps.Services = svc

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		Leeway:    30 * time.Second,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, svc.ProfileService)
	deps.WSHandler = websocket.NewHandler(deps.Hub, svc.ChatService, cfg.Server.CORSOrigins, logger.WithComponent("websocket"))

	deps.Controllers = appRoutes.Controllers{
		Profile:     appControllers.NewProfileController(svc.ProfileService, svc.DirectoryService),
		Catalog:     appControllers.NewCatalogController(svc.CatalogService),
		Application: appControllers.NewApplicationController(svc.ApplicationService),
		Chat:        appControllers.NewChatController(svc.ChatService),
		VisaPlan:    appControllers.NewVisaPlanController(svc.VisaPlanService),
		Billing:     appControllers.NewBillingController(svc.BillingService),
		Content:     appControllers.NewContentController(svc.ContentService, svc.CalendarService),
		Admin:       appControllers.NewAdminController(svc.AdminService, strings.TrimRight(cfg.Server.AppURL, "/")+"/admin/integrations"),
	}

	return deps, nil
}

// newFileStorage picks the configured object storage driver
func newFileStorage(ctx context.Context, cfg *config.Config) (filestorage.FileStorage, error) {
	if strings.EqualFold(cfg.Storage.Driver, "s3") {
		return filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PublicURL: cfg.Storage.PublicURL,
		})
	}

	baseURL := cfg.Storage.PublicURL
	if baseURL == "" {
		baseURL = strings.TrimRight(cfg.Server.BaseURL, "/") + "/uploads"
	}
	return filestorage.NewLocalStorage(cfg.Storage.Path, baseURL)
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
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(logger.WithComponent("http")), appMiddleware.CORS(cfg.Server.CORSOrigins))
	router.MaxMultipartMemory = cfg.Storage.MaxUpload

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.WSHandler)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
