package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appControllers "github.com/machus/backend/internal/app/controllers"
	appMigrations "github.com/machus/backend/internal/app/migrations"
	appRepos "github.com/machus/backend/internal/app/repositories"
	appRoutes "github.com/machus/backend/internal/app/routes"
	appServices "github.com/machus/backend/internal/app/services"
	"github.com/machus/backend/internal/config"
	"github.com/machus/backend/internal/db"
	appMiddleware "github.com/machus/backend/internal/middleware"
	pkgAuth "github.com/machus/backend/internal/pkg/auth"
	"github.com/machus/backend/internal/pkg/email"
	"github.com/machus/backend/internal/pkg/filestorage"
	"github.com/machus/backend/internal/pkg/helpers"
	"github.com/machus/backend/internal/pkg/logger"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/machus/backend/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	JWTService     *pkgAuth.JWTService
	Mailer         *email.SMTPMailer
	FileStorage    *filestorage.LocalStorage
	CampusEmail    *validation.CampusEmail
	AuthService    *appServices.AuthService
	ProfileService *appServices.ProfileService
	PostService    appServices.PostService

	AuthController    *appControllers.AuthController
	ProfileController *appControllers.ProfileController
	PostController    *appControllers.PostController
	AuthMiddleware    *appMiddleware.AuthMiddleware

	Logger zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	format := strings.ToLower(cfg.Logging.Format)
	lgr := logger.Configure(logger.Config{
		Level:  logger.LogLevel(strings.ToLower(cfg.Logging.Level)),
		Pretty: format == "console" || format == "text",
	})

	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds admins.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		dbPool.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	// seeding problems are logged and do not block startup
	if err := seed.PromoteAdmins(ctx, appRepos.NewUserRepository(dbPool), cfg.Campus.AdminEmails, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to promote admins, proceeding anyway...")
	}
	if err := seed.PruneExpiredTokens(ctx, appRepos.NewTokenRepository(dbPool), time.Now(), lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to prune expired tokens, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	var err error

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.CampusEmail, err = validation.NewCampusEmail(cfg.Campus.EmailPattern)
	if err != nil {
		return nil, err
	}
	if err := appMiddleware.RegisterValidators(deps.CampusEmail); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix, cfg.Storage.MaxAvatarSize)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenExp:    helpers.ParseDuration(cfg.JWT.Expiration, 168*time.Hour),
		TokenIssuer: cfg.JWT.Issuer,
	})

	deps.Mailer = email.NewSMTPMailer(email.SMTPConfig{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		From:        cfg.Mail.From,
		FrontendURL: cfg.Campus.FrontendURL,
	}, lgr)
	if !cfg.MailEnabled() {
		lgr.Warn().Msg("SMTP not configured, account mails will only be logged")
	}

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.Repos.AccountRepository,
		deps.JWTService,
		deps.Mailer,
		lgr,
	)
	deps.ProfileService = appServices.NewProfileService(deps.Repos.UserRepository, deps.FileStorage, lgr)
	deps.PostService = appServices.NewPostService(
		deps.Repos.PostRepository,
		deps.Repos.ParticipationRepository,
		deps.Repos.UserRepository,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.UserRepository)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.ProfileController = appControllers.NewProfileController(deps.ProfileService, lgr)
	deps.PostController = appControllers.NewPostController(deps.PostService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr), appMiddleware.Metrics())
	router.MaxMultipartMemory = cfg.Storage.MaxAvatarSize + 1<<20

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.ProfileController,
		deps.PostController,
		deps.AuthMiddleware,
	)

	router.Static(deps.FileStorage.PublicPrefix(), deps.FileStorage.BasePath())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
