package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/stockrag/internal/queue"
	mid "github.com/OFFIS-RIT/stockrag/internal/server/middleware"
	"github.com/OFFIS-RIT/stockrag/internal/setup"
	"github.com/OFFIS-RIT/stockrag/internal/storage"
	"github.com/OFFIS-RIT/stockrag/internal/util"
	"github.com/OFFIS-RIT/stockrag/pkg/leaselock"
	"github.com/OFFIS-RIT/stockrag/pkg/logger"
	pgstore "github.com/OFFIS-RIT/stockrag/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New returns an echo instance with the validator, the shared middlewares and
// all routes registered for app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "512M")))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWTs are only accepted when a JWKS endpoint is configured. Without it
	// the master key is the only credential.
	var k keyfunc.Keyfunc
	if authURL := util.GetEnvString("AUTH_URL", ""); authURL != "" {
		var err error
		k, err = keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
	}

	if util.GetEnvBool("MIGRATE_ON_START", true) {
		if err := pgstore.Migrate(util.GetEnv("DATABASE_URL"), util.GetEnvString("MIGRATIONS_PATH", "migrations")); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
	}

	pool, err := setup.Pool(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer pool.Close()

	que, err := queue.Init(queue.URLFromEnv())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create S3 client", "err", err)
	}
	bucket, err := storage.NewBucket(s3Client)
	if err != nil {
		logger.Fatal("Could not configure bucket", "err", err)
	}

	aiClient, err := setup.AIClient()
	if err != nil {
		logger.Fatal("Could not create AI client", "err", err)
	}

	_, maxTokens := setup.UnitSettings()
	e := New(&mid.App{
		Storage:  pgstore.NewGraphDBStorageWithConnection(pool),
		Locks:    leaselock.New(pool),
		Queue:    ch,
		Key:      k,
		Bucket:   bucket,
		AiClient: aiClient,
		Graph:    setup.GraphOptions(),

		MaxTokens:    maxTokens,
		LeaseTTL:     util.GetEnvMinutes("LEASE_TTL_MIN", 5),
		MasterAPIKey: util.GetEnvString("MASTER_API_KEY", ""),
	})

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
