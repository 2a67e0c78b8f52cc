package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/idisk/backend/internal/queue"
	mid "github.com/OFFIS-RIT/idisk/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/idisk/backend/internal/storage"
	"github.com/OFFIS-RIT/idisk/backend/internal/util"
	"github.com/OFFIS-RIT/idisk/backend/pkg/graph"
	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
	neo4jstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/neo4j"
	pgstore "github.com/OFFIS-RIT/idisk/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

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

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWT authentication is optional, the master key always works
	var k keyfunc.Keyfunc
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		key, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		k = key
	}

	vocab, err := util.LoadVocabulary()
	if err != nil {
		logger.Fatal("Failed to load vocabulary", "err", err)
	}

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := pgstore.Migrate(databaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}
	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	// Lint against the live graph when Neo4j is configured
	var schema graph.Schema = graph.VocabularySchema{Vocabulary: vocab}
	neo, err := neo4jstore.NewClientFromEnv(ctx)
	switch {
	case errors.Is(err, neo4jstore.ErrNotConfigured):
	case err != nil:
		logger.Warn("Neo4j unavailable, linting against the vocabulary", "err", err)
	default:
		defer neo.Close(context.Background())
		schema = neo
	}

	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	app := &mid.App{
		DBConn:       conn,
		Queue:        ch,
		Key:          k,
		S3:           s3,
		Vocab:        vocab,
		Schema:       schema,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		MasterUserID: masterUserID,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(util.GetEnvString("BODY_LIMIT", "4G")))

	RegisterRoutes(e)

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
