// Package server wires the TravelKeeper components together and runs the
// REST API and the gRPC health endpoint until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/auth"
	"github.com/dmitrijs2005/travelkeeper/internal/server/catalog"
	"github.com/dmitrijs2005/travelkeeper/internal/server/config"
	"github.com/dmitrijs2005/travelkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/travelkeeper/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/travelkeeper/internal/server/grpc"
)

const catalogCachePrefix = "travelkeeper:artwork:"

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	sessions *services.SessionManager
	projects *services.ProjectService
	places   *services.PlaceService
}

// NewLogger builds the JSON stdout logger at the configured level.
func NewLogger(c *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewJSONLogger(os.Stdout, level), nil
}

// OpenDatabase connects to Postgres and applies pending migrations.
func OpenDatabase(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	return db, rm, nil
}

// NewSessionManager builds the token codec, the password hasher and the
// session manager on top of them.
func NewSessionManager(db *sql.DB, rm repomanager.RepositoryManager, c *config.Config, l logging.Logger) (*services.SessionManager, error) {
	codec, err := auth.NewTokenCodec(c.AccessSecretKey, c.RefreshSecretKey, c.SigningAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	hasher := auth.NewPasswordHasher(c.BcryptCost)

	return services.NewSessionManager(db, rm, codec, hasher, c, l), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := NewLogger(c)
	if err != nil {
		return nil, err
	}

	db, rm, err := OpenDatabase(ctx, c)
	if err != nil {
		return nil, err
	}

	sm, err := NewSessionManager(db, rm, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db, sessions: sm}

	cat := app.newCatalog(ctx)
	app.projects = services.NewProjectService(db, rm, cat, logger)
	app.places = services.NewPlaceService(db, rm, cat, logger)

	return app, nil
}

// newCatalog caches verdicts in Redis when an address is configured and
// reachable, otherwise in process.
func (app *App) newCatalog(ctx context.Context) *catalog.Client {
	var cache catalog.Cache = catalog.NewMemoryCache()

	if app.config.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
		if err := rc.Ping(ctx).Err(); err != nil {
			app.logger.Warn(ctx, "redis unavailable, using in-process catalog cache", "error", err)
			_ = rc.Close()
		} else {
			app.redis = rc
			cache = catalog.NewRedisCache(rc, catalogCachePrefix)
		}
	}

	return catalog.NewClient(app.config.CatalogBaseURL, app.config.CatalogTimeout, app.logger,
		catalog.WithCache(cache, app.config.CatalogCacheTTL))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	api := httpapi.New(app.sessions, app.projects, app.places, app.db, app.logger)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, api.Router(app.config.APIPrefix), app.config.ShutdownTimeout, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives, ctx is cancelled or a server fails,
// then releases the database and cache connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}
