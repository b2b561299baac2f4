package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/widget-sidebar/app/bootstrap"
	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// runtime is what every command works against once configuration is loaded
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *gorm.DB
	rc    *redis.Client
	flows *bootstrap.Flows
	stops []func()
}

func newRuntime(configFile string) (*runtime, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, log)
	if err != nil {
		closeDatabase(db)
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, db: db, rc: rc}
	prefix := cfg.Cache.RedisPrefix
	rt.flows = bootstrap.NewFlows(db, rc, prefix, log)

	if rc != nil {
		ctx, cancel := context.WithCancel(context.Background())
		rt.stops = append(rt.stops, cancel)
		if n, ok := rt.flows.Notifier.(*services.RedisNotifier); ok {
			if err := n.StartForwarder(ctx); err != nil {
				log.Warn("change event forwarding disabled", "error", err)
			}
		}
	}
	return rt, nil
}

func (rt *runtime) migrate() error {
	if err := rt.db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	rt.log.Info("schema migrated", "driver", rt.cfg.Database.Driver)
	return nil
}

// close stops background workers in reverse start order and releases connections
func (rt *runtime) close() {
	for i := len(rt.stops) - 1; i >= 0; i-- {
		rt.stops[i]()
	}
	rt.flows.Close()
	if rt.rc != nil {
		if err := rt.rc.Close(); err != nil {
			rt.log.Warn("redis close failed", "error", err)
		}
	}
	closeDatabase(rt.db)
	rt.log.Sync()
}

// gormWriter routes gorm's slow query and error lines to the service logger
type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn(fmt.Sprintf(format, args...), "source", "gorm")
}

func newGormLogger(cfg config.DatabaseConfig, log *logger.Logger) gormlogger.Interface {
	level := gormlogger.Error
	if cfg.SlowQueryLog {
		level = gormlogger.Warn
	}
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryTime,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// initializeDatabase opens the configured database with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn, err := cfg.PostgresDSN()
		if err != nil {
			return nil, err
		}
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.Path)
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg, log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "postgres" {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connection established", "driver", cfg.Driver, "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// initializeCache connects to redis when it is the configured provider; nil
// means caches stay in process
func initializeCache(cfg config.CacheConfig, log *logger.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor pings redis periodically until the returned
// function is called
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, log *logger.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("redis healthcheck failed", "error", err)
				}
				c()
			}
		}
	}()
	return cancel
}
