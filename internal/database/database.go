package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	tracing "gorm.io/plugin/opentelemetry/tracing"
)

var ErrNilDatabase = errors.New("database is nil")

// implements usecase.Repository
type service struct {
	db    *gorm.DB
	cache TypeCache
}

// Open connects to the configured driver with slog query logging and
// tracing installed.
func Open(cfg config.DBConfig, logger *slog.Logger, level string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		sqlDB, err := sql.Open("pgx", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewSlogGormLogger(logger, level),
	})
	if err != nil {
		return nil, err
	}

	if err := gormDB.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing: %w", err)
	}

	db, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConnections)
	}

	return gormDB, nil
}

// Migrate creates the schema and seeds the reference asset types.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		AssetType{},
		Asset{},
		AssetStock{},
		AssetHome{},
		AssetSnapshot{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	seed := []string{
		usecase.TypeCar,
		usecase.TypeHome,
		usecase.TypeInvestment,
		usecase.TypeStock,
		usecase.TypeCash,
		usecase.TypeOther,
	}
	types := make([]AssetType, len(seed))
	for i, name := range seed {
		types[i] = AssetType{Name: name}
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error; err != nil {
		return fmt.Errorf("seed asset types: %w", err)
	}
	return nil
}

// New wraps an open connection. cache may be nil.
func New(db *gorm.DB, cache TypeCache) (*service, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	return &service{db: db, cache: cache}, nil
}

func (s *service) WithTx(ctx context.Context, fn func(usecase.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&service{db: tx, cache: s.cache})
	})
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	db, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	// Ping the database
	if err := db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	// Database is up, add more statistics
	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
