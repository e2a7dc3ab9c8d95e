package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/chiwar/fightcore/internal/config"
	"github.com/chiwar/fightcore/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryDBName is the shared-cache name used when no SQLite path is configured.
const memoryDBName = "fightcore"

// partialIndexes are created after AutoMigrate. GORM tags cannot express
// filtered or expression indexes; the statements are valid on both SQLite
// and Postgres.
var partialIndexes = []string{
	// one active chase per ordered pair; inactive rows are history
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_chase_active_pair
		ON chase_relationships (pursuer_id, evader_id, fight_id) WHERE active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_fight_name
		ON locations (fight_id, lower(name)) WHERE fight_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_locations_site_name
		ON locations (site_id, lower(name)) WHERE site_id IS NOT NULL`,
}

// Manager handles database connections and operations.
type Manager struct {
	DB             *gorm.DB
	SqlDB          *sql.DB
	IsValid        bool
	UsingSQLite    bool
	SqliteFilePath string
	Logger         zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
	}
}

// Connect opens the configured store. A Postgres store that cannot be
// reached falls back to SQLite so the engine stays usable.
func (m *Manager) Connect(cfg config.DBConfig) error {
	var err error

	m.SqliteFilePath = cfg.SQLitePath

	if strings.EqualFold(cfg.Type, "postgres") {
		m.DB, err = GetPostgresDB(cfg)
		if err == nil {
			m.SqlDB, err = m.DB.DB()
		}
		if err == nil {
			err = m.SqlDB.Ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		} else {
			m.Logger.Info().Str("host", cfg.Host).Msg("Connected to Postgres")
			m.SqlDB.SetMaxOpenConns(10)
			m.IsValid = true
			return nil
		}
	}

	m.UsingSQLite = true
	m.DB, err = GetSqliteDB(m.SqliteFilePath)
	if err != nil || m.DB == nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = m.SqlDB.Ping(); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to validate SQLite connection: %w", err)
	}

	// an in-memory database vanishes with its last connection
	m.SqlDB.SetMaxOpenConns(1)

	if m.SqliteFilePath == "" {
		m.Logger.Info().Msg("Using in-memory SQLite DB")
	} else {
		m.Logger.Info().Str("path", m.SqliteFilePath).Msg("Using local SQLite DB")
	}
	m.IsValid = true
	return nil
}

// Setup migrates the schema.
func (m *Manager) Setup() error {
	m.Logger.Info().Msg("Migrating schema")
	if err := Setup(m.DB); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// GetPostgresDB returns a connection to the Postgres database.
func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig())
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDB returns a connection to a SQLite database with foreign keys
// enforced. If path is empty, uses a shared in-memory database.
func GetSqliteDB(path string) (*gorm.DB, error) {
	if path == "" {
		return GetSqliteMemoryDB(memoryDBName)
	}
	return openSqlite(fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
}

// GetSqliteMemoryDB returns a named in-memory database. Distinct names give
// isolated databases, which tests rely on.
func GetSqliteMemoryDB(name string) (*gorm.DB, error) {
	return openSqlite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name))
}

func openSqlite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Setup migrates tables and creates the partial unique indexes.
func Setup(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
