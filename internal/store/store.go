// Package store persists job descriptions and saved personas through gorm.
// SQLite is the default backend; Postgres is selected with database.driver.
package store

import (
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"time"

	"personakit/internal/config"
	"personakit/internal/errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ErrNotFound is wrapped by every lookup miss
var ErrNotFound = stderrors.New("record not found")

// JobDescriptionRecord is the stored form of types.JobDescription
type JobDescriptionRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    string    `gorm:"column:role_id;not null;index"`
	RoleName  string    `gorm:"column:role_name"`
	Title     string    `gorm:"column:title"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (JobDescriptionRecord) TableName() string { return "job_descriptions" }

func (r *JobDescriptionRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PersonaRecord is a saved persona. The category tree and the generation
// baseline are stored as JSON documents.
type PersonaRecord struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name             string         `gorm:"column:name;not null"`
	Notes            string         `gorm:"column:persona_notes;type:text"`
	RoleID           string         `gorm:"column:role_id;index"`
	RoleName         string         `gorm:"column:role_name"`
	JobDescriptionID string         `gorm:"column:job_description_id;index"`
	Categories       datatypes.JSON `gorm:"column:categories;not null"`
	Baseline         datatypes.JSON `gorm:"column:baseline"`
	CategoryCount    int            `gorm:"column:category_count;not null;default:0"`
	CreatedAt        time.Time      `gorm:"not null;index"`
	UpdatedAt        time.Time      `gorm:"not null;index"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (PersonaRecord) TableName() string { return "personas" }

func (r *PersonaRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Open connects to the configured database, applies pool settings and
// migrates the schema when autoMigrate is set
func Open(cfg config.DatabaseConfig, logger *errors.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("unsupported database driver: %s", cfg.Driver), nil)
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodePersistenceFailed,
			fmt.Sprintf("failed to connect to %s", cfg.Driver), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodePersistenceFailed, "failed to access connection pool", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	if logger != nil {
		logger.Info("Database opened", "driver", cfg.Driver, "auto_migrate", cfg.AutoMigrate)
	}
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&JobDescriptionRecord{}, &PersonaRecord{}); err != nil {
		return errors.NewStorageError(errors.ErrCodePersistenceFailed, "schema migration failed", err)
	}
	return nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection, for health reporting
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// parseID maps malformed identifiers to a not-found error so callers see one failure mode
func parseID(id, code, what string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, notFound(code, what, id)
	}
	return parsed, nil
}

func notFound(code, what, id string) error {
	return errors.NewStorageError(code, fmt.Sprintf("%s %q not found", what, id), ErrNotFound).
		WithContext("id", id)
}

func storageFailure(op string, err error) error {
	return errors.NewStorageError(errors.ErrCodePersistenceFailed, op, err)
}
