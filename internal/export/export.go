// Package export persists drained capture sessions to a SQL database.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phinze/rawdelta/internal/store"
)

// ErrNotFound is returned by Load for an unknown session id.
var ErrNotFound = errors.New("export: session not found")

// Session is one exported capture session.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	StartedAt time.Time `json:"started_at"`
	SavedAt   time.Time `json:"saved_at"`
	Count     int       `json:"count"`
	Note      string    `json:"note,omitempty"`

	Samples []SampleRow `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// SampleRow is one stored sample. Seq keeps arrival order.
type SampleRow struct {
	SessionID string `gorm:"primaryKey;size:36"`
	Seq       int    `gorm:"primaryKey;autoIncrement:false"`
	T         int64
	DX        int32
	DY        int32
}

// TableName keeps the table name stable regardless of gorm naming.
func (SampleRow) TableName() string { return "samples" }

// DB stores sessions.
type DB struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema. A dsn starting with
// "postgres" or "mysql" selects that driver; anything else is a SQLite path.
func Open(dsn string) (*DB, error) {
	dial, isSQLite := dialector(dsn)
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	if err := db.AutoMigrate(&Session{}, &SampleRow{}); err != nil {
		return nil, fmt.Errorf("migrate session database: %w", err)
	}
	return &DB{db: db}, nil
}

func dialector(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return postgres.New(postgres.Config{
			DriverName: "pgx",
			DSN:        dsn,
		}), false
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), false
	default:
		return sqlite.Open(dsn), true
	}
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save writes a session and its samples in one transaction and returns the
// new session id.
func (d *DB) Save(ctx context.Context, startedAt time.Time, samples []store.Sample, note string) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		SavedAt:   time.Now(),
		Count:     len(samples),
		Note:      note,
	}
	rows := make([]SampleRow, len(samples))
	for i, sample := range samples {
		rows[i] = SampleRow{SessionID: s.ID, Seq: i, T: sample.T, DX: sample.DX, DY: sample.DY}
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// List returns sessions newest first.
func (d *DB) List(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := d.db.WithContext(ctx).Order("saved_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Load returns a session and its samples in arrival order.
func (d *DB) Load(ctx context.Context, id string) (Session, []store.Sample, error) {
	var s Session
	err := d.db.WithContext(ctx).
		Preload("Samples", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, nil, ErrNotFound
	}
	if err != nil {
		return Session{}, nil, fmt.Errorf("load session %s: %w", id, err)
	}

	samples := make([]store.Sample, len(s.Samples))
	for i, row := range s.Samples {
		samples[i] = store.Sample{T: row.T, DX: row.DX, DY: row.DY}
	}
	s.Samples = nil
	return s, samples, nil
}

// Delete removes a session and its samples.
func (d *DB) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&SampleRow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Session{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
