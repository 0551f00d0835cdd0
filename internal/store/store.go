package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no session exists for a code.
var ErrNotFound = errors.New("session not found")

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Session is the persisted room metadata and document snapshot. It outlives
// the in-memory room: when every connection is gone the room is discarded and
// this row is what seeds the next one.
type Session struct {
	ID          string  `gorm:"primaryKey;size:36"`
	SessionCode string  `gorm:"uniqueIndex;size:8;not null"`
	Title       *string `gorm:"size:255"`
	Language    string  `gorm:"size:50;not null;default:python"`
	Code        string  `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists sessions via GORM, sqlite by default or postgres when a
// DATABASE_URL is configured.
type Store struct {
	db *gorm.DB
}

// Open connects to postgres when databaseURL is set, otherwise to a local
// sqlite file, and migrates the schema.
func Open(databaseURL, sqlitePath string) (*Store, error) {
	var dialector gorm.Dialector
	if databaseURL != "" {
		dialector = postgres.Open(databaseURL)
	} else {
		if dir := filepath.Dir(sqlitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dialector = sqlite.Open(sqlitePath)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open connection (used in tests).
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Create inserts a new session with a unique 8-character code, regenerating
// on the (unlikely) collision.
func (s *Store) Create(ctx context.Context, title *string, language string) (Session, error) {
	if language == "" {
		language = "python"
	}
	for {
		code, err := generateSessionCode()
		if err != nil {
			return Session{}, err
		}
		sess := Session{
			ID:          uuid.New().String(),
			SessionCode: code,
			Title:       title,
			Language:    language,
			Code:        "",
		}
		result := s.db.WithContext(ctx).Create(&sess)
		if result.Error == nil {
			return sess, nil
		}
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			continue
		}
		// Not every driver maps unique violations; retry once via lookup.
		if _, lookupErr := s.GetByCode(ctx, code); lookupErr == nil {
			continue
		}
		return Session{}, fmt.Errorf("create session: %w", result.Error)
	}
}

// GetByCode fetches a session; codes are case-insensitive and stored upper.
func (s *Store) GetByCode(ctx context.Context, code string) (Session, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Where("session_code = ?", strings.ToUpper(code)).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// UpdateCode writes through the latest document text for a session.
func (s *Store) UpdateCode(ctx context.Context, code, text string) error {
	return s.updateColumn(ctx, code, "code", text)
}

// UpdateLanguage writes through the latest language tag for a session.
func (s *Store) UpdateLanguage(ctx context.Context, code, language string) error {
	return s.updateColumn(ctx, code, "language", language)
}

func (s *Store) updateColumn(ctx context.Context, code, column string, value any) error {
	result := s.db.WithContext(ctx).
		Model(&Session{}).
		Where("session_code = ?", strings.ToUpper(code)).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("update session %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIdleBefore removes sessions not touched since the cutoff and reports
// how many rows went away.
func (s *Store) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func generateSessionCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session code: %w", err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
