package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/spigell/linkedai/internal/conversation"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is a single history message stored for a session.
type Entry struct {
	gorm.Model
	SessionID  string `gorm:"index;not null"`
	Sequence   int    `gorm:"not null"`
	Role       string `gorm:"not null"`
	Content    string `gorm:"type:text"`
	ToolCalls  string `gorm:"type:json"`
	ToolCallID string `gorm:"index"`
	Name       string
	IsError    bool
}

// Store keeps an append-only log of conversation messages in SQLite.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("transcript path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate transcript schema: %w", err)
	}

	return &Store{db: db, logger: logger.With(zap.String("transcript", path))}, nil
}

// Session returns a recorder appending messages of one session.
// Numbering continues after the entries already stored for the session.
func (s *Store) Session(id string) *Recorder {
	var count int64
	if err := s.db.Model(&Entry{}).Where("session_id = ?", id).Count(&count).Error; err != nil {
		s.logger.Warn("counting transcript entries", zap.String("session_id", id), zap.Error(err))
	}

	return &Recorder{store: s, sessionID: id, sequence: int(count)}
}

// Entries returns the stored messages of a session in append order.
func (s *Store) Entries(sessionID string) ([]Entry, error) {
	var entries []Entry
	err := s.db.Where("session_id = ?", sessionID).Order("sequence asc").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Recorder stores messages for a single session. Failures are logged and dropped.
type Recorder struct {
	store     *Store
	sessionID string

	mu       sync.Mutex
	sequence int
}

func (r *Recorder) Record(msg conversation.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Entry{
		SessionID:  r.sessionID,
		Sequence:   r.sequence + 1,
		Role:       string(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		Name:       msg.Name,
		IsError:    msg.IsError,
	}

	if len(msg.ToolCalls) > 0 {
		calls, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			r.store.logger.Warn("encoding tool calls for transcript", zap.String("session_id", r.sessionID), zap.Error(err))
			return
		}
		entry.ToolCalls = string(calls)
	}

	if err := r.store.db.Create(&entry).Error; err != nil {
		r.store.logger.Warn("writing transcript entry", zap.String("session_id", r.sessionID), zap.Error(err))
		return
	}

	r.sequence = entry.Sequence
}
