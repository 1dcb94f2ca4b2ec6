package testdoubles

import (
	"context"
	"sync"
)

// ContextualLogRecord is one captured call of a ContextualLoggerSpy.
type ContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Ctx     context.Context
}

// ContextualLoggerSpy implements tablestore.ContextualLogger and captures every call.
type ContextualLoggerSpy struct {
	mu      sync.Mutex
	records []ContextualLogRecord
}

// NewContextualLoggerSpy creates a ContextualLoggerSpy.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.capture(ctx, "debug", msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.capture(ctx, "info", msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.capture(ctx, "warn", msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.capture(ctx, "error", msg, args)
}

func (s *ContextualLoggerSpy) capture(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, ContextualLogRecord{Level: level, Message: msg, Args: args, Ctx: ctx})
}

// GetRecords returns a copy of all captured calls.
func (s *ContextualLoggerSpy) GetRecords() []ContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]ContextualLogRecord, len(s.records))
	copy(records, s.records)

	return records
}

// HasRecord checks if there is a captured call with the specified level and message.
func (s *ContextualLoggerSpy) HasRecord(level, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Level == level && record.Message == message {
			return true
		}
	}

	return false
}

// HasRecordWithContextValue checks if a call with the specified message received a context carrying value under key.
func (s *ContextualLoggerSpy) HasRecordWithContextValue(message string, key, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Message == message && record.Ctx != nil && record.Ctx.Value(key) == value {
			return true
		}
	}

	return false
}
