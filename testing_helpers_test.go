package credentials

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testDefaultGroupID = "daa83771-c2f2-43b5-ac6f-7fb4f75d842a"

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, ApplyMigrations(context.Background(), db, "sqlite"))
	return db
}

func newTestManager(t *testing.T) (RepositoryManager, *bun.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewRepositoryManager(db, WithStateMachineLogger(&captureLogger{})), db
}

func testSettings() *Settings {
	s := DefaultSettings()
	s.AppName = "Acme"
	s.BaseURL = "https://acme.test"
	s.MailFrom = "accounts@acme.test"
	s.BcryptCost = 4
	return s
}

func registerPendingUser(t *testing.T, repo RepositoryManager, email string) *User {
	t.Helper()
	user, err := repo.Users().Register(context.Background(), &User{
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          email,
		PasswordHash:   "hash",
		ActivationCode: NewActivationCode(),
	})
	require.NoError(t, err)
	return user
}

func registerActiveUser(t *testing.T, repo RepositoryManager, email string) *User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	user, err := repo.Users().Register(context.Background(), &User{
		FirstName:    "John",
		LastName:     "Smith",
		Email:        email,
		PasswordHash: "hash",
		Status:       UserStatusActive,
		ActivatedAt:  &now,
	})
	require.NoError(t, err)
	return user
}

func listRevisions(t *testing.T, repo RepositoryManager, userID uuid.UUID) map[string]*Revision {
	t.Helper()
	records, err := repo.Revisions().ListForRevisionable(context.Background(), revisionTypeUser, userID, 0)
	require.NoError(t, err)

	out := make(map[string]*Revision, len(records))
	for _, r := range records {
		out[r.Key] = r
	}
	return out
}

type captureMailer struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

type captureSink struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) types() []ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type logCall struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, message string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: message, args: args})
}

func (l *captureLogger) Trace(message string, args ...any) { l.record("trace", message, args...) }
func (l *captureLogger) Debug(message string, args ...any) { l.record("debug", message, args...) }
func (l *captureLogger) Info(message string, args ...any)  { l.record("info", message, args...) }
func (l *captureLogger) Warn(message string, args ...any)  { l.record("warn", message, args...) }
func (l *captureLogger) Error(message string, args ...any) { l.record("error", message, args...) }
func (l *captureLogger) Fatal(message string, args ...any) { l.record("fatal", message, args...) }
func (l *captureLogger) WithContext(context.Context) Logger {
	return l
}

func (l *captureLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c.message)
		}
	}
	return out
}

func commandTestOptions(mailer Mailer, sink ActivitySink, logger Logger) []CommandOption {
	return []CommandOption{
		WithCommandConfig(testSettings()),
		WithCommandMailer(mailer),
		WithCommandActivitySink(sink),
		WithCommandLogger(logger),
	}
}
