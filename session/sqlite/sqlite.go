// Package sqlite provides durable ProfileStore and SessionStore
// implementations over a sqlite database (pure-Go modernc driver, no cgo).
// Schema migration runs on open; each method is a single transactional
// statement, matching the core contract that every write is atomic on its
// own.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avachat/ava/core"
)

// Store implements core.ProfileStore and core.SessionStore over one shared
// database handle. *sql.DB is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates a Store using the given database path and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewWithDB creates a Store using an existing database connection.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			display_name TEXT,
			safe_word_hash TEXT,
			exit_word TEXT,
			persona TEXT NOT NULL DEFAULT 'assistant',
			age_verified INTEGER NOT NULL DEFAULT 0,
			avatar_ref TEXT,
			created_at TEXT NOT NULL,
			last_active_at TEXT
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			turn_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			persona TEXT NOT NULL,
			memory_ids TEXT,
			created_at TEXT NOT NULL,
			seq INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the profile for the user or core.ErrProfileNotFound.
func (s *Store) Get(ctx context.Context, userID string) (*core.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(display_name, ''), COALESCE(safe_word_hash, ''),
		       COALESCE(exit_word, ''), persona, age_verified,
		       COALESCE(avatar_ref, ''), created_at, COALESCE(last_active_at, '')
		FROM profiles WHERE id = ?`, userID)

	var p core.Profile
	var persona string
	var ageVerified int
	var createdAt, lastActive string
	err := row.Scan(&p.ID, &p.DisplayName, &p.SafeWordHash, &p.ExitWord,
		&persona, &ageVerified, &p.AvatarRef, &createdAt, &lastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	p.Persona = core.ParsePersona(persona)
	p.AgeVerified = ageVerified != 0
	p.CreatedAt = parseTime(createdAt)
	p.LastActiveAt = parseTime(lastActive)
	return &p, nil
}

// Save persists the full profile record.
func (s *Store) Save(ctx context.Context, profile *core.Profile) error {
	createdAt := profile.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, safe_word_hash, exit_word, persona,
		                      age_verified, avatar_ref, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			safe_word_hash = excluded.safe_word_hash,
			exit_word = excluded.exit_word,
			persona = excluded.persona,
			age_verified = excluded.age_verified,
			avatar_ref = excluded.avatar_ref,
			last_active_at = excluded.last_active_at`,
		profile.ID, profile.DisplayName, profile.SafeWordHash, profile.ExitWord,
		string(profile.Persona), boolToInt(profile.AgeVerified), profile.AvatarRef,
		formatTime(createdAt), formatTime(profile.LastActiveAt))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Create opens a new session owned by userID.
func (s *Store) Create(ctx context.Context, userID string) (*core.Session, error) {
	session := &core.Session{ID: core.NewID(), UserID: userID, StartedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, started_at, turn_count) VALUES (?, ?, ?, 0)`,
		session.ID, session.UserID, formatTime(session.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession returns the session or core.ErrSessionNotFound.
//
// Named GetSession (not Get) because the profile lookup already claims Get
// on this shared store; wrap the store with As* helpers when two distinct
// interface values are needed.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, started_at, turn_count FROM sessions WHERE id = ?`, sessionID)
	var session core.Session
	var startedAt string
	err := row.Scan(&session.ID, &session.UserID, &startedAt, &session.TurnCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	session.StartedAt = parseTime(startedAt)
	return &session, nil
}

// AppendTurn appends one turn to the session's ordered log.
func (s *Store) AppendTurn(ctx context.Context, turn core.Turn) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, user_id, role, content, persona, memory_ids, created_at, seq)
		SELECT ?, id, ?, ?, ?, ?, ?, ?,
		       (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?)
		FROM sessions WHERE id = ?`,
		turn.ID, turn.UserID, string(turn.Role), turn.Content, string(turn.Persona),
		joinIDs(turn.MemoryIDs), formatTime(turn.CreatedAt), turn.SessionID, turn.SessionID)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// TagTurnMemories records memory ids on a previously appended turn.
func (s *Store) TagTurnMemories(ctx context.Context, turnID string, memoryIDs []string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE turns SET memory_ids = ? WHERE id = ?`, joinIDs(memoryIDs), turnID)
	if err != nil {
		return fmt.Errorf("tag turn: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrTurnNotFound
	}
	return nil
}

// RecentTurns returns up to limit most recent turns in chronological order.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, user_id, role, content, persona, COALESCE(memory_ids, ''), created_at
		FROM (
			SELECT * FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var turn core.Turn
		var role, persona, memoryIDs, createdAt string
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserID, &role,
			&turn.Content, &persona, &memoryIDs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Role = core.Role(role)
		turn.Persona = core.ParsePersona(persona)
		turn.MemoryIDs = splitIDs(memoryIDs)
		turn.CreatedAt = parseTime(createdAt)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// IncrementTurnCount adds n to the session's turn counter.
func (s *Store) IncrementTurnCount(ctx context.Context, sessionID string, n int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET turn_count = turn_count + ? WHERE id = ?`, n, sessionID)
	if err != nil {
		return fmt.Errorf("increment turn count: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

// Sessions adapts the store to core.SessionStore, resolving the Get naming
// collision with the profile side.
func (s *Store) Sessions() core.SessionStore { return &sessionView{s} }

// Profiles adapts the store to core.ProfileStore.
func (s *Store) Profiles() core.ProfileStore { return s }

type sessionView struct{ *Store }

func (v *sessionView) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	return v.GetSession(ctx, sessionID)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func joinIDs(ids []string) string { return strings.Join(ids, ",") }

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
