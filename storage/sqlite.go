package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"kidtube/youtube"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	daily_limit_minutes INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS whitelist_items (
	id TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	youtube_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL,
	channel_id TEXT NOT NULL DEFAULT '',
	channel_title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	UNIQUE(profile_id, youtube_id)
);

CREATE TABLE IF NOT EXISTS watch_history (
	id TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	video_id TEXT NOT NULL,
	title TEXT NOT NULL,
	seconds INTEGER NOT NULL,
	watched_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_watch_history_profile_time ON watch_history(profile_id, watched_at);
`

// SQLiteStore implements Store on an SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	hub *hub
	now func() time.Time
	log zerolog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock replaces time.Now for timestamps and "today" boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *SQLiteStore) {
		s.log = log.With().Str("component", "storage").Logger()
	}
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Entity: "store", Err: fmt.Errorf("apply schema: %w", err)}
	}

	s := &SQLiteStore{
		db:  db,
		hub: newHub(),
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- ProfileStore implementation ---

func (s *SQLiteStore) CreateProfile(ctx context.Context, profile *Profile) error {
	if err := validateProfile(profile); err != nil {
		return &StorageError{Op: "create", Entity: "profile", Err: err}
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, daily_limit_minutes, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		profile.ID, profile.Name, nullInt(profile.DailyLimitMinutes), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return &StorageError{Op: "create", Entity: "profile", ID: profile.ID, Err: mapConstraint(err)}
	}
	profile.CreatedAt = time.UnixMilli(now.UnixMilli())
	profile.UpdatedAt = profile.CreatedAt

	s.hub.notify(profileKey(profile.ID))
	return nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, daily_limit_minutes, created_at, updated_at FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "read", Entity: "profile", ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "profile", ID: id, Err: err}
	}
	return p, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, profile *Profile) error {
	if err := validateProfile(profile); err != nil {
		return &StorageError{Op: "update", Entity: "profile", Err: err}
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET name = ?, daily_limit_minutes = ?, updated_at = ? WHERE id = ?`,
		profile.Name, nullInt(profile.DailyLimitMinutes), now.UnixMilli(), profile.ID)
	if err != nil {
		return &StorageError{Op: "update", Entity: "profile", ID: profile.ID, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StorageError{Op: "update", Entity: "profile", ID: profile.ID, Err: ErrNotFound}
	}
	profile.UpdatedAt = time.UnixMilli(now.UnixMilli())

	s.hub.notify(profileKey(profile.ID))
	return nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, daily_limit_minutes, created_at, updated_at FROM profiles ORDER BY created_at, rowid`)
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "profile", Err: err}
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, &StorageError{Op: "list", Entity: "profile", Err: err}
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Entity: "profile", Err: err}
	}
	return profiles, nil
}

func (s *SQLiteStore) StreamProfile(ctx context.Context, id string) <-chan *Profile {
	out := make(chan *Profile)
	changes, unsubscribe := s.hub.subscribe(profileKey(id))

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			p, err := s.GetProfile(ctx, id)
			switch {
			case err == nil, errors.Is(err, ErrNotFound):
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			case ctx.Err() != nil:
				return
			default:
				s.log.Warn().Str("profile", id).Err(err).Msg("profile stream query failed")
			}

			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// --- WhitelistStore implementation ---

func (s *SQLiteStore) CreateItem(ctx context.Context, profileID string, m youtube.Metadata) (*WhitelistItem, error) {
	if profileID == "" || m == nil || m.ID() == "" {
		return nil, &StorageError{Op: "create", Entity: "item", Err: ErrInvalidInput}
	}

	item := itemFromMetadata(profileID, m)
	item.ID = uuid.NewString()
	item.CreatedAt = time.UnixMilli(s.now().UnixMilli())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO whitelist_items
			(id, profile_id, youtube_id, kind, title, thumbnail_url, channel_id, channel_title, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProfileID, item.YouTubeID, item.Kind.String(), item.Title, item.ThumbnailURL,
		item.ChannelID, item.ChannelTitle, item.Description, item.CreatedAt.UnixMilli())
	if err != nil {
		return nil, &StorageError{Op: "create", Entity: "item", ID: item.YouTubeID, Err: mapConstraint(err)}
	}

	s.log.Debug().Str("profile", profileID).Str("id", item.YouTubeID).Str("kind", item.Kind.String()).Msg("item created")
	return item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, profileID string) ([]*WhitelistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, youtube_id, kind, title, thumbnail_url, channel_id, channel_title, description, created_at
			FROM whitelist_items WHERE profile_id = ? ORDER BY created_at, rowid`, profileID)
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "item", ID: profileID, Err: err}
	}
	defer rows.Close()

	var items []*WhitelistItem
	for rows.Next() {
		var (
			item      WhitelistItem
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&item.ID, &item.ProfileID, &item.YouTubeID, &kind, &item.Title, &item.ThumbnailURL,
			&item.ChannelID, &item.ChannelTitle, &item.Description, &createdAt); err != nil {
			return nil, &StorageError{Op: "list", Entity: "item", ID: profileID, Err: err}
		}
		k, ok := youtube.ParseKind(kind)
		if !ok {
			return nil, &StorageError{Op: "list", Entity: "item", ID: item.ID, Err: fmt.Errorf("unknown kind %q", kind)}
		}
		item.Kind = k
		item.CreatedAt = time.UnixMilli(createdAt)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Entity: "item", ID: profileID, Err: err}
	}
	return items, nil
}

func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM whitelist_items WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Op: "delete", Entity: "item", ID: id, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StorageError{Op: "delete", Entity: "item", ID: id, Err: ErrNotFound}
	}
	return nil
}

// --- WatchHistoryStore implementation ---

func (s *SQLiteStore) RecordWatch(ctx context.Context, profileID, videoID, title string, seconds int) error {
	if profileID == "" || videoID == "" || seconds < 0 {
		return &StorageError{Op: "create", Entity: "watch", ID: videoID, Err: ErrInvalidInput}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_history (id, profile_id, video_id, title, seconds, watched_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), profileID, videoID, title, seconds, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "create", Entity: "watch", ID: videoID, Err: mapConstraint(err)}
	}

	s.hub.notify(watchKey(profileID))
	return nil
}

func (s *SQLiteStore) WatchedSecondsOn(ctx context.Context, profileID string, day time.Time) (int, error) {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(seconds), 0) FROM watch_history WHERE profile_id = ? AND watched_at >= ? AND watched_at < ?`,
		profileID, start.UnixMilli(), end.UnixMilli()).Scan(&total)
	if err != nil {
		return 0, &StorageError{Op: "read", Entity: "watch", ID: profileID, Err: err}
	}
	return total, nil
}

// ListWatches returns the most recent entries of a profile, newest first.
func (s *SQLiteStore) ListWatches(ctx context.Context, profileID string, limit int) ([]*WatchEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, profile_id, video_id, title, seconds, watched_at FROM watch_history
			WHERE profile_id = ? ORDER BY watched_at DESC, rowid DESC LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list", Entity: "watch", ID: profileID, Err: err}
	}
	defer rows.Close()

	var entries []*WatchEntry
	for rows.Next() {
		var (
			e         WatchEntry
			watchedAt int64
		)
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.VideoID, &e.Title, &e.Seconds, &watchedAt); err != nil {
			return nil, &StorageError{Op: "list", Entity: "watch", ID: profileID, Err: err}
		}
		e.WatchedAt = time.UnixMilli(watchedAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Entity: "watch", ID: profileID, Err: err}
	}
	return entries, nil
}

func (s *SQLiteStore) StreamWatchedSecondsToday(ctx context.Context, profileID string) <-chan int {
	out := make(chan int)
	changes, unsubscribe := s.hub.subscribe(watchKey(profileID))

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			now := s.now()
			total, err := s.WatchedSecondsOn(ctx, profileID, now)
			if err == nil {
				select {
				case out <- total:
				case <-ctx.Done():
					return
				}
			} else if ctx.Err() != nil {
				return
			} else {
				s.log.Warn().Str("profile", profileID).Err(err).Msg("watch stream query failed")
			}

			midnight := time.NewTimer(startOfDay(now).AddDate(0, 0, 1).Sub(now))
			select {
			case <-changes:
			case <-midnight.C:
			case <-ctx.Done():
				midnight.Stop()
				return
			}
			midnight.Stop()
		}
	}()
	return out
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p       Profile
		limit   sql.NullInt64
		created int64
		updated int64
	)
	if err := row.Scan(&p.ID, &p.Name, &limit, &created, &updated); err != nil {
		return nil, err
	}
	if limit.Valid {
		v := int(limit.Int64)
		p.DailyLimitMinutes = &v
	}
	p.CreatedAt = time.UnixMilli(created)
	p.UpdatedAt = time.UnixMilli(updated)
	return &p, nil
}

func validateProfile(p *Profile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidInput
	}
	if p.DailyLimitMinutes != nil && *p.DailyLimitMinutes < 0 {
		return fmt.Errorf("%w: negative daily limit", ErrInvalidInput)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// mapConstraint turns SQLite constraint violations into storage sentinels.
func mapConstraint(err error) error {
	switch {
	case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed"),
		isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: unknown profile: %w", ErrNotFound, err)
	}
	return err
}

func isConstraint(err error, code int, text string) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == code {
		return true
	}
	return strings.Contains(err.Error(), text)
}
