package tasks

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	guild_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	payload TEXT NOT NULL,
	due_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_at);
`

// SQLiteStore keeps tasks in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, task Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, kind, guild_id, channel_id, user_id, message_id, payload, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			guild_id = excluded.guild_id,
			channel_id = excluded.channel_id,
			user_id = excluded.user_id,
			message_id = excluded.message_id,
			payload = excluded.payload,
			due_at = excluded.due_at`,
		task.ID, string(task.Kind),
		task.GuildID.String(), task.ChannelID.String(), task.UserID.String(), task.MessageID.String(),
		string(payload), task.DueAt.UnixMilli(), task.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, guild_id, channel_id, user_id, message_id, payload, due_at, created_at
		FROM tasks ORDER BY due_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			task                                Task
			kind, payload                       string
			guildID, channelID, userID, message string
			dueAt, createdAt                    int64
		)
		if err = rows.Scan(&task.ID, &kind, &guildID, &channelID, &userID, &message, &payload, &dueAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		task.Kind = Kind(kind)
		if task.GuildID, err = parseID(guildID); err != nil {
			return nil, err
		}
		if task.ChannelID, err = parseID(channelID); err != nil {
			return nil, err
		}
		if task.UserID, err = parseID(userID); err != nil {
			return nil, err
		}
		if task.MessageID, err = parseID(message); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(payload), &task.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload of %s: %w", task.ID, err)
		}
		task.DueAt = time.UnixMilli(dueAt)
		task.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, task)
	}
	return out, rows.Err()
}

func parseID(s string) (snowflake.ID, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	id, err := snowflake.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parsing id %q: %w", s, err)
	}
	return id, nil
}
