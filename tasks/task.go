// Package tasks schedules delayed callbacks such as reminders and giveaway
// draws, persisting them so they survive a restart.
package tasks

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrStopped  = errors.New("scheduler stopped")
)

type Kind string

const (
	KindReminder Kind = "reminder"
	KindGiveaway Kind = "giveaway"
)

type Task struct {
	ID        string
	Kind      Kind
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	MessageID snowflake.ID
	Payload   map[string]string
	DueAt     time.Time
	CreatedAt time.Time
}

// Store persists pending tasks.
type Store interface {
	Save(ctx context.Context, task Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Task, error)
}

// Runner carries out a due task.
type Runner func(ctx context.Context, task Task) error

// Filter selects pending tasks; zero fields match everything.
type Filter struct {
	Kind    Kind
	GuildID snowflake.ID
	UserID  snowflake.ID
}

func (f Filter) Match(task Task) bool {
	return (f.Kind == "" || f.Kind == task.Kind) &&
		(f.GuildID == 0 || f.GuildID == task.GuildID) &&
		(f.UserID == 0 || f.UserID == task.UserID)
}
