package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/layers/db"
)

// taskNode is the property set of a (:Task) node. IDs are strings so they
// never pass through a float.
type taskNode struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
	Payload   string `json:"payload"`
	DueAt     int64  `json:"dueAt"`
	CreatedAt int64  `json:"createdAt"`
}

func toNode(task Task) (taskNode, error) {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return taskNode{}, fmt.Errorf("encoding payload: %w", err)
	}
	return taskNode{
		ID:        task.ID,
		Kind:      string(task.Kind),
		GuildID:   task.GuildID.String(),
		ChannelID: task.ChannelID.String(),
		UserID:    task.UserID.String(),
		MessageID: task.MessageID.String(),
		Payload:   string(payload),
		DueAt:     task.DueAt.UnixMilli(),
		CreatedAt: task.CreatedAt.UnixMilli(),
	}, nil
}

func (n taskNode) task() (Task, error) {
	task := Task{
		ID:        n.ID,
		Kind:      Kind(n.Kind),
		DueAt:     time.UnixMilli(n.DueAt),
		CreatedAt: time.UnixMilli(n.CreatedAt),
	}
	var err error
	if task.GuildID, err = parseID(n.GuildID); err != nil {
		return task, err
	}
	if task.ChannelID, err = parseID(n.ChannelID); err != nil {
		return task, err
	}
	if task.UserID, err = parseID(n.UserID); err != nil {
		return task, err
	}
	if task.MessageID, err = parseID(n.MessageID); err != nil {
		return task, err
	}
	if n.Payload != "" {
		if err = json.Unmarshal([]byte(n.Payload), &task.Payload); err != nil {
			return task, fmt.Errorf("decoding payload of %s: %w", n.ID, err)
		}
	}
	return task, nil
}

// GraphStore keeps tasks as nodes in Neo4j.
type GraphStore struct {
	conn *db.Connection
}

func NewGraphStore(conn *db.Connection) *GraphStore {
	return &GraphStore{conn: conn}
}

func (g *GraphStore) Save(ctx context.Context, task Task) error {
	node, err := toNode(task)
	if err != nil {
		return err
	}
	props, err := db.Properties(node)
	if err != nil {
		return fmt.Errorf("task %s: %w", task.ID, err)
	}
	return g.conn.Transaction(ctx, func(write db.Write) error {
		return write(db.Params{"id": task.ID, "props": map[string]any(props)},
			db.Merge("(t:Task {id: $id})"), db.Set("t", "props"))
	})
}

func (g *GraphStore) Delete(ctx context.Context, id string) error {
	return g.conn.Transaction(ctx, func(write db.Write) error {
		return write(db.Params{"id": id}, db.Match("(t:Task {id: $id})"), db.DetachDelete("t"))
	})
}

func (g *GraphStore) List(ctx context.Context) ([]Task, error) {
	result, err := g.conn.Query(ctx, nil, db.Match("(t:Task)"), db.Return("t"), db.OrderBy("t.dueAt", "t.id"))
	if err != nil {
		return nil, err
	}
	nodes, err := db.ParseAll[taskNode]("t", result.Records)
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(nodes))
	for _, n := range nodes {
		task, err := n.task()
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}
