// Package backup captures a guild's roles and channels as a Snapshot and
// rebuilds a guild from one.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/fuad-daoud/warden/platform"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

type Snapshot struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IconURL     *string   `json:"icon_url"`
	Roles       []Role    `json:"roles"`
	Channels    []Channel `json:"channels"`
}

// Role is identified by name alone.
type Role struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Permissions uint64 `json:"permissions"`
}

type Channel struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Category *string `json:"category"`
}

func (c Channel) CategoryName() string {
	if c.Category == nil {
		return ""
	}
	return *c.Category
}

// Reconstructible reports whether restore can create a channel of this type.
func (c Channel) Reconstructible() bool {
	return c.Type == string(platform.ChannelKindText) || c.Type == string(platform.ChannelKindVoice)
}

func (s Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Parse decodes a snapshot file. It checks the shape only; bad values inside
// single roles are reported by the restore that meets them.
func Parse(data []byte) (*Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	for _, key := range []string{"name", "roles", "channels"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidSnapshot, key)
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if strings.TrimSpace(snap.Name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidSnapshot)
	}
	return &snap, nil
}

// ParseColor reads "#rrggbb" (the leading # is optional).
func ParseColor(s string) (int, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if hex == "" || len(hex) > 6 {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q", s)
	}
	return int(v), nil
}

// FileName is the name the snapshot is handed out under.
func FileName(guildID snowflake.ID, at time.Time) string {
	return fmt.Sprintf("backup_%s_%s.txt", guildID, at.UTC().Format("20060102_150405"))
}
