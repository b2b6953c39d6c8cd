package backup

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

// Produce reads the guild's structure. Roles are recorded lowest first,
// skipping @everyone, so that restore's reversed creation stacks them back
// in their original order. Nothing is mutated.
func Produce(ctx context.Context, client platform.Client, guildID snowflake.ID) (*Snapshot, error) {
	guild, err := client.Guild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("reading guild: %w", err)
	}
	roles, err := client.Roles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	channels, err := client.Channels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("reading channels: %w", err)
	}

	snap := &Snapshot{
		Name:     guild.Name,
		Roles:    make([]Role, 0, len(roles)),
		Channels: make([]Channel, 0, len(channels)),
	}
	if guild.Description != "" {
		snap.Description = &guild.Description
	}
	if guild.IconURL != "" {
		snap.IconURL = &guild.IconURL
	}

	platform.SortRoles(roles)
	for i := len(roles) - 1; i >= 0; i-- {
		role := roles[i]
		if role.IsDefault(guildID) {
			continue
		}
		snap.Roles = append(snap.Roles, Role{
			Name:        role.Name,
			Color:       role.ColorHex(),
			Permissions: uint64(role.Permissions),
		})
	}

	categories := map[snowflake.ID]string{}
	for _, c := range channels {
		if c.Kind == platform.ChannelKindCategory {
			categories[c.ID] = c.Name
		}
	}
	for _, c := range channels {
		channel := Channel{Name: c.Name, Type: string(c.Kind)}
		if name, ok := categories[c.ParentID]; ok && c.ParentID != 0 {
			channel.Category = &name
		}
		snap.Channels = append(snap.Channels, channel)
	}
	return snap, nil
}
