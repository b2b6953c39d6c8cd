package commands

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

type marker struct {
	Name  string
	Color int
}

// warningMarkers are the ladder's roles, least severe first.
var warningMarkers = [3]marker{
	{Name: "First Warning", Color: colorGold},
	{Name: "Second Warning", Color: colorOrange},
	{Name: "Final Warning", Color: colorRed},
}

const warningTimeout = 10 * time.Minute

// markerCache holds the marker role IDs per guild. Resolution for one guild
// is serialized so concurrent warns never create a marker twice.
type markerCache struct {
	mu     sync.Mutex
	guilds map[snowflake.ID]*guildMarkers
}

type guildMarkers struct {
	mu  sync.Mutex
	ids [3]snowflake.ID
}

func newMarkerCache() *markerCache {
	return &markerCache{guilds: map[snowflake.ID]*guildMarkers{}}
}

func (c *markerCache) guild(guildID snowflake.ID) *guildMarkers {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guilds[guildID]
	if !ok {
		g = &guildMarkers{}
		c.guilds[guildID] = g
	}
	return g
}

// resolve finds or creates the three marker roles.
func (c *markerCache) resolve(ctx context.Context, client platform.Client, guildID snowflake.ID) ([3]snowflake.ID, error) {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ids[0] != 0 && g.ids[1] != 0 && g.ids[2] != 0 {
		return g.ids, nil
	}
	roles, err := client.Roles(ctx, guildID)
	if err != nil {
		return g.ids, fmt.Errorf("listing roles: %w", err)
	}
	for i, m := range warningMarkers {
		g.ids[i] = 0
		for _, r := range roles {
			if r.Name == m.Name {
				g.ids[i] = r.ID
				break
			}
		}
		if g.ids[i] != 0 {
			continue
		}
		created, err := client.CreateRole(ctx, guildID, platform.RoleCreate{Name: m.Name, Color: m.Color})
		if err != nil {
			return g.ids, fmt.Errorf("creating %s role: %w", m.Name, err)
		}
		g.ids[i] = created.ID
	}
	return g.ids, nil
}

func (c *markerCache) forget(guildID snowflake.ID) {
	g := c.guild(guildID)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids = [3]snowflake.ID{}
}

func heldMarkers(member platform.Member, ids [3]snowflake.ID) int {
	n := 0
	for _, id := range ids {
		if member.HasRole(id) {
			n++
		}
	}
	return n
}

func (h *Handlers) warn(ctx context.Context, inv *Invocation) error {
	target, err := h.target(ctx, inv, "warn")
	if err != nil {
		return err
	}
	reason := inv.String("reason")

	next, action, err := h.applyWarning(ctx, inv.GuildID, *target, reason)
	if errors.Is(err, platform.ErrNotFound) {
		// a cached marker role was deleted behind our back
		h.markers.forget(inv.GuildID)
		next, action, err = h.applyWarning(ctx, inv.GuildID, *target, reason)
	}
	if err != nil {
		return err
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("⚠️ Warning System", "", colorYellow,
		field("Member", target.Mention()),
		field("Warning #", fmt.Sprint(next)),
		field("Action", action),
		field("Reason", reason),
		field("Moderator", inv.Author.Mention()),
	))
	return err
}

func (h *Handlers) applyWarning(ctx context.Context, guildID snowflake.ID, target platform.Member, reason string) (int, string, error) {
	ids, err := h.markers.resolve(ctx, h.Client, guildID)
	if err != nil {
		return 0, "", err
	}
	next := heldMarkers(target, ids) + 1
	if next <= len(ids) {
		if err = h.Client.AddMemberRole(ctx, guildID, target.ID, ids[next-1], reason); err != nil {
			return 0, "", fmt.Errorf("adding %s: %w", warningMarkers[next-1].Name, err)
		}
		return next, fmt.Sprintf("Received Warning #%d", next), nil
	}
	until := h.Now().Add(warningTimeout)
	if err = h.Client.Timeout(ctx, guildID, target.ID, &until, "Exceeded warning limit"); err != nil {
		return 0, "", fmt.Errorf("timing out %s: %w", target.Username, err)
	}
	return next, "Timed out for 10 minutes (Warning limit exceeded)", nil
}

func (h *Handlers) unwarn(ctx context.Context, inv *Invocation) error {
	target, err := inv.Member(ctx, "member")
	if err != nil {
		return err
	}
	for i := len(warningMarkers) - 1; i >= 0; i-- {
		name := warningMarkers[i].Name
		for _, r := range inv.Roles {
			if r.Name != name || !target.HasRole(r.ID) {
				continue
			}
			if err = h.Client.RemoveMemberRole(ctx, inv.GuildID, target.ID, r.ID, "warning removed"); err != nil {
				return fmt.Errorf("removing %s: %w", name, err)
			}
			_, err = inv.ReplyEmbed(ctx, newEmbed("Warning Removed", "", colorGreen,
				field("Member", target.Mention()),
				field("Removed Warning", name),
				field("Moderator", inv.Author.Mention()),
			))
			return err
		}
	}
	_, err = inv.ReplyEmbed(ctx, newEmbed("No Warnings", target.Mention()+" has no warnings to remove.", colorBlue))
	return err
}
