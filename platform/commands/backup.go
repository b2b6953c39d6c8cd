package commands

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/backup"
	"github.com/fuad-daoud/warden/platform"
)

var errNoArchive = errors.New("no snapshot archive is configured")

func (h *Handlers) serverBackup(ctx context.Context, inv *Invocation) error {
	if err := h.sendBackup(ctx, inv); err != nil {
		h.Logger.Warn("backup failed", "guild", inv.GuildID, "err", err)
		_, err = inv.ReplyText(ctx, "❌ Failed to create backup: %v", err)
		return err
	}
	_, err := inv.ReplyText(ctx, "✅ Server backup has been created and sent to your DMs!")
	return err
}

func (h *Handlers) sendBackup(ctx context.Context, inv *Invocation) error {
	snap, err := backup.Produce(ctx, h.Client, inv.GuildID)
	if err != nil {
		return err
	}
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	now := h.Now()
	name := backup.FileName(inv.GuildID, now)
	embed := newEmbed("📑 Server Backup", "", colorGreen,
		field("Server Name", snap.Name),
		field("Backup Time", now.UTC().Format("2006-01-02 15:04:05 UTC")),
		field("Roles Backed Up", fmt.Sprint(len(snap.Roles))),
		field("Channels Backed Up", fmt.Sprint(len(snap.Channels))),
	)
	if h.Archive != nil {
		key := h.Archive.Key(inv.GuildID, name)
		tags := map[string]string{"guild": inv.GuildID.String(), "requested-by": inv.Author.ID.String()}
		if err = h.Archive.Upload(ctx, key, data, tags); err != nil {
			h.Logger.Warn("could not archive snapshot", "guild", inv.GuildID, "key", key, "err", err)
		} else {
			embed.Fields = append(embed.Fields, wideField("Archive Key", "`"+key+"`"))
		}
	}
	_, err = h.Client.SendDirect(ctx, inv.Author.ID, platform.MessageCreate{
		Embeds: []platform.Embed{embed},
		Files:  []platform.File{{Name: name, Reader: bytes.NewReader(data)}},
	})
	if err != nil {
		return fmt.Errorf("sending DM: %w", err)
	}
	return nil
}

// loadSnapshot reads the snapshot named by the invocation: an attached file
// or an archive key. ok is false when neither was given.
func (h *Handlers) loadSnapshot(ctx context.Context, inv *Invocation) (data []byte, ok bool, err error) {
	if a, found := inv.Attachment("backup_file"); found {
		if h.MaxSnapshotBytes > 0 && int64(a.Size) > h.MaxSnapshotBytes {
			return nil, true, fmt.Errorf("%s is %d bytes, the limit is %d", a.Filename, a.Size, h.MaxSnapshotBytes)
		}
		data, err = h.Fetcher.Get(ctx, a.URL)
		return data, true, err
	}
	key := strings.TrimSpace(inv.String("key"))
	if key == "" {
		return nil, false, nil
	}
	if h.Archive == nil {
		return nil, true, errNoArchive
	}
	if key, err = h.archiveKey(inv.GuildID, key); err != nil {
		return nil, true, err
	}
	data, err = h.Archive.Download(ctx, key, h.MaxSnapshotBytes)
	return data, true, err
}

// archiveKey keeps key inside the guild's own archive folder. A bare file
// name is looked up in that folder.
func (h *Handlers) archiveKey(guildID snowflake.ID, key string) (string, error) {
	if !strings.Contains(key, "/") {
		key = h.Archive.Key(guildID, key)
	}
	folder := strings.TrimSuffix(h.Archive.Key(guildID, ""), "/") + "/"
	cleaned := path.Clean(key)
	if !strings.HasPrefix(cleaned, folder) {
		return "", fmt.Errorf("%s is not in this server's archive", key)
	}
	return cleaned, nil
}

func (h *Handlers) restoreBackup(ctx context.Context, inv *Invocation) error {
	data, ok, err := h.loadSnapshot(ctx, inv)
	if !ok {
		_, err = inv.ReplyText(ctx, "Please attach a backup file or give an archive key!")
		return err
	}
	var snap *backup.Snapshot
	if err == nil {
		snap, err = backup.Parse(data)
	}
	if err != nil {
		_, err = inv.ReplyText(ctx, "❌ Error restoring backup: %v", err)
		return err
	}

	progress, err := inv.ReplyText(ctx, "🔄 Starting server restoration...")
	if err != nil {
		return err
	}
	log := h.Logger.With("guild", inv.GuildID, "user", inv.Author.ID)
	log.Info("restore started", "roles", len(snap.Roles), "channels", len(snap.Channels))
	result, runErr := backup.NewExecutor(h.Client, h.RestoreDelay, log).Restore(ctx, inv.GuildID, inv.ChannelID, snap)
	if runErr != nil {
		log.Warn("restore stopped", "err", runErr, "items", len(result.Items))
	}

	final := platform.MessageCreate{
		Content: "✅ Server restoration completed!",
		Embeds:  []platform.Embed{restoreSummary(result)},
	}
	if runErr != nil {
		final.Content = fmt.Sprintf("⚠️ Server restoration stopped: %v", runErr)
	}
	// the invocation context may be what ended the run
	reportCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err = inv.Responder.Edit(reportCtx, progress.ID, final); err != nil {
		log.Debug("could not edit restore progress, sending instead", "err", err)
		_, err = h.Client.SendMessage(reportCtx, inv.ChannelID, final)
	}
	return err
}

var stepTitles = map[backup.Step]string{
	backup.StepDeleteChannel:  "Channels Deleted",
	backup.StepDeleteRole:     "Roles Deleted",
	backup.StepCreateRole:     "Roles Created",
	backup.StepCreateCategory: "Categories Created",
	backup.StepCreateChannel:  "Channels Created",
	backup.StepUpdateGuild:    "Server Settings",
}

const maxListedFailures = 10

func restoreSummary(result backup.Result) platform.Embed {
	failures := result.Failures()
	color := colorGreen
	if len(failures) > 0 {
		color = colorOrange
	}
	embed := newEmbed("📑 Restore Summary", "", color)
	for _, step := range backup.Steps {
		c := result.Counts(step)
		if c == (backup.Counts{}) {
			continue
		}
		embed.Fields = append(embed.Fields, field(stepTitles[step],
			fmt.Sprintf("✅ %d | ❌ %d | ⏭️ %d", c.Succeeded, c.Failed, c.Skipped)))
	}
	if len(failures) > 0 {
		lines := make([]string, 0, maxListedFailures+1)
		for i, f := range failures {
			if i == maxListedFailures {
				lines = append(lines, fmt.Sprintf("...and %d more", len(failures)-maxListedFailures))
				break
			}
			lines = append(lines, fmt.Sprintf("%s `%s`: %s", f.Step, f.Name, truncate(f.Reason, 80)))
		}
		embed.Fields = append(embed.Fields, wideField("Failures", strings.Join(lines, "\n")))
	}
	return embed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
