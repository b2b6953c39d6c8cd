package commands

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
	"github.com/fuad-daoud/warden/platform/platformtest"
	"github.com/fuad-daoud/warden/tasks"
)

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: status 404", url)
	}
	return body, nil
}

type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	tags    map[string]map[string]string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}, tags: map[string]map[string]string{}}
}

func (a *fakeArchive) Key(guildID snowflake.ID, name string) string {
	return "backups/" + guildID.String() + "/" + name
}

func (a *fakeArchive) Upload(_ context.Context, key string, body []byte, tags map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = append([]byte(nil), body...)
	a.tags[key] = tags
	return nil
}

func (a *fakeArchive) Download(_ context.Context, key string, _ int64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	body, ok := a.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: not found", key)
	}
	return body, nil
}

// harness is a guild with an administrator, a moderator and two plain
// members, wired to a dispatcher over the fake client.
type harness struct {
	fake    *platformtest.Fake
	h       *Handlers
	d       *Dispatcher
	guild   snowflake.ID
	channel snowflake.ID

	adminRole, modRole platform.Role
	admin, mod, user   *platform.Member
	other              *platform.Member

	fetcher *fakeFetcher
	archive *fakeArchive
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := platformtest.New()
	g := fake.AddGuild(platform.Guild{
		Name:    "Test Guild",
		OwnerID: 999,
		Emojis: []platform.Emoji{
			{ID: 501, Name: "pog"},
			{ID: 502, Name: "dance", Animated: true},
		},
	})
	hs := &harness{
		fake:    fake,
		guild:   g.ID,
		fetcher: &fakeFetcher{bodies: map[string][]byte{}},
		archive: newFakeArchive(),
	}
	hs.adminRole = fake.AddRole(g.ID, platform.Role{Name: "Admin", Position: 3, Color: 0xff0000, Permissions: platform.PermissionAdministrator})
	hs.modRole = fake.AddRole(g.ID, platform.Role{Name: "Moderator", Position: 2, Color: 0x00ff00, Mentionable: true,
		Permissions: platform.PermissionKickMembers | platform.PermissionBanMembers | platform.PermissionModerateMembers |
			platform.PermissionManageMessages | platform.PermissionManageChannels | platform.PermissionManageNicknames |
			platform.PermissionManageGuild})
	hs.channel = fake.AddChannel(g.ID, platform.Channel{Name: "general", Position: 0}).ID

	hs.admin = fake.AddMember(g.ID, platform.Member{User: platform.User{Username: "alice"}, RoleIDs: []snowflake.ID{hs.adminRole.ID}})
	hs.mod = fake.AddMember(g.ID, platform.Member{User: platform.User{Username: "bob"}, RoleIDs: []snowflake.ID{hs.modRole.ID}})
	hs.user = fake.AddMember(g.ID, platform.Member{User: platform.User{Username: "carol"}})
	hs.other = fake.AddMember(g.ID, platform.Member{User: platform.User{Username: "dave"}, Nick: "Davey"})

	scheduler := tasks.NewScheduler(nil, nil)
	t.Cleanup(scheduler.Stop)

	h, err := New(Deps{
		Client:    fake,
		Scheduler: scheduler,
		Fetcher:   hs.fetcher,
		Archive:   hs.archive,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	hs.h = h
	hs.d = NewDispatcher(h.Registry(), fake, DispatcherConfig{})
	return hs
}

// run dispatches a prefix invocation.
func (hs *harness) run(author *platform.Member, name string, tokens ...string) *platformtest.Responder {
	return hs.dispatch(platform.CommandEvent{Author: *author, Name: name, Tokens: tokens})
}

// slash dispatches a slash invocation.
func (hs *harness) slash(author *platform.Member, name string, options map[string]string) *platformtest.Responder {
	return hs.dispatch(platform.CommandEvent{Author: *author, Name: name, Slash: true, Options: options})
}

func (hs *harness) dispatch(event platform.CommandEvent) *platformtest.Responder {
	r := &platformtest.Responder{}
	event.GuildID = hs.guild
	if event.ChannelID == 0 {
		event.ChannelID = hs.channel
	}
	event.Responder = r
	hs.d.Dispatch(context.Background(), event)
	return r
}

func (hs *harness) member(t *testing.T, m *platform.Member) *platform.Member {
	t.Helper()
	out, err := hs.fake.Member(context.Background(), hs.guild, m.ID)
	require.NoError(t, err)
	return out
}

func fieldValue(t *testing.T, create platform.MessageCreate, name string) string {
	t.Helper()
	require.NotEmpty(t, create.Embeds, "reply has no embed")
	for _, f := range create.Embeds[0].Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("no field %q in %+v", name, create.Embeds[0].Fields)
	return ""
}
