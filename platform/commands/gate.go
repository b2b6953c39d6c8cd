package commands

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/fuad-daoud/warden/platform"
)

// Permitted reports whether the member's effective permissions cover
// required.
func Permitted(guild platform.Guild, member platform.Member, roles []platform.Role, required platform.Permissions) bool {
	if required == platform.PermissionsNone {
		return true
	}
	return platform.EffectivePermissions(guild, member, roles).Has(required)
}

// Outranks reports whether actor's top role is strictly above target's.
// Equal ranks are refused.
func Outranks(guildID snowflake.ID, actor, target platform.Member, roles []platform.Role) bool {
	return platform.MemberRank(guildID, actor, roles).Above(platform.MemberRank(guildID, target, roles))
}

// checkHierarchy is the shared gate of kick, ban, timeout and warn.
func (inv *Invocation) checkHierarchy(target platform.Member, verb string) error {
	if !Outranks(inv.GuildID, inv.Author, target, inv.Roles) {
		return hierarchyError(verb)
	}
	return nil
}
