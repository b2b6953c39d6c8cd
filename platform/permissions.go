package platform

import "github.com/disgoorg/disgo/discord"

// Permissions is disgo's permission bitmask.
type Permissions = discord.Permissions

const (
	PermissionKickMembers     = discord.PermissionKickMembers
	PermissionBanMembers      = discord.PermissionBanMembers
	PermissionAdministrator   = discord.PermissionAdministrator
	PermissionManageChannels  = discord.PermissionManageChannels
	PermissionManageGuild     = discord.PermissionManageGuild
	PermissionViewChannel     = discord.PermissionViewChannel
	PermissionSendMessages    = discord.PermissionSendMessages
	PermissionManageMessages  = discord.PermissionManageMessages
	PermissionManageNicknames = discord.PermissionManageNicknames
	PermissionModerateMembers = discord.PermissionModerateMembers

	PermissionsNone = discord.PermissionsNone
	PermissionsAll  = discord.PermissionsAll
)

// discord.Permissions.String has no display name for these bits.
const untitled = discord.PermissionCreateGuildExpressions | discord.PermissionCreateEvents

// PermissionTitles lists the permissions in p by display name, lowest bit
// first. Permissions.String walks a map, so its order changes between calls.
func PermissionTitles(p Permissions) []string {
	named := p & discord.PermissionsAll &^ untitled
	var titles []string
	for bit := Permissions(1); bit > 0 && bit <= named; bit <<= 1 {
		if named&bit != 0 {
			titles = append(titles, bit.String())
		}
	}
	return titles
}
