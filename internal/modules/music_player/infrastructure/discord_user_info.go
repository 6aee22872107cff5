package infrastructure

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
)

var _ ports.UserInfoProvider = (*DiscordUserInfoProvider)(nil)

// DiscordUserInfoProvider resolves requester names and avatars from the
// gateway state cache, falling back to the REST API.
type DiscordUserInfoProvider struct {
	session *discordgo.Session
}

// NewDiscordUserInfoProvider creates a new DiscordUserInfoProvider.
func NewDiscordUserInfoProvider(session *discordgo.Session) *DiscordUserInfoProvider {
	return &DiscordUserInfoProvider{session: session}
}

// GetUserInfo returns how the member is shown in guildID.
// Members fetched over REST are added to the state cache.
func (p *DiscordUserInfoProvider) GetUserInfo(guildID, userID snowflake.ID) (*ports.UserInfo, error) {
	gid, uid := guildID.String(), userID.String()

	if member, err := p.session.State.Member(gid, uid); err == nil && member.User != nil {
		return memberInfo(member), nil
	}

	member, err := p.session.GuildMember(gid, uid)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch member %s of guild %s", uid, gid)
	}
	if member.GuildID == "" {
		member.GuildID = gid
	}
	if err := p.session.State.MemberAdd(member); err != nil {
		slog.Debug("failed to cache guild member", "guild", guildID, "user", userID, "error", err)
	}

	return memberInfo(member), nil
}

// memberInfo prefers the guild nickname and guild avatar over the account's.
func memberInfo(member *discordgo.Member) *ports.UserInfo {
	name := member.Nick
	if name == "" {
		name = member.User.GlobalName
	}
	if name == "" {
		name = member.User.Username
	}
	return &ports.UserInfo{
		DisplayName: name,
		AvatarURL:   member.AvatarURL(""),
	}
}
