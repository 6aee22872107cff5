package usecases

import (
	"context"
	"slices"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/ascend/internal/modules/music_player/application/ports"
)

// MemberPermissions describes the member running a command.
type MemberPermissions struct {
	GuildID     snowflake.ID
	RoleIDs     []snowflake.ID
	ManageGuild bool
}

// SetDJRoleInput contains the input for the SetDJRole use case.
type SetDJRoleInput struct {
	Member MemberPermissions
	RoleID snowflake.ID // 0 clears the role
}

// PermissionService guards the queue controls behind the guild's DJ role.
// Without a DJ role every member may use them.
type PermissionService struct {
	roles ports.DJRoleStore
}

// NewPermissionService creates a new PermissionService. roles may be nil,
// which leaves every control open.
func NewPermissionService(roles ports.DJRoleStore) *PermissionService {
	return &PermissionService{roles: roles}
}

// RequireDJ returns ErrDJRequired unless the member may use restricted controls.
func (s *PermissionService) RequireDJ(ctx context.Context, member MemberPermissions) error {
	if member.ManageGuild || s.roles == nil {
		return nil
	}

	roleID, err := s.roles.LoadDJRole(ctx, member.GuildID)
	if err != nil {
		return err
	}
	if roleID == 0 || slices.Contains(member.RoleIDs, roleID) {
		return nil
	}
	return ErrDJRequired
}

// DJRole returns the guild's DJ role, or 0 when none is set.
func (s *PermissionService) DJRole(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	if s.roles == nil {
		return 0, nil
	}
	return s.roles.LoadDJRole(ctx, guildID)
}

// SetDJRole sets or clears the guild's DJ role. Only members with the
// Manage Server permission may change it.
func (s *PermissionService) SetDJRole(ctx context.Context, input SetDJRoleInput) error {
	if !input.Member.ManageGuild {
		return ErrManageGuildRequired
	}
	if s.roles == nil {
		return ErrSettingsUnavailable
	}
	return s.roles.SaveDJRole(ctx, input.Member.GuildID, input.RoleID)
}
