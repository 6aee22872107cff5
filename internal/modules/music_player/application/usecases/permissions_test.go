package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDJRoleID = snowflake.ID(900)

type mockDJRoleStore struct {
	roles   map[snowflake.ID]snowflake.ID
	loadErr error
}

func newMockDJRoleStore() *mockDJRoleStore {
	return &mockDJRoleStore{roles: make(map[snowflake.ID]snowflake.ID)}
}

func (m *mockDJRoleStore) LoadDJRole(_ context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return m.roles[guildID], nil
}

func (m *mockDJRoleStore) SaveDJRole(_ context.Context, guildID, roleID snowflake.ID) error {
	m.roles[guildID] = roleID
	return nil
}

func TestPermissionService_RequireDJ(t *testing.T) {
	tests := []struct {
		name    string
		djRole  snowflake.ID
		member  MemberPermissions
		wantErr error
	}{
		{
			name:   "no dj role allows everyone",
			member: MemberPermissions{GuildID: testGuildID},
		},
		{
			name:   "member with the dj role",
			djRole: testDJRoleID,
			member: MemberPermissions{GuildID: testGuildID, RoleIDs: []snowflake.ID{5, testDJRoleID}},
		},
		{
			name:   "manage guild bypasses the dj role",
			djRole: testDJRoleID,
			member: MemberPermissions{GuildID: testGuildID, ManageGuild: true},
		},
		{
			name:    "member without the dj role",
			djRole:  testDJRoleID,
			member:  MemberPermissions{GuildID: testGuildID, RoleIDs: []snowflake.ID{5}},
			wantErr: ErrDJRequired,
		},
		{
			name:    "member without roles",
			djRole:  testDJRoleID,
			member:  MemberPermissions{GuildID: testGuildID},
			wantErr: ErrDJRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockDJRoleStore()
			if tt.djRole != 0 {
				store.roles[testGuildID] = tt.djRole
			}
			service := NewPermissionService(store)

			err := service.RequireDJ(context.Background(), tt.member)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPermissionService_RequireDJStoreError(t *testing.T) {
	store := newMockDJRoleStore()
	store.loadErr = errors.New("database locked")
	service := NewPermissionService(store)

	err := service.RequireDJ(context.Background(), MemberPermissions{GuildID: testGuildID})

	assert.ErrorContains(t, err, "database locked")
}

func TestPermissionService_NilStoreAllows(t *testing.T) {
	service := NewPermissionService(nil)

	assert.NoError(t, service.RequireDJ(context.Background(), MemberPermissions{GuildID: testGuildID}))

	err := service.SetDJRole(context.Background(), SetDJRoleInput{
		Member: MemberPermissions{GuildID: testGuildID, ManageGuild: true},
		RoleID: testDJRoleID,
	})
	assert.ErrorIs(t, err, ErrSettingsUnavailable)
}

func TestPermissionService_SetDJRole(t *testing.T) {
	store := newMockDJRoleStore()
	service := NewPermissionService(store)
	admin := MemberPermissions{GuildID: testGuildID, ManageGuild: true}

	err := service.SetDJRole(context.Background(), SetDJRoleInput{
		Member: MemberPermissions{GuildID: testGuildID, RoleIDs: []snowflake.ID{testDJRoleID}},
		RoleID: testDJRoleID,
	})
	assert.ErrorIs(t, err, ErrManageGuildRequired)

	require.NoError(t, service.SetDJRole(context.Background(), SetDJRoleInput{Member: admin, RoleID: testDJRoleID}))
	role, err := service.DJRole(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Equal(t, testDJRoleID, role)

	require.NoError(t, service.SetDJRole(context.Background(), SetDJRoleInput{Member: admin}))
	role, err = service.DJRole(context.Background(), testGuildID)
	require.NoError(t, err)
	assert.Zero(t, role)
}
