package services

import (
	"context"
	"testing"

	"accessctl/internal/metrics"
	"accessctl/internal/models"
	apperrors "accessctl/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSingleRoleIssuesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "karyawan3")
	staff := f.role(t, "Staff")
	f.assign(t, u, staff)
	root := f.menu(t, "MENU_3", nil, 3)
	f.menu(t, "MENU_3_1", root, 1)
	f.grant(t, staff, root, models.DefaultPermissionSet())

	result, err := f.auth.Login(ctx, "karyawan3", "karyawan3-pass")
	require.NoError(t, err)
	assert.False(t, result.RequireRoleSelection)
	assert.Nil(t, result.Selection)
	require.NotNil(t, result.Session)

	assert.Equal(t, staff.ID, result.Session.Role.ID)
	assert.Equal(t, "Staff", result.Session.Role.Name)
	require.Len(t, result.Session.Menus, 1)
	assert.Len(t, result.Session.Menus[0].Children, 1)

	claims, err := f.jwt.VerifyToken(result.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, staff.ID, claims.RoleID)
	assert.Equal(t, "Staff", claims.RoleName)
}

func TestLoginMultiRoleRequiresSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "karyawan1")
	manager := f.role(t, "Manager")
	staff := f.role(t, "Staff")
	other := f.role(t, "Auditor")
	f.assign(t, u, staff)
	f.assign(t, u, manager)

	result, err := f.auth.Login(ctx, "karyawan1", "karyawan1-pass")
	require.NoError(t, err)
	assert.True(t, result.RequireRoleSelection)
	assert.Nil(t, result.Session)
	require.NotNil(t, result.Selection)
	require.Len(t, result.Selection.Roles, 2)
	assert.Equal(t, manager.ID, result.Selection.Roles[0].RoleID)

	// 凭据不是会话令牌
	_, err = f.jwt.VerifyToken(result.Selection.SelectionTicket)
	assert.Error(t, err)
	require.NoError(t, f.auth.VerifySelectionTicket(result.Selection.SelectionTicket, u.ID))
	err = f.auth.VerifySelectionTicket(result.Selection.SelectionTicket, u.ID+1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = f.auth.SelectRole(ctx, u.ID, other.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidRoleForUser))

	session, err := f.auth.SelectRole(ctx, u.ID, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, "Manager", session.Role.Name)
	assert.Equal(t, "Manager role", session.Role.Description)
	assert.NotNil(t, session.Menus)

	claims, err := f.jwt.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, claims.RoleID)
}

func TestLoginFailuresShareMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "alice")
	f.assign(t, u, f.role(t, "Staff"))
	inactive := f.user(t, "bob")
	f.assign(t, inactive, f.role(t, "Manager"))
	_, err := f.users.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "whatever"},
		{"wrong password", "alice", "not-the-password"},
		{"inactive user", "bob", "bob-pass"},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tt.username, tt.password)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindInvalidCredentials, apperrors.KindOf(err))
			messages = append(messages, apperrors.MessageOf(err))
		})
	}
	require.Len(t, messages, 3)
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[0], messages[2])
}

func TestLoginWithoutRoles(t *testing.T) {
	f := newFixture(t)
	f.user(t, "lonely")

	_, err := f.auth.Login(context.Background(), "lonely", "lonely-pass")
	assert.Equal(t, apperrors.KindNoRolesAssigned, apperrors.KindOf(err))
}

func TestProfileAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "karyawan4")
	manager := f.role(t, "Manager")
	staff := f.role(t, "Staff")
	f.assign(t, u, manager)
	f.assign(t, u, staff)
	f.grant(t, manager, f.menu(t, "MENU_1", nil, 1), models.FullPermissionSet())

	session, err := f.auth.SelectRole(ctx, u.ID, manager.ID)
	require.NoError(t, err)
	claims, err := f.jwt.VerifyToken(session.Token)
	require.NoError(t, err)

	profile, err := f.auth.Profile(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, u.ID, profile.User.ID)
	assert.Equal(t, manager.ID, profile.CurrentRole.ID)
	assert.Equal(t, "Manager role", profile.CurrentRole.Description)
	assert.Len(t, profile.AvailableRoles, 2)
	assert.Len(t, profile.Menus, 1)

	refreshed, err := f.auth.Refresh(claims)
	require.NoError(t, err)
	again, err := f.jwt.VerifyToken(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, claims.RoleID, again.RoleID)

	f.auth.Logout(claims)
}

func TestSelectRoleCountsOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "karyawan5")
	staff := f.role(t, "Staff")
	other := f.role(t, "Auditor")
	f.assign(t, u, staff)

	count := func(outcome string) float64 {
		return testutil.ToFloat64(metrics.RoleSelections.WithLabelValues(outcome))
	}
	success := count(metrics.SelectionSuccess)
	invalid := count(metrics.SelectionInvalidRole)
	inactive := count(metrics.SelectionInactive)

	_, err := f.auth.SelectRole(ctx, u.ID, other.ID)
	require.Error(t, err)
	_, err = f.auth.SelectRole(ctx, u.ID, staff.ID)
	require.NoError(t, err)

	assert.Equal(t, invalid+1, count(metrics.SelectionInvalidRole))
	assert.Equal(t, success+1, count(metrics.SelectionSuccess))
	assert.Equal(t, inactive, count(metrics.SelectionInactive))
}
