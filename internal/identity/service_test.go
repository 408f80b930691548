package identity

import (
	"context"
	"testing"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct{}

func (m *mockAuthenticator) GenerateToken(_ context.Context, username string, _ domain.Role) (string, error) {
	return "token-" + username, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	store, err := OpenStore(context.Background(), kv.NewMemory())
	require.NoError(t, err)

	return NewService(store, &mockAuthenticator{}, []AdminAccount{
		{Username: "admin", Password: "s3cret", DisplayName: "Administrator", Email: "admin@example.com"},
	}, []UserAccount{
		{Username: "operator", Password: "op3rator", DisplayName: "Operator"},
	})
}

func TestLogin_AdminAllowList(t *testing.T) {
	svc := newTestService(t)

	user, token, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, "Administrator", user.DisplayName)
	assert.Equal(t, "token-admin", token)
}

func TestLogin_AdminWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "admin", Password: "wrong"})

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UserAllowList(t *testing.T) {
	svc := newTestService(t)

	user, _, err := svc.Login(context.Background(), LoginInput{Username: "operator", Password: "op3rator"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "Operator", user.DisplayName)

	_, _, err = svc.Login(context.Background(), LoginInput{Username: "operator", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_AutoRegistersUnknownUser(t *testing.T) {
	svc := newTestService(t)

	user, token, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "hunter2"})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, "jdoe", user.Username)
	assert.NotEmpty(t, token)

	stored, err := svc.GetUser(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "hunter2", stored.PasswordHash)
}

func TestLogin_ExistingUserWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "hunter2"})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "other"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ExistingUserCorrectPassword(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "hunter2"})
	require.NoError(t, err)

	user, _, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
}

func TestLogin_EmptyCredentialsRejected(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginInput{Username: "x", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_NormalizesUsername(t *testing.T) {
	svc := newTestService(t)

	// NFD form of "josé" must map to the same account as the NFC form.
	_, _, err := svc.Login(context.Background(), LoginInput{Username: "josé", Password: "pw"})
	require.NoError(t, err)

	user, _, err := svc.Login(context.Background(), LoginInput{Username: "josé", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "josé", user.Username)
}

func TestUpdateRole(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "pw"})
	require.NoError(t, err)

	user, err := svc.UpdateRole(context.Background(), "jdoe", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestUpdateRole_ConfiguredAdminImmutable(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateRole(context.Background(), "admin", domain.RoleUser)
	assert.ErrorIs(t, err, ErrCannotModifyAdmin)
}

func TestDeleteUser(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.Login(context.Background(), LoginInput{Username: "jdoe", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), "jdoe"))

	_, err = svc.GetUser(context.Background(), "jdoe")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser_ConfiguredAdminImmutable(t *testing.T) {
	svc := newTestService(t)

	err := svc.DeleteUser(context.Background(), "admin")
	assert.ErrorIs(t, err, ErrCannotModifyAdmin)
}
