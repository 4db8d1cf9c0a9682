package identity_test

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

var fastParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func defaultPolicy() identity.Policy {
	return identity.Policy{PasswordPolicy: config.PasswordPolicy{
		RequiredLength:   8,
		RequireDigit:     true,
		RequireLowercase: true,
		RequireUppercase: true,
	}}
}

func newManager() (identity.UserManager, repo.UserRepository) {
	users := repo.NewSet(dbtest.New()).Users
	return identity.UserManager{Store: users, Policy: defaultPolicy(), Params: fastParams}, users
}

func rules(t *testing.T, err error) []string {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
	details, ok := appErr.Details.([]common.FieldError)
	require.True(t, ok)
	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, d.Rule)
	}
	return out
}

func TestPolicyCheck(t *testing.T) {
	p := defaultPolicy()
	require.NoError(t, p.Check("Passw0rd"))
	require.Equal(t, []string{"required"}, rules(t, p.Check("")))
	require.Equal(t, []string{"min", "digit", "uppercase"}, rules(t, p.Check("short")))
	require.Equal(t, []string{"lowercase"}, rules(t, p.Check("PASSWORD1")))

	p.RequireNonAlphanumeric = true
	require.Equal(t, []string{"nonalphanumeric"}, rules(t, p.Check("Passw0rd")))
	require.NoError(t, p.Check("Passw0rd!"))
}

func TestUserManagerCreateAndCheckPassword(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager()

	user, err := mgr.Create(ctx, "grace@example.com", "Grace", "Secr3tPass", identity.RoleCustomer)
	require.NoError(t, err)
	require.NotEqual(t, "Secr3tPass", user.PasswordHash)
	require.True(t, mgr.CheckPassword(user, "Secr3tPass"))
	require.False(t, mgr.CheckPassword(user, "wrong"))

	roles, err := mgr.Roles(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{identity.RoleCustomer}, roles)

	_, err = mgr.Create(ctx, "GRACE@example.com", "Dup", "Secr3tPass")
	require.ErrorIs(t, err, identity.ErrEmailTaken)

	_, err = mgr.Create(ctx, "weak@example.com", "Weak", "weak")
	require.NotEmpty(t, rules(t, err))

	found, err := mgr.FindByEmail(ctx, "Grace@Example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	_, err = mgr.FindByEmail(ctx, "nobody@example.com")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestUserManagerChangePassword(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newManager()

	user, err := mgr.Create(ctx, "linus@example.com", "Linus", "Initial1A")
	require.NoError(t, err)

	err = mgr.ChangePassword(ctx, user.ID, "nope", "Changed2B")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)

	require.NotEmpty(t, rules(t, mgr.ChangePassword(ctx, user.ID, "Initial1A", "short")))

	require.NoError(t, mgr.ChangePassword(ctx, user.ID, "Initial1A", "Changed2B"))
	updated, err := mgr.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, mgr.CheckPassword(updated, "Changed2B"))
	require.False(t, mgr.CheckPassword(updated, "Initial1A"))
}

func TestRoleManagerEnsureRoles(t *testing.T) {
	ctx := context.Background()
	users := repo.NewSet(dbtest.New()).Users
	rm := identity.RoleManager{Store: users}

	require.NoError(t, rm.EnsureRoles(ctx))
	require.NoError(t, rm.EnsureRoles(ctx, "Support"))

	u, err := users.Create(ctx, repo.NewUser{Email: "s@example.com", Name: "S", PasswordHash: "x"})
	require.NoError(t, err)
	require.NoError(t, users.AddToRole(ctx, u.ID, "Support"))
}
