package service

import (
	"context"
	"testing"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountFixture struct {
	users  *fakeUserStore
	tokens *fakeTokenStore
	auth   *auth.Service
	svc    *AccountService
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	authSvc := auth.NewService("test-secret", time.Hour)
	return &accountFixture{
		users:  users,
		tokens: tokens,
		auth:   authSvc,
		svc:    NewAccountService(users, tokens, authSvc, 24*time.Hour),
	}
}

func buyerRegistration() *RegisterRequest {
	return &RegisterRequest{
		Email:     "ana@example.com",
		Password:  "hunter22",
		Username:  "ana",
		FirstName: "Ana",
		LastName:  "Lopez",
		Address:   "Calle Mayor 1",
		City:      "Madrid",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAccountFixture(t)

	result, err := f.svc.Register(context.Background(), models.RoleBuyer, buyerRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.RoleBuyer, result.User["role"])
	assert.NotContains(t, result.User, "password_hash")

	userID, err := f.auth.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User["id"], userID)

	login, err := f.svc.Login(context.Background(), "ana@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	_, err = f.svc.Login(context.Background(), "ana@example.com", "wrong")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.Status)

	// Unknown accounts fail the same way as wrong passwords.
	_, err = f.svc.Login(context.Background(), "nobody@example.com", "hunter22")
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.Status)
}

func TestRegisterBuyerRequiresAddress(t *testing.T) {
	f := newAccountFixture(t)

	req := buyerRegistration()
	req.Address = ""
	_, err := f.svc.Register(context.Background(), models.RoleBuyer, req)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)

	// Sellers register without an address.
	req = buyerRegistration()
	req.Address = ""
	req.City = ""
	_, err = f.svc.Register(context.Background(), models.RoleSeller, req)
	assert.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.Register(context.Background(), models.RoleBuyer, buyerRegistration())
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), models.RoleBuyer, buyerRegistration())
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)
	assert.Equal(t, 400, svcErr.Status)
}

func TestRegisterShortPassword(t *testing.T) {
	f := newAccountFixture(t)

	req := buyerRegistration()
	req.Password = "abc"
	_, err := f.svc.Register(context.Background(), models.RoleBuyer, req)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)
}

func TestUpdateProfile(t *testing.T) {
	f := newAccountFixture(t)

	hash, err := f.auth.HashPassword("original1")
	require.NoError(t, err)
	seller := f.users.seed(models.User{
		Email: "m@example.com", Username: "marco", PasswordHash: hash,
		FirstName: "Marco", LastName: "Ruiz", Role: models.RoleSeller,
	})

	base := UpdateProfileRequest{
		Email: "m@example.com", Username: "marco",
		FirstName: "Marco", LastName: "Ruiz",
	}

	t.Run("password change requires current password", func(t *testing.T) {
		req := base
		req.NewPassword = "updated1"
		_, err := f.svc.UpdateProfile(context.Background(), seller.ID, &req)
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindInvalidInput, svcErr.Kind)
	})

	t.Run("wrong current password", func(t *testing.T) {
		req := base
		req.CurrentPassword = "nope"
		req.NewPassword = "updated1"
		_, err := f.svc.UpdateProfile(context.Background(), seller.ID, &req)
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindInvalidInput, svcErr.Kind)
	})

	t.Run("successful change", func(t *testing.T) {
		req := base
		req.Username = "marco_r"
		req.CurrentPassword = "original1"
		req.NewPassword = "updated1"
		updated, err := f.svc.UpdateProfile(context.Background(), seller.ID, &req)
		require.NoError(t, err)
		assert.Equal(t, "marco_r", updated["username"])

		stored, err := f.users.GetUserByID(context.Background(), seller.ID)
		require.NoError(t, err)
		assert.True(t, f.auth.CheckPassword(stored.PasswordHash, "updated1"))
	})

	t.Run("buyers have no profile surface", func(t *testing.T) {
		buyer := f.users.seed(models.User{
			Email: "b@example.com", Username: "bea", Role: models.RoleBuyer,
		})
		req := base
		_, err := f.svc.UpdateProfile(context.Background(), buyer.ID, &req)
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})
}

func TestPasswordReset(t *testing.T) {
	f := newAccountFixture(t)

	result, err := f.svc.Register(context.Background(), models.RoleBuyer, buyerRegistration())
	require.NoError(t, err)

	token, err := f.svc.RequestPasswordReset(context.Background(), "ana@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	err = f.svc.ConfirmPasswordReset(context.Background(), token, "newpass1")
	require.NoError(t, err)

	login, err := f.svc.Login(context.Background(), "ana@example.com", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, result.User["id"], login.User["id"])

	// The token burned on first use.
	err = f.svc.ConfirmPasswordReset(context.Background(), token, "another1")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newAccountFixture(t)

	// No error and no token: the caller's response is identical either way.
	token, err := f.svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func TestConfirmPasswordResetGuards(t *testing.T) {
	f := newAccountFixture(t)

	err := f.svc.ConfirmPasswordReset(context.Background(), "bogus-token", "newpass1")
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)

	err = f.svc.ConfirmPasswordReset(context.Background(), "any", "abc")
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, KindInvalidInput, svcErr.Kind)
}
