package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLength = 6

// AccountService handles registration, login, profile updates, and the
// password-reset flow.
type AccountService struct {
	users         UserStore
	tokens        TokenStore
	auth          *auth.Service
	logger        *zap.Logger
	resetTokenTTL time.Duration
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, tokens TokenStore, authSvc *auth.Service, resetTokenTTL time.Duration) *AccountService {
	return &AccountService{
		users:         users,
		tokens:        tokens,
		auth:          authSvc,
		logger:        util.GetLogger(),
		resetTokenTTL: resetTokenTTL,
	}
}

// RegisterRequest carries a registration. Address and city are required for
// buyers only.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
	Phone     string `json:"phone"`
}

// AuthResult is a registered or logged-in user plus their access token
type AuthResult struct {
	Token string                 `json:"token"`
	User  map[string]interface{} `json:"user"`
}

// Register creates a user with the given role and issues a token
func (s *AccountService) Register(ctx context.Context, role string, req *RegisterRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Register")
	defer span.End()

	if len(req.Password) < minPasswordLength {
		return nil, invalidInput("Password must be at least 6 characters long")
	}
	if role == models.RoleBuyer && (req.Address == "" || req.City == "") {
		return nil, invalidInput("Address and city are required for buyers")
	}

	// Pre-checks give precise messages; the unique constraints still back
	// them up under concurrency.
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, invalidInput("Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storageError(err)
	}
	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, invalidInput("Username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storageError(err)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, storageError(err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		IsActive:     true,
		Address:      sql.NullString{String: req.Address, Valid: req.Address != ""},
		City:         sql.NullString{String: req.City, Valid: req.City != ""},
		ZipCode:      sql.NullString{String: req.ZipCode, Valid: req.ZipCode != ""},
		Phone:        sql.NullString{String: req.Phone, Valid: req.Phone != ""},
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, invalidInput("Email or username already exists")
		}
		return nil, storageError(err)
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, storageError(err)
	}

	util.UsersRegisteredTotal.WithLabelValues(role).Inc()
	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", role))

	return &AuthResult{Token: token, User: user.Serialize()}, nil
}

// Login verifies credentials and issues a token. Credential failures are
// indistinguishable from unknown accounts.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		return nil, unauthorized("Invalid email or password")
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, storageError(err)
	}
	return &AuthResult{Token: token, User: user.Serialize()}, nil
}

// GetProfile returns a seller's own profile
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (map[string]interface{}, error) {
	user, err := s.requireRole(ctx, userID, models.RoleSeller)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Username,
		"email":      user.Email,
		"phone":      user.Phone.String,
	}, nil
}

// UpdateProfileRequest carries a profile update. Password change requires
// the current password.
type UpdateProfileRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Phone           string `json:"phone"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateProfile updates a seller's profile fields and, optionally, the
// password.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (map[string]interface{}, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.UpdateProfile")
	defer span.End()

	user, err := s.requireRole(ctx, userID, models.RoleSeller)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, invalidInput("Current password is required to change password")
		}
		if !s.auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			return nil, invalidInput("Current password is incorrect")
		}
		if len(req.NewPassword) < minPasswordLength {
			return nil, invalidInput("New password must be at least 6 characters long")
		}
	}

	user.Email = req.Email
	user.Username = req.Username
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.Phone != "" {
		user.Phone = sql.NullString{String: req.Phone, Valid: true}
	}

	if err := s.users.UpdateUserProfile(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, invalidInput("Email or username already exists")
		}
		return nil, storageError(err)
	}

	if req.NewPassword != "" {
		hash, err := s.auth.HashPassword(req.NewPassword)
		if err != nil {
			return nil, storageError(err)
		}
		if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
			return nil, storageError(err)
		}
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", userID))
	return user.Serialize(), nil
}

// RequestPasswordReset stores a single-use reset token for the account, if
// it exists. The response never reveals whether it did. The returned token
// is handed to the mail pipeline by the caller.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.RequestPasswordReset")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageError(err)
	}

	token := uuid.New().String()
	if err := s.tokens.StoreResetToken(ctx, token, user.ID, s.resetTokenTTL); err != nil {
		return "", storageError(err)
	}

	util.PasswordResetsTotal.WithLabelValues("requested").Inc()
	s.logger.Info("Password reset requested", zap.Int64("user_id", user.ID))
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
// The token is deleted atomically with the read, so it works exactly once
// even across concurrent confirmations.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.ConfirmPasswordReset")
	defer span.End()

	if len(newPassword) < minPasswordLength {
		return invalidInput("New password must be at least 6 characters long")
	}

	userID, found, err := s.tokens.ConsumeResetToken(ctx, token)
	if err != nil {
		return storageError(err)
	}
	if !found {
		return invalidInput("Invalid or expired token")
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return storageError(err)
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("User not found")
		}
		return storageError(err)
	}

	util.PasswordResetsTotal.WithLabelValues("confirmed").Inc()
	s.logger.Info("Password reset confirmed", zap.Int64("user_id", userID))
	return nil
}

// VerifyRole checks that the user exists and holds the given role. Token
// claims are never trusted for this; the user record is re-resolved.
func (s *AccountService) VerifyRole(ctx context.Context, userID int64, role string) error {
	_, err := s.requireRole(ctx, userID, role)
	return err
}

// requireRole resolves a user and checks their role
func (s *AccountService) requireRole(ctx context.Context, userID int64, role string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, storageError(err)
	}
	if user.Role != role {
		return nil, forbidden("Access denied, user is not a " + role)
	}
	return user, nil
}
