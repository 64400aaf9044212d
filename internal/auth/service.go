package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")

	// ErrInvalidOrExpired covers every code and link-token failure (unknown,
	// mismatched, expired or already consumed) so callers cannot tell them apart.
	ErrInvalidOrExpired    = errors.New("invalid or expired code")
	ErrInvalidResetRequest = errors.New("token or email and code are required")
)

const (
	VerificationCodeTTL  = 15 * time.Minute
	VerificationTokenTTL = 24 * time.Hour
	ResetCodeTTL         = 10 * time.Minute
	ResetTokenTTL        = 1 * time.Hour
)

const (
	msgRegistered     = "Registration successful. Check your email for the verification code."
	msgMailFailed     = "Account created, but the verification email could not be sent."
	msgForgotPassword = "If the email exists, a password reset code has been sent."
)

// Options are fixed at construction time.
type Options struct {
	// ExposeSecrets echoes generated codes and tokens in responses. Development only.
	ExposeSecrets bool
	Now           func() time.Time
}

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	mailer Mailer
	logger *slog.Logger
	opts   Options
}

func NewService(db *gorm.DB, jwt *JWTService, mailer Mailer, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{db: db, jwt: jwt, mailer: mailer, logger: logger, opts: opts}
}

type RegisterInput struct {
	Name     string
	LastName string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type ResetPasswordInput struct {
	Token       string
	Email       string
	Code        string
	NewPassword string
}

type RegisterResult struct {
	Message          string
	Email            string
	Warning          string
	VerificationCode string // set only when ExposeSecrets
}

type ForgotPasswordResult struct {
	Message    string
	ResetCode  string // set only when ExposeSecrets
	ResetToken string // set only when ExposeSecrets
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := NormalizeEmail(input.Email)

	// Check if user exists
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	code, err := crypto.GenerateCode()
	if err != nil {
		return nil, err
	}
	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	codeExpiry := now.Add(VerificationCodeTTL)
	tokenExpiry := now.Add(VerificationTokenTTL)

	// Password is hashed by the model's BeforeSave hook
	user := models.User{
		Email:                   email,
		Password:                input.Password,
		Name:                    strings.TrimSpace(input.Name),
		LastName:                strings.TrimSpace(input.LastName),
		Role:                    models.RoleAgent,
		IsActive:                true,
		EmailVerified:           false,
		VerificationCode:        &code,
		VerificationCodeExpiry:  &codeExpiry,
		VerificationToken:       &token,
		VerificationTokenExpiry: &tokenExpiry,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	result := &RegisterResult{Message: msgRegistered, Email: email}

	if err := s.mailer.SendVerification(ctx, email, user.Name, code, token); err != nil {
		s.logger.Warn("verification email not delivered", "email", email, "error", err)
		result.Warning = msgMailFailed
	}

	if s.opts.ExposeSecrets {
		result.VerificationCode = code
	}

	return result, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

// VerifyEmailWithCode marks the account verified when code matches the
// pending, unexpired verification code.
func (s *Service) VerifyEmailWithCode(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpired
		}
		return err
	}

	if user.EmailVerified || !s.secretValid(user.VerificationCode, user.VerificationCodeExpiry, code) {
		return ErrInvalidOrExpired
	}

	return s.consume(ctx, user, "verification_code = ?", code, verifiedUpdates())
}

// VerifyEmail is the legacy link-based verification keyed by token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpired
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("verification_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpired
		}
		return fmt.Errorf("looking up verification token: %w", err)
	}

	if user.EmailVerified || !s.secretValid(user.VerificationToken, user.VerificationTokenExpiry, token) {
		return ErrInvalidOrExpired
	}

	return s.consume(ctx, &user, "verification_token = ?", token, verifiedUpdates())
}

// ForgotPassword issues a fresh reset code and token, replacing any pending
// ones. The returned message is identical whether or not the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	result := &ForgotPasswordResult{Message: msgForgotPassword}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return result, nil
		}
		return nil, err
	}

	code, err := crypto.GenerateCode()
	if err != nil {
		return nil, err
	}
	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().UTC()
	updates := map[string]interface{}{
		"reset_code":         code,
		"reset_code_expiry":  now.Add(ResetCodeTTL),
		"reset_token":        token,
		"reset_token_expiry": now.Add(ResetTokenTTL),
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("storing reset code: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, code, token); err != nil {
		s.logger.Warn("password reset email not delivered", "user_id", user.ID, "error", err)
	}

	if s.opts.ExposeSecrets {
		result.ResetCode = code
		result.ResetToken = token
	}

	return result, nil
}

// VerifyResetCode checks a reset code without consuming it.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpired
		}
		return err
	}

	if !s.secretValid(user.ResetCode, user.ResetCodeExpiry, code) {
		return ErrInvalidOrExpired
	}
	return nil
}

// ResetPassword sets a new password authorized by either the legacy reset
// token or the email and code pair. The token takes precedence.
func (s *Service) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	var (
		user   *models.User
		column string
		secret string
	)

	if input.Token != "" {
		var found models.User
		if err := s.db.WithContext(ctx).Where("reset_token = ?", input.Token).First(&found).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidOrExpired
			}
			return fmt.Errorf("looking up reset token: %w", err)
		}
		if !s.secretValid(found.ResetToken, found.ResetTokenExpiry, input.Token) {
			return ErrInvalidOrExpired
		}
		user, column, secret = &found, "reset_token = ?", input.Token
	} else {
		if strings.TrimSpace(input.Email) == "" || input.Code == "" {
			return ErrInvalidResetRequest
		}
		found, err := s.findByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrInvalidOrExpired
			}
			return err
		}
		if !s.secretValid(found.ResetCode, found.ResetCodeExpiry, input.Code) {
			return ErrInvalidOrExpired
		}
		user, column, secret = found, "reset_code = ?", input.Code
	}

	hash, err := crypto.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	updates := clearedResetUpdates()
	updates["password"] = hash

	return s.consume(ctx, user, column, secret, updates)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return &user, nil
}

// secretValid reports whether presented matches stored and the current time
// is strictly before expiry.
func (s *Service) secretValid(stored *string, expiry *time.Time, presented string) bool {
	if stored == nil || expiry == nil || presented == "" {
		return false
	}
	if !s.opts.Now().Before(*expiry) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}

// consume applies updates only while the secret is still stored on the row,
// so two concurrent requests cannot both spend the same code.
func (s *Service) consume(ctx context.Context, user *models.User, column, secret string, updates map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(user).Where(column, secret).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidOrExpired
	}
	return nil
}

func verifiedUpdates() map[string]interface{} {
	return map[string]interface{}{
		"email_verified":            true,
		"verification_code":         nil,
		"verification_code_expiry":  nil,
		"verification_token":        nil,
		"verification_token_expiry": nil,
	}
}

func clearedResetUpdates() map[string]interface{} {
	return map[string]interface{}{
		"reset_code":         nil,
		"reset_code_expiry":  nil,
		"reset_token":        nil,
		"reset_token_expiry": nil,
	}
}
