package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	VerifyEmailWithCode(ctx context.Context, email, code string) error
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error)
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uuid.UUID, email, role string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Mailer delivers the account emails. Implemented by internal/mailer.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, code, token string) error
	SendPasswordReset(ctx context.Context, to, name, code, token string) error
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
