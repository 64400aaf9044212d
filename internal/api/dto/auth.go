package dto

import (
	"strings"

	"github.com/hugh/go-helpdesk/internal/api/validation"
	"github.com/hugh/go-helpdesk/internal/database/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if strings.TrimSpace(r.LastName) == "" {
		errors["lastName"] = "Last name is required"
	}
	validateEmail(errors, r.Email)
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// VerifyEmailCodeRequest is shared by the verification and reset-code checks.
type VerifyEmailCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r VerifyEmailCodeRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateEmail(errors, r.Email)
	if r.Code == "" {
		errors["code"] = "Code is required"
	} else if !validation.IsValidCode(r.Code) {
		errors["code"] = "Code must be 6 digits"
	}
	return errors
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	validateEmail(errors, r.Email)
	return errors
}

// ResetPasswordRequest carries either Token or Email+Code. Which path applies
// is decided by the auth service.
type ResetPasswordRequest struct {
	Token       string `json:"token,omitempty"`
	Email       string `json:"email,omitempty"`
	Code        string `json:"code,omitempty"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.NewPassword == "" {
		errors["newPassword"] = "New password is required"
	} else if ok, msg := validation.IsValidPassword(r.NewPassword); !ok {
		errors["newPassword"] = msg
	}
	return errors
}

type RegisterResponse struct {
	Message          string `json:"message"`
	Email            string `json:"email"`
	Warning          string `json:"warning,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

type LoginResponse struct {
	AccessToken string  `json:"accessToken"`
	User        UserDTO `json:"user"`
}

type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetCode  string `json:"resetCode,omitempty"`
	ResetToken string `json:"resetToken,omitempty"`
}

// UserDTO is the public projection of an account. It never carries the
// password hash or any pending code.
type UserDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

func NewUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:            u.ID.String(),
		Name:          u.Name,
		LastName:      u.LastName,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

func validateEmail(errors map[string]string, email string) {
	if email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(email)) {
		errors["email"] = "Invalid email format"
	}
}
