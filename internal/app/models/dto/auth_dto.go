package dto

import "github.com/machus/backend/internal/app/models"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,campus_email" example:"alice@shanghaitech.edu.cn"`
	Password        string `json:"password" binding:"required,min=6" example:"secret1"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password" example:"secret1"`
}

// RegisterResponse is returned once the verification mail is queued.
type RegisterResponse struct {
	Message string `json:"message" example:"Registration successful, please check your email to verify your account"`
	Email   string `json:"email" example:"alice@shanghaitech.edu.cn"`
}

// VerifyEmailRequest carries the token from the verification link.
type VerifyEmailRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
	Email string `json:"email" form:"email" binding:"required,email"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"alice@shanghaitech.edu.cn"`
	Password string `json:"password" binding:"required" example:"secret1"`
}

// LoginResponse holds the bearer token and the caller's own profile.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType" example:"Bearer"`
	ExpiresIn int          `json:"expiresIn" example:"604800"`
	User      *models.User `json:"user"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
