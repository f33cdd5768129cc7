package domain

import (
	"context"
	"errors"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type RegisterRequest struct {
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	Name           string   `json:"name"`
	Subject        string   `json:"subject"`
	Age            int      `json:"age"`
	Institution    string   `json:"institution"`
	Country        string   `json:"country"`
	PreferredBooks []string `json:"preferred_books"`
	ReferralCode   string   `json:"referral_code"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
