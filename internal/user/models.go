// Package user owns applicant identity: registration, lookup, and wallet
// binding.
package user

import (
	"regexp"
	"strings"
	"time"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// User is the identity anchor for an applicant. PasswordHash is excluded
// from every serialization; projections go through PublicUser.
type User struct {
	ID             id.UserID
	Email          string
	PassportNumber string
	FullName       string
	PasswordHash   string
	ResidencyType  id.ResidencyType
	Verified       bool
	WalletAddress  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PublicUser is the projection safe to return to the account owner.
type PublicUser struct {
	ID            id.UserID        `json:"id"`
	Email         string           `json:"email"`
	FullName      string           `json:"fullName"`
	ResidencyType id.ResidencyType `json:"residencyType"`
	Verified      bool             `json:"verified"`
	WalletAddress string           `json:"walletAddress,omitempty"`
}

// Public strips the private fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		ResidencyType: u.ResidencyType,
		Verified:      u.Verified,
		WalletAddress: u.WalletAddress,
	}
}

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// NormalizeEmail lowercases the address; uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateWalletAddress checks the 0x-prefixed 40-hex-digit form used by the
// residency contract's chain.
func ValidateWalletAddress(addr string) error {
	if !walletPattern.MatchString(addr) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address")
	}
	return nil
}

func validateRegistration(req RegisterRequest) error {
	switch {
	case !emailPattern.MatchString(NormalizeEmail(req.Email)):
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email")
	case strings.TrimSpace(req.PassportNumber) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "passport number is required")
	case strings.TrimSpace(req.FullName) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "full name is required")
	case len(req.Password) < 8:
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	return nil
}

// RegisterRequest is the payload for POST /users.
type RegisterRequest struct {
	Email          string `json:"email"`
	PassportNumber string `json:"passportNumber"`
	FullName       string `json:"fullName"`
	Password       string `json:"password"`
	ResidencyType  string `json:"residencyType"`
}

// BindWalletRequest is the payload for PUT /users/wallet.
type BindWalletRequest struct {
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}
