// Package shop stores the singleton shop profile printed on receipts and emails.
package shop

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultName is used until the shop is configured.
const DefaultName = "My Store"

// ErrNotConfigured is returned by repositories when no profile is stored.
var ErrNotConfigured = errors.New("shop: profile not configured")

// Profile holds the shop settings.
type Profile struct {
	Name      string    `json:"name" bson:"name"`
	Address   string    `json:"address" bson:"address"`
	Phone     string    `json:"phone" bson:"phone"`
	Email     string    `json:"email" bson:"email"`
	GSTNumber string    `json:"gstNumber" bson:"gstNumber"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Defaults returns the profile used when nothing is stored.
func Defaults() Profile {
	return Profile{Name: DefaultName}
}

// Patch carries optional updates.
type Patch struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	GSTNumber *string `json:"gstNumber,omitempty" validate:"omitempty,max=20"`
}

// Trimmed returns a copy of p with surrounding whitespace removed.
func (p Patch) Trimmed() Patch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return Patch{Name: trim(p.Name), Address: trim(p.Address), Phone: trim(p.Phone), Email: trim(p.Email), GSTNumber: trim(p.GSTNumber)}
}

// Merge applies the non-nil fields of p onto profile.
func (p Patch) Merge(profile Profile) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&profile.Name, p.Name)
	set(&profile.Address, p.Address)
	set(&profile.Phone, p.Phone)
	set(&profile.Email, p.Email)
	set(&profile.GSTNumber, p.GSTNumber)
	if profile.Name == "" {
		profile.Name = DefaultName
	}
	return profile
}

// Repository persists the profile.
type Repository interface {
	// Load returns ErrNotConfigured when nothing is stored.
	Load(ctx context.Context) (Profile, error)
	Store(ctx context.Context, profile Profile) error
}
