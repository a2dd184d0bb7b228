package models

import "time"

// User is a registered storefront account. The legacy `cart` field is an
// older embedded cart shape that reconciliation cleanup still clears.
type User struct {
	UserID   string   `json:"userId" bson:"userId"`
	Username string   `json:"username" bson:"username"`
	Email    string   `json:"email" bson:"email"`
	Password string   `json:"-" bson:"password"` // bcrypt hash
	Role     []string `json:"role" bson:"role"`

	LegacyCart []CartItem `json:"-" bson:"cart,omitempty"`

	RefreshToken  string    `json:"-" bson:"refresh_token,omitempty"`
	RefreshExpiry time.Time `json:"-" bson:"refresh_expiry,omitempty"`
	LastLogin     time.Time `json:"-" bson:"last_login,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	for _, r := range u.Role {
		if r == "admin" {
			return true
		}
	}
	return false
}
