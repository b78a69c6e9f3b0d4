// Package model defines the data structures used throughout the application.
package model

import "time"

// Gender is the profile gender attribute. Only two values are accepted;
// the validate package rejects anything else before it reaches the store.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// User is an account record: the identity (username, email, password hash)
// plus the mutable profile attributes attached to it.
//
// WHY ONE STRUCT FOR IDENTITY + PROFILE?
// Identity and profile are created together and live 1:1 — a separate Profile
// struct would just mean a join on every read. The repository persists the
// whole record as a unit, which also keeps profile updates all-or-nothing.
//
// WHY POINTER FIELDS FOR PROFILE ATTRIBUTES?
// Profile fields are optional: a freshly registered user has none of them set.
// Pointers distinguish "never set" (nil, omitted from JSON) from a zero value
// like an empty display name or a height of 0.
//
// Horoscope and ChineseZodiac are derived — they are computed from Birthday by
// the service layer and never accepted directly from a client.
type User struct {
	ID           string `json:"id"        db:"id"`
	Username     string `json:"username"  db:"username"` // unique, immutable after registration
	Email        string `json:"email"     db:"email"`    // unique, immutable after registration
	PasswordHash string `json:"-"         db:"password_hash"`

	DisplayName   *string  `json:"displayName,omitempty"   db:"display_name"`
	Gender        *Gender  `json:"gender,omitempty"        db:"gender"`
	Birthday      *string  `json:"birthday,omitempty"      db:"birthday"` // YYYY-MM-DD
	Horoscope     *string  `json:"horoscope,omitempty"     db:"horoscope"`
	ChineseZodiac *string  `json:"chineseZodiac,omitempty" db:"chinese_zodiac"`
	Height        *float64 `json:"height,omitempty"        db:"height"`
	Weight        *float64 `json:"weight,omitempty"        db:"weight"`
	Interests     []string `json:"interests"               db:"interests"` // no duplicates, insertion order kept
	Image         *string  `json:"image,omitempty"         db:"image"`     // path recorded by the image store

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasInterest reports whether interest is already in the user's interest set.
func (u *User) HasInterest(interest string) bool {
	for _, existing := range u.Interests {
		if existing == interest {
			return true
		}
	}
	return false
}
