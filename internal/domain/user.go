package domain

import "time"

// User is an account that can authenticate against the admin API.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string

	// ResetToken and ResetTokenExpiry are set together by a forgot-password
	// request and cleared together by a successful reset. An empty token with
	// a nil expiry means no reset is pending.
	ResetToken       string
	ResetTokenExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResetPending reports whether the user carries an unconsumed reset token,
// expired or not. Expiry is checked at use time, not here.
func (u User) ResetPending() bool {
	return u.ResetToken != "" && u.ResetTokenExpiry != nil
}
