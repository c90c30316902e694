package domain

import "time"

// User is one chat participant as seen by both bots.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Language     string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Referral links a new user to the user whose link brought them in.
type Referral struct {
	ReferrerID int64
	ReferralID int64
	Code       string
	At         time.Time
}

// Admin is a member of the support staff, managed by the super admin.
type Admin struct {
	UserID    int64
	Username  string
	FirstName string
	AddedBy   int64
	AddedAt   time.Time
}
