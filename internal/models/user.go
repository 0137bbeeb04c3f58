package models

import "time"

// User represents a marketplace account.
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username       string    `json:"username" gorm:"uniqueIndex;type:varchar(30);not null"`
	Email          string    `json:"email,omitempty" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password       string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	Bio            string    `json:"bio" gorm:"type:varchar(500)"`
	ProfileImage   string    `json:"profileImage" gorm:"type:varchar(500)"`
	WalletAddress  *string   `json:"walletAddress,omitempty" gorm:"type:varchar(42)"`
	TotalSales     int64     `json:"totalSales" gorm:"not null;default:0"`
	TotalPurchases int64     `json:"totalPurchases" gorm:"not null;default:0"`
	Followers      []string  `json:"followers" gorm:"-"`
	Following      []string  `json:"following" gorm:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserSummary is the public projection of a user used wherever another
// record references one (creator, owner, sale parties, follower lists).
type UserSummary struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string `json:"username" gorm:"type:varchar(30)"`
	ProfileImage string `json:"profileImage" gorm:"type:varchar(500)"`
	Bio          string `json:"bio,omitempty" gorm:"type:varchar(500)"`
}

// TableName maps UserSummary onto the users table.
func (UserSummary) TableName() string {
	return "users"
}

// Follow is one edge of the social graph: FollowerID follows FollowingID.
// A single row backs both the follower's following-set and the target's
// followers-set.
type Follow struct {
	FollowerID  string    `json:"followerId" gorm:"primaryKey;type:varchar(36)"`
	FollowingID string    `json:"followingId" gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt   time.Time `json:"createdAt"`
}
