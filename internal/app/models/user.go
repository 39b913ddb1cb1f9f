package models

import (
	"time"
)

// User is a row of the users table. RealName is private: it only leaves the
// server through the owner's own profile or a PostView the viewer has joined.
type User struct {
	ID               int64     `json:"id" db:"id" example:"1"`
	Email            string    `json:"email" db:"email" example:"alice@shanghaitech.edu.cn"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	RealName         string    `json:"realName" db:"real_name" example:"Alice Zhang"`
	Nickname         string    `json:"nickname" db:"nickname" example:"alice"`
	Grade            string    `json:"grade" db:"grade" example:"2023"`
	Gender           string    `json:"gender" db:"gender" example:"female"`
	Bio              string    `json:"bio" db:"bio"`
	Tags             []string  `json:"tags" db:"tags"`
	AvatarURL        string    `json:"avatarUrl" db:"avatar_url" example:"/uploads/avatars/1-1700000000.png"`
	IsAdmin          bool      `json:"isAdmin" db:"is_admin"`
	ProfileCompleted bool      `json:"profileCompleted" db:"profile_completed"`
	EmailVerified    bool      `json:"emailVerified" db:"email_verified"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// ProfileUpdate carries the fields set when a user completes their profile.
type ProfileUpdate struct {
	RealName  string
	Nickname  string
	Grade     string
	Gender    string
	Bio       string
	Tags      []string
	AvatarURL *string // nil keeps the current avatar
}
