package models

import "time"

// Participation records that a user opted into a post. ID is the insertion
// sequence and breaks ties between equal ParticipatedAt values.
type Participation struct {
	ID             int64     `json:"id" db:"id"`
	PostID         int64     `json:"postId" db:"post_id"`
	UserID         int64     `json:"userId" db:"user_id"`
	ParticipatedAt time.Time `json:"participatedAt" db:"participated_at"`
}

// Participant is one roster entry: the public profile of a participating user.
type Participant struct {
	ID             int64     `json:"id"`
	Nickname       string    `json:"nickname"`
	AvatarURL      string    `json:"avatarUrl"`
	Grade          string    `json:"grade"`
	Bio            string    `json:"bio"`
	Tags           []string  `json:"tags"`
	ParticipatedAt time.Time `json:"participatedAt"`
}
