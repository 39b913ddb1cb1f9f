package models

import "time"

// Post is an activity invitation. Optional scheduling fields are nil when unset.
type Post struct {
	ID              int64      `json:"id" db:"id" example:"12"`
	AuthorID        int64      `json:"authorId" db:"user_id" example:"1"`
	Content         string     `json:"content" db:"content" example:"study session"`
	EventTime       *time.Time `json:"eventTime" db:"event_time"`
	DurationMinutes *int       `json:"duration" db:"duration" example:"90"`
	Location        *string    `json:"location" db:"location" example:"library"`
	TargetPeople    *int       `json:"targetPeople" db:"target_people" example:"3"`
	Tags            []string   `json:"tags" db:"tags"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
}

// NewPost is the insert payload for a post; the store assigns id and createdAt.
type NewPost struct {
	AuthorID        int64
	Content         string
	EventTime       *time.Time
	DurationMinutes *int
	Location        *string
	TargetPeople    *int
	Tags            []string
}

// FieldUpdate is one column of a partial update. The zero value leaves the
// column untouched; Set with a nil Value writes NULL.
type FieldUpdate[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns an update writing v.
func SetTo[T any](v T) FieldUpdate[T] {
	return FieldUpdate[T]{Set: true, Value: &v}
}

// Clear returns an update writing NULL.
func Clear[T any]() FieldUpdate[T] {
	return FieldUpdate[T]{Set: true}
}

// PostPatch lists the columns a partial post update touches.
type PostPatch struct {
	Content         FieldUpdate[string]
	EventTime       FieldUpdate[time.Time]
	DurationMinutes FieldUpdate[int]
	Location        FieldUpdate[string]
	TargetPeople    FieldUpdate[int]
	Tags            FieldUpdate[[]string]
}

// IsEmpty reports whether the patch touches no column.
func (p PostPatch) IsEmpty() bool {
	return !p.Content.Set && !p.EventTime.Set && !p.DurationMinutes.Set &&
		!p.Location.Set && !p.TargetPeople.Set && !p.Tags.Set
}

// Apply returns a copy of post with the patch applied. Used by stores that
// do not build SQL.
func (p PostPatch) Apply(post Post) Post {
	if p.Content.Set && p.Content.Value != nil {
		post.Content = *p.Content.Value
	}
	if p.EventTime.Set {
		post.EventTime = p.EventTime.Value
	}
	if p.DurationMinutes.Set {
		post.DurationMinutes = p.DurationMinutes.Value
	}
	if p.Location.Set {
		post.Location = p.Location.Value
	}
	if p.TargetPeople.Set {
		post.TargetPeople = p.TargetPeople.Value
	}
	if p.Tags.Set {
		post.Tags = []string{}
		if p.Tags.Value != nil {
			post.Tags = append(post.Tags, *p.Tags.Value...)
		}
	}
	return post
}

// AuthorView is the author block of a PostView. RealName is nil unless the
// viewer may see it.
type AuthorView struct {
	ID        int64    `json:"id"`
	Nickname  string   `json:"nickname"`
	AvatarURL string   `json:"avatarUrl"`
	Grade     string   `json:"grade"`
	Bio       string   `json:"bio"`
	Tags      []string `json:"tags"`
	RealName  *string  `json:"realName"`
}

// PostView is a post as seen by one viewer. It is rebuilt on every request.
type PostView struct {
	Post
	Author            AuthorView `json:"author"`
	HasParticipated   bool       `json:"hasParticipated"`
	ParticipantsCount int        `json:"participantsCount"`
}
