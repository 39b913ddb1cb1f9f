// Package auth decides what a caller may do to a post and what they may see of its author.
// Every function here is pure; callers load state and act on the answer.
package auth

import (
	"github.com/machus/backend/internal/app/models"
)

// Viewer is the authenticated caller of a post operation.
type Viewer struct {
	ID      int64
	IsAdmin bool
}

// ViewerFromUser builds the Viewer for a loaded user.
func ViewerFromUser(u *models.User) Viewer {
	return Viewer{ID: u.ID, IsAdmin: u.IsAdmin}
}

// CanManage reports whether viewer may edit, delete or kick from post: its author or any admin.
func CanManage(viewer Viewer, post *models.Post) bool {
	return viewer.ID == post.AuthorID || viewer.IsAdmin
}

// CanViewParticipants reports whether viewer may read the roster of post.
func CanViewParticipants(viewer Viewer, post *models.Post, hasParticipated bool) bool {
	return hasParticipated || CanManage(viewer, post)
}

// CanKick reports whether viewer may remove targetUserID from post.
// Removing yourself is a cancel, never a kick.
func CanKick(viewer Viewer, post *models.Post, targetUserID int64) bool {
	if viewer.ID == targetUserID {
		return false
	}
	return CanManage(viewer, post)
}

// RedactAuthorIdentity projects author's public profile, exposing the real name only when revealed.
func RedactAuthorIdentity(author *models.User, revealed bool) models.AuthorView {
	view := models.AuthorView{
		ID:        author.ID,
		Nickname:  author.Nickname,
		AvatarURL: author.AvatarURL,
		Grade:     author.Grade,
		Bio:       author.Bio,
		Tags:      nonNilTags(author.Tags),
	}
	if revealed {
		name := author.RealName
		view.RealName = &name
	}
	return view
}

// revealsRealName: participants see the author's real name, and so does the author.
func revealsRealName(viewer Viewer, post *models.Post, hasParticipated bool) bool {
	return hasParticipated || viewer.ID == post.AuthorID
}

// BuildPostView is the one projection of a post for a viewer, used by every read and write path.
func BuildPostView(viewer Viewer, post *models.Post, author *models.User, hasParticipated bool, participantsCount int) models.PostView {
	p := *post
	p.Tags = nonNilTags(p.Tags)
	return models.PostView{
		Post:              p,
		Author:            RedactAuthorIdentity(author, revealsRealName(viewer, post, hasParticipated)),
		HasParticipated:   hasParticipated,
		ParticipantsCount: participantsCount,
	}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
