package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/machus/backend/internal/app/auth"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/models/dto"
	"github.com/machus/backend/internal/app/services/servicetest"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	userA = &models.User{ID: 1, RealName: "Alice Zhang", Nickname: "alice", ProfileCompleted: true}
	userB = &models.User{ID: 2, RealName: "Bob Li", Nickname: "bob", ProfileCompleted: true}
	userC = &models.User{ID: 3, RealName: "Carol Wu", Nickname: "carol", ProfileCompleted: true}
	userD = &models.User{ID: 4, RealName: "Dan Admin", Nickname: "dan", IsAdmin: true, ProfileCompleted: true}

	viewerA = auth.ViewerFromUser(userA)
	viewerB = auth.ViewerFromUser(userB)
	viewerC = auth.ViewerFromUser(userC)
	viewerD = auth.ViewerFromUser(userD)
)

func newTestService(t *testing.T) (PostService, *servicetest.MemoryStore) {
	t.Helper()
	store := servicetest.NewMemoryStore()
	for _, u := range []*models.User{userA, userB, userC, userD} {
		store.AddUser(u)
	}
	return NewPostService(store, store, store.Users(), zerolog.Nop()), store
}

func createStudySession(t *testing.T, svc PostService) *models.PostView {
	t.Helper()
	view, err := svc.CreatePost(context.Background(), viewerA, &dto.CreatePostRequest{
		Content:      "study session",
		TargetPeople: dto.Some(3),
		Tags:         []string{" math ", ""},
	})
	require.NoError(t, err)
	return view
}

func TestCreatePost(t *testing.T) {
	svc, _ := newTestService(t)
	view := createStudySession(t, svc)

	assert.Equal(t, "study session", view.Content)
	assert.Equal(t, []string{"math"}, view.Tags)
	assert.False(t, view.HasParticipated)
	assert.Zero(t, view.ParticipantsCount)
	require.NotNil(t, view.TargetPeople)
	assert.Equal(t, 3, *view.TargetPeople)
	assert.Nil(t, view.Location)
}

func TestCreatePost_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   dto.CreatePostRequest
		field string
	}{
		{"blank content", dto.CreatePostRequest{Content: "   "}, "content"},
		{"zero duration", dto.CreatePostRequest{Content: "x", Duration: dto.Some(0)}, "duration"},
		{"negative target", dto.CreatePostRequest{Content: "x", TargetPeople: dto.Some(-2)}, "targetPeople"},
		{"duration beyond int32", dto.CreatePostRequest{Content: "x", Duration: dto.Some(math.MaxInt32 + 1)}, "duration"},
		{"target beyond int32", dto.CreatePostRequest{Content: "x", TargetPeople: dto.Some(3000000000)}, "targetPeople"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, viewerA, &tt.req)
			require.ErrorIs(t, err, apperrors.ErrValidationFailed)
			ce, ok := apperrors.AsCustom(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	_, err := svc.CreatePost(ctx, viewerA, &dto.CreatePostRequest{Content: "x", Duration: dto.Null[int]()})
	assert.NoError(t, err, "null optional fields are accepted")
}

// A stranger sees the nickname only; joining reveals the real name and cancelling hides it again.
func TestParticipateCancelRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	feed, err := svc.ListFeed(ctx, viewerB)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "alice", feed[0].Author.Nickname)
	assert.Nil(t, feed[0].Author.RealName)
	assert.False(t, feed[0].HasParticipated)

	joined, err := svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)
	require.NotNil(t, joined.Author.RealName)
	assert.Equal(t, "Alice Zhang", *joined.Author.RealName)
	assert.True(t, joined.HasParticipated)
	assert.Equal(t, 1, joined.ParticipantsCount)

	left, err := svc.CancelParticipation(ctx, viewerB, post.ID)
	require.NoError(t, err)
	assert.Nil(t, left.Author.RealName)
	assert.False(t, left.HasParticipated)
	assert.Equal(t, 0, left.ParticipantsCount)

	before, err := svc.GetPost(ctx, viewerB, post.ID)
	require.NoError(t, err)
	assert.Equal(t, feed[0], *before, "state after cancel matches never having joined")
}

func TestFeedAndReadOneRedactIdentically(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := createStudySession(t, svc)
	second := createStudySession(t, svc)

	_, err := svc.Participate(ctx, viewerC, first.ID)
	require.NoError(t, err)

	feed, err := svc.ListFeed(ctx, viewerC)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, second.ID, feed[0].ID, "newest first")

	for _, fromFeed := range feed {
		one, err := svc.GetPost(ctx, viewerC, fromFeed.ID)
		require.NoError(t, err)
		assert.Equal(t, fromFeed, *one)
	}
}

func TestAuthorSeesOwnRealName(t *testing.T) {
	svc, _ := newTestService(t)
	post := createStudySession(t, svc)

	require.NotNil(t, post.Author.RealName)
	assert.Equal(t, "Alice Zhang", *post.Author.RealName)

	adminView, err := svc.GetPost(context.Background(), viewerD, post.ID)
	require.NoError(t, err)
	assert.Nil(t, adminView.Author.RealName, "admins without participation stay redacted")
}

func TestParticipate_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	_, err := svc.Participate(ctx, viewerB, 999)
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)

	_, err = svc.Participate(ctx, viewerA, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrCannotJoinOwnPost)

	_, err = svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)

	_, err = svc.Participate(ctx, viewerB, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyParticipated)
	assert.False(t, errors.Is(err, apperrors.ErrResourceNotFound))
	assert.False(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.False(t, errors.Is(err, apperrors.ErrPermissionDenied))
}

func TestParticipate_ConcurrentDuplicates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Participate(ctx, viewerB, post.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyParticipated)
	}
	assert.Equal(t, 1, succeeded)

	count, err := store.CountFor(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCancelParticipation_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	_, err := svc.CancelParticipation(ctx, viewerB, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipating)

	_, err = svc.CancelParticipation(ctx, viewerB, 999)
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestManageOperations_ForbiddenForStrangers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)
	_, err := svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)

	_, err = svc.UpdatePost(ctx, viewerC, post.ID, &dto.UpdatePostRequest{})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "forbidden even for an invalid payload")

	err = svc.DeletePost(ctx, viewerC, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = svc.KickParticipant(ctx, viewerC, post.ID, userB.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	// a participant is still not a manager
	err = svc.KickParticipant(ctx, viewerB, post.ID, userC.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAuthorizeUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	assert.NoError(t, svc.AuthorizeUpdate(ctx, viewerA, post.ID))
	assert.NoError(t, svc.AuthorizeUpdate(ctx, viewerD, post.ID))
	assert.ErrorIs(t, svc.AuthorizeUpdate(ctx, viewerC, post.ID), apperrors.ErrPermissionDenied)
	assert.ErrorIs(t, svc.AuthorizeUpdate(ctx, viewerC, 42), apperrors.ErrPostNotFound)
}

func TestManageOperations_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdatePost(ctx, viewerA, 42, &dto.UpdatePostRequest{Location: dto.Some("x")})
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
	assert.ErrorIs(t, svc.DeletePost(ctx, viewerA, 42), apperrors.ErrPostNotFound)
	assert.ErrorIs(t, svc.KickParticipant(ctx, viewerA, 42, 2), apperrors.ErrPostNotFound)

	_, err = svc.ListParticipants(ctx, viewerA, 42)
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestUpdatePost_AdminPartialUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	original := createStudySession(t, svc)

	updated, err := svc.UpdatePost(ctx, viewerD, original.ID, &dto.UpdatePostRequest{Location: dto.Some("library")})
	require.NoError(t, err)

	require.NotNil(t, updated.Location)
	assert.Equal(t, "library", *updated.Location)
	assert.Equal(t, original.Content, updated.Content)
	assert.Equal(t, original.TargetPeople, updated.TargetPeople)
	assert.Equal(t, original.Tags, updated.Tags)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.Equal(t, original.AuthorID, updated.AuthorID)
}

func TestUpdatePost_ClearAndValidate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	_, err := svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{})
	assert.ErrorIs(t, err, apperrors.ErrNoFieldsToUpdate)

	_, err = svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{Content: dto.Null[string]()})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{TargetPeople: dto.Some(0)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{Duration: dto.Some(math.MaxInt32 + 1)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	maxed, err := svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{TargetPeople: dto.Some(math.MaxInt32)})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, *maxed.TargetPeople)

	withLocation, err := svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{Location: dto.Some("gym")})
	require.NoError(t, err)
	require.NotNil(t, withLocation.Location)

	cleared, err := svc.UpdatePost(ctx, viewerA, post.ID, &dto.UpdatePostRequest{
		Location:     dto.Some(""),
		TargetPeople: dto.Null[int](),
		Tags:         dto.Null[[]string](),
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.Location)
	assert.Nil(t, cleared.TargetPeople)
	assert.Equal(t, []string{}, cleared.Tags)
	assert.Equal(t, "study session", cleared.Content)
}

func TestDeletePost_CascadesParticipation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)
	_, err := svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, viewerA, post.ID))

	exists, err := store.ExistsFor(ctx, post.ID, userB.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.GetPost(ctx, viewerB, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrPostNotFound)
}

func TestKickParticipant(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	err := svc.KickParticipant(ctx, viewerA, post.ID, userB.ID)
	assert.ErrorIs(t, err, apperrors.ErrParticipantNotFound, "kick before joining")

	_, err = svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)

	require.NoError(t, svc.KickParticipant(ctx, viewerA, post.ID, userB.ID))

	view, err := svc.GetPost(ctx, viewerB, post.ID)
	require.NoError(t, err)
	assert.False(t, view.HasParticipated)
	assert.Nil(t, view.Author.RealName)

	_, err = svc.Participate(ctx, viewerB, post.ID)
	require.NoError(t, err)
	require.NoError(t, svc.KickParticipant(ctx, viewerD, post.ID, userB.ID), "admins may kick")

	assert.ErrorIs(t, svc.KickParticipant(ctx, viewerD, post.ID, userD.ID), apperrors.ErrSelfKick)
}

func TestListParticipants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	post := createStudySession(t, svc)

	_, err := svc.ListParticipants(ctx, viewerB, post.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	for _, v := range []auth.Viewer{viewerC, viewerB, viewerD} {
		_, err := svc.Participate(ctx, v, post.ID)
		require.NoError(t, err)
	}

	for _, v := range []auth.Viewer{viewerA, viewerB, viewerD} {
		roster, err := svc.ListParticipants(ctx, v, post.ID)
		require.NoError(t, err)
		require.Len(t, roster, 3)
		assert.Equal(t, []int64{userC.ID, userB.ID, userD.ID}, []int64{roster[0].ID, roster[1].ID, roster[2].ID})
	}
}

func TestStoreFailureIsWrapped(t *testing.T) {
	svc, store := newTestService(t)
	boom := errors.New("connection reset")
	store.FailWith(boom)

	_, err := svc.GetPost(context.Background(), viewerA, 1)
	require.ErrorIs(t, err, boom)
	_, isDomain := apperrors.AsCustom(err)
	assert.False(t, isDomain)
}
