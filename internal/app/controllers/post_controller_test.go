package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/app/services"
	"github.com/machus/backend/internal/app/services/servicetest"
	"github.com/machus/backend/internal/middleware"
	"github.com/machus/backend/internal/pkg/auth"
	"github.com/machus/backend/internal/pkg/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

type postAPI struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTService
}

func newPostAPI(t *testing.T, users ...*models.User) *postAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	campus, err := validation.NewCampusEmail(`^[^@\s]+@shanghaitech\.edu\.cn$`)
	require.NoError(t, err)
	require.NoError(t, middleware.RegisterValidators(campus))

	store := servicetest.NewMemoryStore()
	for _, u := range users {
		store.AddUser(u)
	}
	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", TokenExp: time.Hour, TokenIssuer: "machus"})
	mw := middleware.NewAuthMiddleware(jwt, store.Users())
	ctrl := NewPostController(services.NewPostService(store, store, store.Users(), zerolog.Nop()), zerolog.Nop())

	r := gin.New()
	posts := r.Group("/api/posts", mw.JWTAuth(), mw.ProfileCompletionRequired())
	posts.POST("", ctrl.CreatePost)
	posts.GET("", ctrl.ListPosts)
	posts.GET("/:id", ctrl.GetPost)
	posts.PUT("/:id", ctrl.UpdatePost)
	posts.DELETE("/:id", ctrl.DeletePost)
	posts.POST("/:id/participate", ctrl.Participate)
	posts.DELETE("/:id/participate", ctrl.CancelParticipation)
	posts.GET("/:id/participants", ctrl.ListParticipants)
	posts.DELETE("/:id/participants/:userId", ctrl.KickParticipant)

	return &postAPI{t: t, router: r, jwt: jwt}
}

func (a *postAPI) do(as *models.User, method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, _, err := a.jwt.GenerateToken(as.ID, as.Email)
	require.NoError(a.t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// postViewJSON mirrors the wire shape so null real names stay observable.
type postViewJSON struct {
	ID           int64      `json:"id"`
	Content      string     `json:"content"`
	EventTime    *time.Time `json:"eventTime"`
	Location     *string    `json:"location"`
	TargetPeople *int       `json:"targetPeople"`
	Tags         []string   `json:"tags"`
	Author       struct {
		ID       int64   `json:"id"`
		Nickname string  `json:"nickname"`
		RealName *string `json:"realName"`
	} `json:"author"`
	HasParticipated   bool `json:"hasParticipated"`
	ParticipantsCount int  `json:"participantsCount"`
}

var (
	alice = &models.User{ID: 1, Email: "alice@shanghaitech.edu.cn", RealName: "Alice Zhang", Nickname: "alice", ProfileCompleted: true}
	bob   = &models.User{ID: 2, Email: "bob@shanghaitech.edu.cn", RealName: "Bob Li", Nickname: "bob", ProfileCompleted: true}
	carol = &models.User{ID: 3, Email: "carol@shanghaitech.edu.cn", RealName: "Carol Wu", Nickname: "carol", ProfileCompleted: true}
	dan   = &models.User{ID: 4, Email: "dan@shanghaitech.edu.cn", RealName: "Dan Admin", Nickname: "dan", IsAdmin: true, ProfileCompleted: true}
	eve   = &models.User{ID: 5, Email: "eve@shanghaitech.edu.cn", Nickname: "eve"}
)

func TestPostAPI_ParticipationRevealsRealName(t *testing.T) {
	api := newPostAPI(t, alice, bob)

	status, env := api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{"content": "study session", "targetPeople": 3})
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[postViewJSON](t, env)
	postPath := fmt.Sprintf("/api/posts/%d", created.ID)

	status, env = api.do(bob, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, status)
	feed := decodeData[[]postViewJSON](t, env)
	require.Len(t, feed, 1)
	assert.Equal(t, "alice", feed[0].Author.Nickname)
	assert.Nil(t, feed[0].Author.RealName)
	assert.False(t, feed[0].HasParticipated)
	assert.Contains(t, string(env.Data), `"realName":null`)

	// kicking someone who never joined
	status, env = api.do(alice, http.MethodDelete, fmt.Sprintf("%s/participants/%d", postPath, bob.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "PART_003", env.Error.Code)

	status, env = api.do(bob, http.MethodPost, postPath+"/participate", nil)
	require.Equal(t, http.StatusOK, status)
	joined := decodeData[postViewJSON](t, env)
	require.NotNil(t, joined.Author.RealName)
	assert.Equal(t, "Alice Zhang", *joined.Author.RealName)
	assert.True(t, joined.HasParticipated)
	assert.Equal(t, 1, joined.ParticipantsCount)

	status, env = api.do(bob, http.MethodPost, postPath+"/participate", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "PART_001", env.Error.Code)

	status, env = api.do(bob, http.MethodGet, postPath+"/participants", nil)
	require.Equal(t, http.StatusOK, status)
	roster := decodeData[[]models.Participant](t, env)
	require.Len(t, roster, 1)
	assert.Equal(t, bob.ID, roster[0].ID)

	status, env = api.do(bob, http.MethodDelete, postPath+"/participate", nil)
	require.Equal(t, http.StatusOK, status)
	left := decodeData[postViewJSON](t, env)
	assert.Nil(t, left.Author.RealName)
	assert.False(t, left.HasParticipated)
	assert.Equal(t, 0, left.ParticipantsCount)

	status, env = api.do(bob, http.MethodDelete, postPath+"/participate", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "PART_002", env.Error.Code)

	status, _ = api.do(bob, http.MethodGet, postPath+"/participants", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPostAPI_AdminPartialUpdate(t *testing.T) {
	api := newPostAPI(t, alice, carol, dan)

	status, env := api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{
		"content": "study session", "targetPeople": 3, "tags": []string{"math"},
	})
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[postViewJSON](t, env)
	postPath := fmt.Sprintf("/api/posts/%d", created.ID)

	for _, body := range []interface{}{
		map[string]interface{}{"location": "library"},
		map[string]interface{}{"targetPeople": -1},
		"{}",
		`{"targetPeople":"abc"}`,
		`{"tags":"x"}`,
		`{"eventTime":"soon"}`,
		"not json",
	} {
		status, env = api.do(carol, http.MethodPut, postPath, body)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "AUTH_011", env.Error.Code)
	}

	status, env = api.do(carol, http.MethodPut, "/api/posts/999", "not json")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "POST_001", env.Error.Code)

	status, env = api.do(dan, http.MethodPut, postPath, `{"targetPeople":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "targetPeople", env.Error.Field)

	status, env = api.do(dan, http.MethodPut, postPath, map[string]interface{}{"location": "library"})
	require.Equal(t, http.StatusOK, status)
	updated := decodeData[postViewJSON](t, env)
	require.NotNil(t, updated.Location)
	assert.Equal(t, "library", *updated.Location)
	assert.Equal(t, "study session", updated.Content)
	require.NotNil(t, updated.TargetPeople)
	assert.Equal(t, 3, *updated.TargetPeople)
	assert.Equal(t, []string{"math"}, updated.Tags)

	status, env = api.do(carol, http.MethodGet, postPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "library", *decodeData[postViewJSON](t, env).Location)

	status, _ = api.do(carol, http.MethodDelete, postPath, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = api.do(dan, http.MethodDelete, postPath, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = api.do(dan, http.MethodGet, postPath, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "POST_001", env.Error.Code)
}

func TestPostAPI_RequestValidation(t *testing.T) {
	api := newPostAPI(t, alice)

	status, env := api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "content", env.Error.Field)

	status, env = api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{"content": "x", "duration": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "duration", env.Error.Field)

	status, _ = api.do(alice, http.MethodPost, "/api/posts", `{"content": 12}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = api.do(alice, http.MethodGet, "/api/posts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VAL_001", env.Error.Code)
}

func TestPostAPI_ProfileRequired(t *testing.T) {
	api := newPostAPI(t, eve)

	status, env := api.do(eve, http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PROF_001", env.Error.Code)
}

func TestPostAPI_EventTimeAcceptsISO8601(t *testing.T) {
	api := newPostAPI(t, alice)
	local := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)

	status, env := api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{"content": "study", "eventTime": "2025-03-01T14:30"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[postViewJSON](t, env)
	require.NotNil(t, created.EventTime)
	assert.True(t, local.Equal(*created.EventTime))

	status, env = api.do(alice, http.MethodPost, "/api/posts", map[string]interface{}{"content": "study", "eventTime": "next friday"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "eventTime", env.Error.Field)

	postPath := fmt.Sprintf("/api/posts/%d", created.ID)
	status, env = api.do(alice, http.MethodPut, postPath, map[string]interface{}{"eventTime": "2025-03-02T09:00:00+08:00"})
	require.Equal(t, http.StatusOK, status)
	updated := decodeData[postViewJSON](t, env)
	require.NotNil(t, updated.EventTime)
	assert.True(t, time.Date(2025, 3, 2, 1, 0, 0, 0, time.UTC).Equal(*updated.EventTime))

	status, env = api.do(alice, http.MethodPut, postPath, map[string]interface{}{"eventTime": "2025-03-02T09"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "eventTime", env.Error.Field)

	status, env = api.do(alice, http.MethodPut, postPath, map[string]interface{}{"eventTime": nil})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decodeData[postViewJSON](t, env).EventTime)
}
