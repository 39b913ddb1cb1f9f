// Package servicetest provides in-memory stores for exercising services without a database.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/pkg/apperrors"
)

// MemoryStore is an in-memory post store and participation ledger for tests.
type MemoryStore struct {
	mu       sync.Mutex
	now      time.Time
	nextPost int64
	nextPart int64
	users    map[int64]*models.User
	posts    map[int64]*models.Post
	parts    map[[2]int64]models.Participation
	failWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		users: make(map[int64]*models.User),
		posts: make(map[int64]*models.Post),
		parts: make(map[[2]int64]models.Participation),
	}
}

// FailWith makes post reads and writes fail with err until reset with nil.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MemoryStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *MemoryStore) AddUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) Create(_ context.Context, np models.NewPost) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	m.nextPost++
	p := &models.Post{
		ID: m.nextPost, AuthorID: np.AuthorID, Content: np.Content, EventTime: np.EventTime,
		DurationMinutes: np.DurationMinutes, Location: np.Location, TargetPeople: np.TargetPeople,
		Tags: append([]string{}, np.Tags...), CreatedAt: m.tick(),
	}
	m.posts[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, id int64, patch models.PostPatch) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, apperrors.ErrPostNotFound
	}
	updated := patch.Apply(*p)
	m.posts[id] = &updated
	cp := updated
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return apperrors.ErrPostNotFound
	}
	delete(m.posts, id)
	for k := range m.parts {
		if k[0] == id {
			delete(m.parts, k)
		}
	}
	return nil
}

func (m *MemoryStore) Add(_ context.Context, postID, userID int64) (*models.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return nil, apperrors.ErrPostNotFound
	}
	key := [2]int64{postID, userID}
	if _, ok := m.parts[key]; ok {
		return nil, apperrors.ErrAlreadyParticipated
	}
	m.nextPart++
	p := models.Participation{ID: m.nextPart, PostID: postID, UserID: userID, ParticipatedAt: m.tick()}
	m.parts[key] = p
	return &p, nil
}

func (m *MemoryStore) Remove(_ context.Context, postID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int64{postID, userID}
	if _, ok := m.parts[key]; !ok {
		return false, nil
	}
	delete(m.parts, key)
	return true, nil
}

func (m *MemoryStore) CountFor(_ context.Context, postID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.parts {
		if k[0] == postID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ExistsFor(_ context.Context, postID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parts[[2]int64{postID, userID}]
	return ok, nil
}

func (m *MemoryStore) ListFor(_ context.Context, postID int64) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Participation
	for k, p := range m.parts {
		if k[0] == postID {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ParticipatedAt.Equal(rows[j].ParticipatedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].ParticipatedAt.Before(rows[j].ParticipatedAt)
	})
	out := make([]models.Participant, 0, len(rows))
	for _, r := range rows {
		u := m.users[r.UserID]
		out = append(out, models.Participant{ID: u.ID, Nickname: u.Nickname, ParticipatedAt: r.ParticipatedAt})
	}
	return out, nil
}

func (m *MemoryStore) CountsFor(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, id := range postIDs {
		n, _ := m.CountFor(ctx, id)
		if n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (m *MemoryStore) ParticipatedIn(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	joined := make(map[int64]bool)
	for _, id := range postIDs {
		if ok, _ := m.ExistsFor(ctx, id, userID); ok {
			joined[id] = true
		}
	}
	return joined, nil
}

// Directory serves the users added with AddUser. GetByID on MemoryStore itself serves posts.
type Directory struct{ m *MemoryStore }

// Users returns the user directory backed by m.
func (m *MemoryStore) Users() Directory { return Directory{m} }

func (d Directory) GetByID(_ context.Context, id int64) (*models.User, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	u, ok := d.m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (d Directory) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	out := make(map[int64]*models.User)
	for _, id := range ids {
		if u, err := d.GetByID(ctx, id); err == nil {
			out[id] = u
		}
	}
	return out, nil
}
