package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/db"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/dberrors"
)

var postColumns = []string{
	"id", "user_id", "content", "event_time", "duration", "location", "target_people", "tags", "created_at",
}

// PostRepository is the post store backed by the posts table.
type PostRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(q db.Querier) *PostRepository {
	return &PostRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.Content, &p.EventTime, &p.DurationMinutes,
		&p.Location, &p.TargetPeople, &p.Tags, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func returning() string {
	return "RETURNING " + strings.Join(postColumns, ", ")
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// Create inserts a post. A vanished author surfaces as apperrors.ErrUserNotFound.
func (r *PostRepository) Create(ctx context.Context, np models.NewPost) (*models.Post, error) {
	sql, args, err := r.sb.Insert("posts").
		Columns("user_id", "content", "event_time", "duration", "location", "target_people", "tags").
		Values(np.AuthorID, np.Content, np.EventTime, np.DurationMinutes, np.Location, np.TargetPeople, tagsOrEmpty(np.Tags)).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	p, err := scanPost(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	return p, nil
}

// GetByID returns the post or apperrors.ErrPostNotFound.
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	sql, args, err := r.sb.Select(postColumns...).From("posts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	p, err := scanPost(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("error fetching post: %w", err)
	}
	return p, nil
}

// ListAll returns every post, newest first.
func (r *PostRepository) ListAll(ctx context.Context) ([]*models.Post, error) {
	sql, args, err := r.sb.Select(postColumns...).
		From("posts").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

func patchSetMap(patch models.PostPatch) map[string]interface{} {
	set := make(map[string]interface{})
	if patch.Content.Set && patch.Content.Value != nil {
		set["content"] = *patch.Content.Value
	}
	if patch.EventTime.Set {
		set["event_time"] = patch.EventTime.Value
	}
	if patch.DurationMinutes.Set {
		set["duration"] = patch.DurationMinutes.Value
	}
	if patch.Location.Set {
		set["location"] = patch.Location.Value
	}
	if patch.TargetPeople.Set {
		set["target_people"] = patch.TargetPeople.Value
	}
	if patch.Tags.Set {
		var tags []string
		if patch.Tags.Value != nil {
			tags = *patch.Tags.Value
		}
		set["tags"] = tagsOrEmpty(tags)
	}
	return set
}

// Update writes only the columns named by patch in a single statement and returns the row.
func (r *PostRepository) Update(ctx context.Context, id int64, patch models.PostPatch) (*models.Post, error) {
	set := patchSetMap(patch)
	if len(set) == 0 {
		return nil, apperrors.ErrNoFieldsToUpdate
	}

	sql, args, err := r.sb.Update("posts").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	p, err := scanPost(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	return p, nil
}

// Delete removes the post; its participations cascade.
func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("posts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}
