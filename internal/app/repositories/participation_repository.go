package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/machus/backend/internal/app/models"
	"github.com/machus/backend/internal/db"
	"github.com/machus/backend/internal/pkg/apperrors"
	"github.com/machus/backend/internal/pkg/dberrors"
)

// ParticipationRepository is the participation ledger. It is the only place
// participation state is read or written.
type ParticipationRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewParticipationRepository creates a new ParticipationRepository
func NewParticipationRepository(q db.Querier) *ParticipationRepository {
	return &ParticipationRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Add records userID joining postID. A second insert for the same pair, concurrent
// or not, returns apperrors.ErrAlreadyParticipated; the UNIQUE(post_id, user_id)
// constraint decides the race.
func (r *ParticipationRepository) Add(ctx context.Context, postID, userID int64) (*models.Participation, error) {
	sql, args, err := r.sb.Insert("participations").
		Columns("post_id", "user_id").
		Values(postID, userID).
		Suffix("ON CONFLICT (post_id, user_id) DO NOTHING RETURNING id, post_id, user_id, participated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	var p models.Participation
	err = r.db.QueryRow(ctx, sql, args...).Scan(&p.ID, &p.PostID, &p.UserID, &p.ParticipatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlreadyParticipated
		}
		if dberrors.IsForeignKeyViolation(err) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("error adding participation: %w", err)
	}
	return &p, nil
}

// Remove deletes the (postID, userID) row and reports whether one existed.
func (r *ParticipationRepository) Remove(ctx context.Context, postID, userID int64) (bool, error) {
	sql, args, err := r.sb.Delete("participations").
		Where(squirrel.Eq{"post_id": postID, "user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error removing participation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountFor returns the number of participants of postID.
func (r *ParticipationRepository) CountFor(ctx context.Context, postID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("participations").
		Where(squirrel.Eq{"post_id": postID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting participations: %w", err)
	}
	return count, nil
}

// ExistsFor reports whether userID participates in postID.
func (r *ParticipationRepository) ExistsFor(ctx context.Context, postID, userID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From("participations").
		Where(squirrel.Eq{"post_id": postID, "user_id": userID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("error building SQL: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking participation: %w", err)
	}
	return exists, nil
}

// ListFor returns the roster of postID, first joined first. Equal timestamps
// fall back to insertion order.
func (r *ParticipationRepository) ListFor(ctx context.Context, postID int64) ([]models.Participant, error) {
	sql, args, err := r.sb.Select(
		"u.id", "COALESCE(u.nickname, '')", "COALESCE(u.avatar_url, '')",
		"COALESCE(u.grade, '')", "COALESCE(u.bio, '')", "u.tags", "pa.participated_at",
	).
		From("participations pa").
		Join("users u ON u.id = pa.user_id").
		Where(squirrel.Eq{"pa.post_id": postID}).
		OrderBy("pa.participated_at ASC", "pa.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Nickname, &p.AvatarURL, &p.Grade, &p.Bio, &p.Tags, &p.ParticipatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return participants, nil
}

// CountsFor returns participant counts keyed by post id. Posts without participants are absent.
func (r *ParticipationRepository) CountsFor(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	sql, args, err := r.sb.Select("post_id", "COUNT(*)").
		From("participations").
		Where(squirrel.Eq{"post_id": postIDs}).
		GroupBy("post_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		var count int
		if err := rows.Scan(&postID, &count); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		counts[postID] = count
	}
	return counts, rows.Err()
}

// ParticipatedIn returns the subset of postIDs that userID has joined.
func (r *ParticipationRepository) ParticipatedIn(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	joined := make(map[int64]bool)
	if len(postIDs) == 0 {
		return joined, nil
	}

	sql, args, err := r.sb.Select("post_id").
		From("participations").
		Where(squirrel.Eq{"user_id": userID, "post_id": postIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int64
		if err := rows.Scan(&postID); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		joined[postID] = true
	}
	return joined, rows.Err()
}
