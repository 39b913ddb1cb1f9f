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

const usersEmailConstraint = "users_email_key"

var userColumns = []string{
	"id", "email", "password_hash",
	"COALESCE(real_name, '')", "COALESCE(nickname, '')", "COALESCE(grade, '')",
	"COALESCE(gender, '')", "COALESCE(bio, '')", "tags", "COALESCE(avatar_url, '')",
	"is_admin", "profile_completed", "email_verified", "created_at",
}

// UserRepository is the user directory backed by the users table.
type UserRepository struct {
	db db.Querier
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(q db.Querier) *UserRepository {
	return &UserRepository{
		db: q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash,
		&u.RealName, &u.Nickname, &u.Grade,
		&u.Gender, &u.Bio, &u.Tags, &u.AvatarURL,
		&u.IsAdmin, &u.ProfileCompleted, &u.EmailVerified, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return u, nil
}

// Create inserts an unverified user and returns its id.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (int64, error) {
	sql, args, err := r.sb.Insert("users").
		Columns("email", "password_hash").
		Values(email, passwordHash).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if dberrors.IsDuplicateConstraintError(err, usersEmailConstraint) {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		return 0, fmt.Errorf("error creating user: %w", err)
	}
	return id, nil
}

// GetByID returns the user or apperrors.ErrUserNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail looks up an already normalized address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByIDs loads several users at once. Missing ids are absent from the map.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	sql, args, err := r.sb.Select(userColumns...).From("users").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) updateOne(ctx context.Context, id int64, set map[string]interface{}) error {
	sql, args, err := r.sb.Update("users").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.updateOne(ctx, id, map[string]interface{}{"password_hash": passwordHash})
}

// MarkEmailVerified flags the address as verified.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.updateOne(ctx, id, map[string]interface{}{"email_verified": true})
}

// UpdateAvatar sets the public avatar path.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	return r.updateOne(ctx, id, map[string]interface{}{"avatar_url": avatarURL})
}

// CompleteProfile writes every profile field, flips profile_completed and returns the fresh row.
func (r *UserRepository) CompleteProfile(ctx context.Context, id int64, p models.ProfileUpdate) (*models.User, error) {
	set := map[string]interface{}{
		"real_name":         p.RealName,
		"nickname":          p.Nickname,
		"grade":             p.Grade,
		"gender":            p.Gender,
		"bio":               p.Bio,
		"tags":              p.Tags,
		"profile_completed": true,
	}
	if p.AvatarURL != nil {
		set["avatar_url"] = *p.AvatarURL
	}

	if err := r.updateOne(ctx, id, set); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user; posts, participations and tokens go with it.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// PromoteAdmins sets is_admin for every listed address and returns how many rows changed.
func (r *UserRepository) PromoteAdmins(ctx context.Context, emails []string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}

	sql, args, err := r.sb.Update("users").
		Set("is_admin", true).
		Where(squirrel.Eq{"email": emails}).
		Where(squirrel.Eq{"is_admin": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error promoting admins: %w", err)
	}
	return tag.RowsAffected(), nil
}
