package repository

import (
	"context"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
)

type UserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type PGUserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists)
	return exists, err
}

// Create inserts the user and fills in its generated fields. A concurrent
// registration of the same address surfaces as ErrEmailTaken.
func (r *PGUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users (name, email, password_hash, is_admin, email_verified_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`, user.Name, user.Email, user.PasswordHash, user.IsAdmin, user.EmailVerifiedAt).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if name, ok := uniqueConstraint(err); ok && name == constraintUserEmail {
		return ErrEmailTaken
	}
	return err
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(ctx, `SELECT id, name, email, password_hash, is_admin, email_verified_at, created_at, updated_at FROM users WHERE email=$1`, email)
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanOne(ctx, `SELECT id, name, email, password_hash, is_admin, email_verified_at, created_at, updated_at FROM users WHERE id=$1`, id)
}

func (r *PGUserRepository) scanOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
