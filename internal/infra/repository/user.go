package repository

import (
	"context"

	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
)

type UserRepository struct {
	db db.DBTX
}

func NewUserRepository(dbtx db.DBTX) *UserRepository {
	return &UserRepository{db: dbtx}
}

const createUserSQL = `
INSERT INTO users (id, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id
`

func (r *UserRepository) Create(ctx context.Context, tx db.DBTX, params shared.CreateUserParams) (uuid.UUID, error) {
	var userID uuid.UUID
	err := tx.QueryRow(ctx, createUserSQL, uuid.New(), params.Email, params.PasswordHash, params.Role).Scan(&userID)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create user", err)
	}
	return userID, nil
}

const updateLastLoginSQL = `
UPDATE users SET last_login_at = now() WHERE id = $1
`

func (r *UserRepository) UpdateLastLogin(ctx context.Context, tx db.DBTX, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, updateLastLoginSQL, userID); err != nil {
		return infra.WrapRepoErr("failed to update last login", err)
	}
	return nil
}
