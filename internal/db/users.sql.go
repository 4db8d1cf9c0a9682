package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, normalized_email, name, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.NormalizedEmail,
		&i.Name,
		&i.PasswordHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, normalized_email, name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

type CreateUserParams struct {
	Email           string `json:"email"`
	NormalizedEmail string `json:"normalized_email"`
	Name            string `json:"name"`
	PasswordHash    string `json:"password_hash"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.NormalizedEmail, arg.Name, arg.PasswordHash)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE normalized_email = $1`

func (q *Queries) GetUserByEmail(ctx context.Context, normalizedEmail string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, normalizedEmail))
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users
ORDER BY created_at, id
LIMIT $1 OFFSET $2`

type ListUsersParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUsers = `-- name: CountUsers :one
SELECT count(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUsers).Scan(&count)
	return count, err
}

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users SET name = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

type UpdateUserProfileParams struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserProfile, arg.ID, arg.Name))
}

const updateUserPassword = `-- name: UpdateUserPassword :execrows
UPDATE users SET password_hash = $2, updated_at = now()
WHERE id = $1`

type UpdateUserPasswordParams struct {
	ID           uuid.UUID `json:"id"`
	PasswordHash string    `json:"password_hash"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateUserPassword, arg.ID, arg.PasswordHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = $1`

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const upsertRole = `-- name: UpsertRole :exec
INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`

func (q *Queries) UpsertRole(ctx context.Context, name string) error {
	_, err := q.db.Exec(ctx, upsertRole, name)
	return err
}

const roleExists = `-- name: RoleExists :one
SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`

func (q *Queries) RoleExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, roleExists, name).Scan(&exists)
	return exists, err
}

const listUserRoles = `-- name: ListUserRoles :many
SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`

func (q *Queries) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, listUserRoles, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		items = append(items, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const addUserRole = `-- name: AddUserRole :exec
INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
ON CONFLICT (user_id, role) DO NOTHING`

type AddUserRoleParams struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func (q *Queries) AddUserRole(ctx context.Context, arg AddUserRoleParams) error {
	_, err := q.db.Exec(ctx, addUserRole, arg.UserID, arg.Role)
	return err
}

const removeUserRole = `-- name: RemoveUserRole :execrows
DELETE FROM user_roles WHERE user_id = $1 AND role = $2`

type RemoveUserRoleParams struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func (q *Queries) RemoveUserRole(ctx context.Context, arg RemoveUserRoleParams) (int64, error) {
	result, err := q.db.Exec(ctx, removeUserRole, arg.UserID, arg.Role)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked_at, created_at`

func scanRefreshToken(row interface{ Scan(...any) error }) (RefreshToken, error) {
	var i RefreshToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.TokenHash,
		&i.ExpiresAt,
		&i.RevokedAt,
		&i.CreatedAt,
	)
	return i, err
}

const createRefreshToken = `-- name: CreateRefreshToken :one
INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING ` + refreshTokenColumns

type CreateRefreshTokenParams struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error) {
	return scanRefreshToken(q.db.QueryRow(ctx, createRefreshToken, arg.UserID, arg.TokenHash, arg.ExpiresAt))
}

const getRefreshTokenByHash = `-- name: GetRefreshTokenByHash :one
SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	return scanRefreshToken(q.db.QueryRow(ctx, getRefreshTokenByHash, tokenHash))
}

const revokeRefreshToken = `-- name: RevokeRefreshToken :execrows
UPDATE refresh_tokens SET revoked_at = now()
WHERE id = $1 AND revoked_at IS NULL`

func (q *Queries) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, revokeRefreshToken, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const revokeUserRefreshTokens = `-- name: RevokeUserRefreshTokens :exec
UPDATE refresh_tokens SET revoked_at = now()
WHERE user_id = $1 AND revoked_at IS NULL`

func (q *Queries) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, revokeUserRefreshTokens, userID)
	return err
}
