package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/store-locator/internal/model"
	"github.com/iliyamo/store-locator/internal/utils"
)

// UserRepo persists user accounts.  Role names are resolved through a join
// so callers always see the user's current role.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `u.id, u.email, u.password_hash, COALESCE(u.full_name,''), u.status,
	u.role_id, r.name, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Status,
		&u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user with a bcrypt-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, fullName string, roleID uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, status, role_id) VALUES (?,?,?,?,?)",
		email, hash, fullName, model.UserStatusActive, roleID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id WHERE u.id=? LIMIT 1",
		id))
}

// List returns users with pagination.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id=u.role_id ORDER BY u.id LIMIT ? OFFSET ?",
		limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UserPatch lists the fields an admin update may touch.
type UserPatch struct {
	FullName *string
	RoleID   *uint64
	Status   *string
}

// Update applies a partial patch to a user row.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	set := []string{}
	args := []any{}
	if p.FullName != nil {
		set = append(set, "full_name=?")
		args = append(args, *p.FullName)
	}
	if p.RoleID != nil {
		set = append(set, "role_id=?")
		args = append(args, *p.RoleID)
	}
	if p.Status != nil {
		set = append(set, "status=?")
		args = append(args, *p.Status)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	return err
}

// SetStatus performs the soft-delete transition for user accounts.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=? WHERE id=?", status, id)
	return err
}
