package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quotahub/saas-auth-api/internal/auth"
	"github.com/quotahub/saas-auth-api/internal/model"
)

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrUserExists = errors.New("username or email already exists")

const userColumns = "id,username,email,password_hash,role,is_active,subscription_plan,stripe_customer_id,created_at,updated_at"

// Create inserts a user with the default USER role and FREE plan and
// returns its ID. Duplicate username or email maps to ErrUserExists
// (MySQL error 1062).
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, subscription_plan) VALUES (?,?,?,?,?)",
		username, email, hash, model.RoleUser, model.PlanFree)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUserExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.SubscriptionPlan, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns users ordered by id with offset/limit paging.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
			&u.IsActive, &u.SubscriptionPlan, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetActive sets the is_active flag; used by the admin suspend toggle.
// Callers verify the user exists first, so no rows-affected check here
// (MySQL reports zero affected rows for no-op updates).
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	return err
}

// SetRole updates the user's role. Subsequent authorization checks pick up
// the new role because the gate resolves the user from the database per
// request, not from the token.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	return err
}

// SetPlan updates the user's subscription plan.
func (r *UserRepo) SetPlan(ctx context.Context, id uint64, plan string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET subscription_plan=? WHERE id=?", plan, id)
	return err
}

// Counts holds the system-wide user aggregates for the admin stats view.
type Counts struct {
	Total  int
	Active int
	Free   int
	Pro    int
}

// CountUsers computes totals, active users and the plan distribution in a
// single scan of the users table.
func (r *UserRepo) CountUsers(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COALESCE(SUM(is_active),0),
               COALESCE(SUM(subscription_plan=?),0),
               COALESCE(SUM(subscription_plan=?),0)
        FROM users`, model.PlanFree, model.PlanPro).
		Scan(&c.Total, &c.Active, &c.Free, &c.Pro)
	return c, err
}

// SeedAdmin creates the default admin account if no user with the given
// username exists. Called once at startup.
func (r *UserRepo) SeedAdmin(ctx context.Context, username, email, password string, cost int) error {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE username=? LIMIT 1", username).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, subscription_plan) VALUES (?,?,?,?,?)",
		username, email, hash, model.RoleAdmin, model.PlanFree)
	return err
}
