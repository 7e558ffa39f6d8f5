package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/miosrv/mio/internal/model"
)

const userColumns = `id, username, username_safe, password, country, permissions, flags,
	 created_at, last_seen, donor_until, background_url, username_history, userpage_content, coins`

// UserRepository provides account lookups and moderation updates.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a UserRepository over the shared pool.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.UsernameSafe, &u.Password, &u.Country,
		&u.Permissions, &u.Flags, &u.CreatedAt, &u.LastSeen, &u.DonorUntil,
		&u.BackgroundURL, &u.UsernameHistory, &u.UserpageContent, &u.Coins)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByID retrieves a user by id. Returns nil, nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id int32) (*model.User, error) {
	u, err := r.scanUser(r.db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("querying user %d: %w", id, err)
	}
	return u, nil
}

// GetBySafeName retrieves a user by normalized username.
func (r *UserRepository) GetBySafeName(ctx context.Context, safe string) (*model.User, error) {
	u, err := r.scanUser(r.db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username_safe = $1`, safe))
	if err != nil {
		return nil, fmt.Errorf("querying user %q: %w", safe, err)
	}
	return u, nil
}

// FindByTerm resolves a user by numeric id or by (safe) username.
func (r *UserRepository) FindByTerm(ctx context.Context, term string) (*model.User, error) {
	if id, err := strconv.ParseInt(term, 10, 32); err == nil {
		if u, err := r.GetByID(ctx, int32(id)); err != nil || u != nil {
			return u, err
		}
	}
	return r.GetBySafeName(ctx, model.ToSafe(term))
}

// UpdateLastSeen bumps the activity timestamp.
func (r *UserRepository) UpdateLastSeen(ctx context.Context, id int32) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE users SET last_seen = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating last seen for %d: %w", id, err)
	}
	return nil
}

// UpdateCountry stores the resolved country for users registered as XX.
func (r *UserRepository) UpdateCountry(ctx context.Context, id int32, country string) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE users SET country = $1 WHERE id = $2`, country, id)
	if err != nil {
		return fmt.Errorf("updating country for %d: %w", id, err)
	}
	return nil
}

// SetRestricted sets or clears the restriction permission bit.
func (r *UserRepository) SetRestricted(ctx context.Context, id int32, restricted bool) error {
	var query string
	if restricted {
		query = `UPDATE users SET permissions = permissions | 8 WHERE id = $1`
	} else {
		query = `UPDATE users SET permissions = permissions & ~8 WHERE id = $1`
	}
	if _, err := r.db.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("updating restriction for %d: %w", id, err)
	}
	return nil
}

// GetRestricted returns all users carrying an effective restriction.
func (r *UserRepository) GetRestricted(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE permissions & 8 != 0 AND flags & 32 = 0`)
	if err != nil {
		return nil, fmt.Errorf("querying restricted users: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// GetInactive returns users not seen within the given window.
func (r *UserRepository) GetInactive(ctx context.Context, cutoff time.Time) ([]model.User, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE last_seen < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying inactive users: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *UserRepository) collect(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]model.User, error) {
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.UsernameSafe, &u.Password, &u.Country,
			&u.Permissions, &u.Flags, &u.CreatedAt, &u.LastSeen, &u.DonorUntil,
			&u.BackgroundURL, &u.UsernameHistory, &u.UserpageContent, &u.Coins); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return out, nil
}
