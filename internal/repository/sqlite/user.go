package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, display_name, gender,
	birthday, horoscope, chinese_zodiac, height, weight, interests, image,
	created_at, updated_at`

// Create inserts a new account record, generating its ID and timestamps.
//
// Uniqueness is checked explicitly first so callers get a clean conflict
// error naming the problem; the UNIQUE constraints remain as the backstop
// for anything that slips past the pre-check.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? OR email = ?`,
		user.Username, user.Email,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("sqlite: checking username/email uniqueness: %w", err)
	}
	if count > 0 {
		return apperror.Conflict("username or email is already in use")
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Interests == nil {
		user.Interests = []string{}
	}

	interests, err := json.Marshal(user.Interests)
	if err != nil {
		return fmt.Errorf("sqlite: encoding interests: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, display_name, gender,
			birthday, horoscope, chinese_zodiac, height, weight, interests, image,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Gender,
		user.Birthday,
		user.Horoscope,
		user.ChineseZodiac,
		user.Height,
		user.Weight,
		string(interests),
		user.Image,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves an account record by its internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves an account record by email — the login lookup.
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// Save persists the full current state of an existing record and refreshes
// its UpdatedAt. Identity fields (username, email, password hash) are written
// too, but the service layer never changes them after registration.
func (db *DB) Save(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	interests, err := json.Marshal(user.Interests)
	if err != nil {
		return fmt.Errorf("sqlite: encoding interests: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?,
			display_name = ?, gender = ?, birthday = ?, horoscope = ?,
			chinese_zodiac = ?, height = ?, weight = ?, interests = ?, image = ?,
			updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Gender,
		user.Birthday,
		user.Horoscope,
		user.ChineseZodiac,
		user.Height,
		user.Weight,
		string(interests),
		user.Image,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("user not found")
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var interests string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Gender,
		&u.Birthday,
		&u.Horoscope,
		&u.ChineseZodiac,
		&u.Height,
		&u.Weight,
		&interests,
		&u.Image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(interests), &u.Interests); err != nil {
		return nil, fmt.Errorf("decoding interests for user %s: %w", u.ID, err)
	}
	if u.Interests == nil {
		u.Interests = []string{}
	}

	return &u, nil
}
