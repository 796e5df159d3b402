package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soundcrate/soundcrate/internal/domain"
)

func (db *DB) CreateUser(user *domain.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `INSERT INTO users (id, display_name, avatar_key, created_at, updated_at)
		VALUES (:id, :display_name, :avatar_key, :created_at, :updated_at)`

	_, err := db.NamedExec(query, user)
	return err
}

func (db *DB) GetUser(id string) (*domain.User, error) {
	query := `SELECT id, display_name, avatar_key, created_at, updated_at FROM users WHERE id = ?`

	user := &domain.User{}
	err := db.Get(user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (db *DB) UpdateAvatarKey(id, key string) error {
	_, err := db.Exec(`UPDATE users SET avatar_key = ?, updated_at = ? WHERE id = ?`, key, time.Now(), id)
	return err
}
