package db

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
)

// ErrNoUser is returned when a username does not exist.
var ErrNoUser = errors.New("user not found")

type User struct {
    Id        string    `json:"id"`
    Username  string    `json:"username"`
    CreatedAt time.Time `json:"created_at"`
    Password  string    `json:"-"`
}

func InsertUser(pool *DBPool, ctx context.Context, username string, password string) error {
    writeTx, err := pool.GetWriteTx(ctx)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer writeTx.Rollback()

    query := `INSERT INTO users
    (user_id, username, created_at, password) VALUES
    (?, ?, ?, ?)`

    _, err = writeTx.ExecContext(ctx, query, uuid.NewString(), username, time.Now(), password)
    if err != nil {
        return fmt.Errorf("failed to insert user: %w", err)
    }

    if err = writeTx.Commit(); err != nil {
        return fmt.Errorf("failed to commit transaction: %w", err)
    }

    return nil
}

func GetUserByUsername(pool *DBPool, ctx context.Context, username string) (*User, error) {
    readTx, err := pool.GetReadTx(ctx)
    if err != nil {
        return nil, fmt.Errorf("failed to begin read transaction: %w", err)
    }
    defer readTx.Rollback()

    query := `SELECT user_id, username, created_at, password FROM users WHERE username = ?`

    var user User
    err = readTx.QueryRowContext(ctx, query, username).Scan(
        &user.Id,
        &user.Username,
        &user.CreatedAt,
        &user.Password,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, ErrNoUser
        }
        return nil, fmt.Errorf("failed to query user: %w", err)
    }

    if err = readTx.Commit(); err != nil {
        return nil, fmt.Errorf("failed to commit read transaction: %w", err)
    }

    return &user, nil
}
