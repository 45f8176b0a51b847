package sessionstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT,
    name TEXT,
    source TEXT,
    role TEXT NOT NULL DEFAULT 'user',
    status TEXT NOT NULL DEFAULT 'active',
    password_hash TEXT,
    salt TEXT,
    profile_image_url TEXT,
    requires_password BOOLEAN NOT NULL DEFAULT TRUE,
    requires_email BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    CONSTRAINT uq_users_username UNIQUE (username),
    CONSTRAINT uq_users_email UNIQUE (email)
);`

	sqliteCreateSessions = `CREATE TABLE sessions (
    id TEXT NOT NULL PRIMARY KEY,
    token TEXT NOT NULL,
    verifier TEXT,
    provider TEXT,
    user_id TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
    CONSTRAINT uq_sessions_token UNIQUE (token),
    CONSTRAINT uq_sessions_user_provider UNIQUE (user_id, provider)
);`
)

func setupTestRepo(t *testing.T) (RepositoryManager, *bun.DB, func()) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	_, err = db.Exec(sqliteCreateUsers)
	require.NoError(t, err)
	_, err = db.Exec(sqliteCreateSessions)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		_ = sqldb.Close()
	}

	return NewRepositoryManager(db), db, cleanup
}

func mustCreateUser(t *testing.T, repo RepositoryManager, username string, mutate ...func(*User)) *User {
	t.Helper()

	record := &User{
		Username: username,
		Name:     "Test " + username,
	}

	for _, m := range mutate {
		if m != nil {
			m(record)
		}
	}

	user, err := repo.Users().Create(context.Background(), record)
	require.NoError(t, err)

	return user
}

func mustCreateSession(t *testing.T, repo RepositoryManager, user *User, token, provider string) *Session {
	t.Helper()

	userID := user.ID
	session, err := repo.Sessions().Create(context.Background(), &Session{
		Token:    token,
		Provider: provider,
		UserID:   &userID,
	})
	require.NoError(t, err)

	return session
}
