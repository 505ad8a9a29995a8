package db

import (
	"database/sql"
	"fmt"
)

// Schema is created at process start if absent. Two dialects are kept in
// sync by hand: sqlite3 is the default (and the test driver), postgres is
// selected via configuration.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT,
	federated BOOLEAN NOT NULL DEFAULT 0,
	verified BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	user_id INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_id INTEGER NOT NULL REFERENCES lists(id),
	user_id INTEGER REFERENCES users(id),
	body TEXT NOT NULL,
	starred BOOLEAN NOT NULL DEFAULT 0,
	completed BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_lists_user_id ON lists(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL DEFAULT '',
	password_hash VARCHAR(255),
	federated BOOLEAN NOT NULL DEFAULT FALSE,
	verified BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS lists (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	user_id BIGINT REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	list_id BIGINT NOT NULL REFERENCES lists(id),
	user_id BIGINT REFERENCES users(id),
	body TEXT NOT NULL,
	starred BOOLEAN NOT NULL DEFAULT FALSE,
	completed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_lists_user_id ON lists(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_list_id ON tasks(list_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

// Migrate creates the schema for the given driver if it does not exist yet.
func Migrate(db *sql.DB, driverName string) error {
	var schema string
	switch driverName {
	case "sqlite3":
		schema = sqliteSchema
	case "postgres":
		schema = postgresSchema
	default:
		return fmt.Errorf("unsupported driver %q", driverName)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
