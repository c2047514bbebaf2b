package api

import (
	"context"
	"database/sql"
)

//schema holds the CREATE TABLE statements for every table the API uses.
//Indexes are declared inline because MySQL has no CREATE INDEX IF NOT EXISTS.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		hash VARBINARY(255) NOT NULL,
		name VARCHAR(255) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS message (
		message_id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		content TEXT NOT NULL,
		author_id VARCHAR(36) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		INDEX message_user_created_idx (user_id, created_at)
	);`,
	`CREATE TABLE IF NOT EXISTS emotion_analysis (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		emotions JSON NOT NULL,
		dominant_emotion VARCHAR(32) NOT NULL,
		confidence DOUBLE NOT NULL,
		created_at DATETIME(3) NOT NULL,
		INDEX emotion_user_created_idx (user_id, created_at)
	);`,
	`CREATE TABLE IF NOT EXISTS bias_analysis (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		toxicity_score DOUBLE NOT NULL,
		bias_patterns JSON NOT NULL,
		language VARCHAR(32) NOT NULL,
		sentiment JSON NOT NULL,
		created_at DATETIME(3) NOT NULL,
		INDEX bias_user_created_idx (user_id, created_at)
	);`,
}

//EnsureSchema creates any missing tables on the given database
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &Error{Description: "Could not ensure schema", Type: ErrorTypeServer, Err: err}
		}
	}
	return nil
}
