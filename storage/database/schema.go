package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// schema is idempotent DDL for the whole app. The unique indexes carry the
// two invariants the services lean on: one course per join code and at most
// one submission per (assignment, student).
const schema = `
CREATE TABLE IF NOT EXISTS "user" (
	id            uuid PRIMARY KEY,
	name          text NOT NULL DEFAULT '',
	username      text NOT NULL,
	email         text NOT NULL,
	is_active     boolean NOT NULL DEFAULT true,
	roles         text[] NOT NULL DEFAULT '{}',
	password_hash bytea,
	created_at    timestamptz NOT NULL,
	updated_at    timestamptz NOT NULL,
	last_login    timestamptz
);
CREATE UNIQUE INDEX IF NOT EXISTS user_username_key ON "user" (username);
CREATE UNIQUE INDEX IF NOT EXISTS user_email_key ON "user" (email);

CREATE TABLE IF NOT EXISTS course (
	id             uuid PRIMARY KEY,
	title          text NOT NULL,
	description    text NOT NULL DEFAULT '',
	subject        text NOT NULL,
	level          text NOT NULL,
	owner_id       uuid NOT NULL,
	join_code      text NOT NULL,
	students       uuid[] NOT NULL DEFAULT '{}',
	assignment_ids uuid[] NOT NULL DEFAULT '{}',
	created_at     timestamptz NOT NULL,
	updated_at     timestamptz NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS course_join_code_key ON course (join_code);

CREATE TABLE IF NOT EXISTS assignment (
	id          uuid PRIMARY KEY,
	course_id   uuid NOT NULL,
	title       text NOT NULL,
	description text NOT NULL DEFAULT '',
	due_date    timestamptz NOT NULL,
	file_url    text,
	created_at  timestamptz NOT NULL,
	updated_at  timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS assignment_course_id_idx ON assignment (course_id);

CREATE TABLE IF NOT EXISTS submission (
	id            uuid PRIMARY KEY,
	assignment_id uuid NOT NULL,
	student_id    uuid NOT NULL,
	file_url      text NOT NULL,
	submitted_at  timestamptz NOT NULL,
	grade         text,
	feedback      text
);
CREATE UNIQUE INDEX IF NOT EXISTS submission_assignment_student_key ON submission (assignment_id, student_id);

CREATE TABLE IF NOT EXISTS withdrawal (
	id         uuid PRIMARY KEY,
	course_id  uuid NOT NULL,
	student_id uuid NOT NULL,
	reason     text NOT NULL,
	created_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS withdrawal_course_id_idx ON withdrawal (course_id);
`

// EnsureSchema applies the app DDL; safe to run at every startup.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "ensuring schema")
	}
	return nil
}
