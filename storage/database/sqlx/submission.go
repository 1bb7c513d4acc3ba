package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/submission"
)

type submissionRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	StudentID    string      `db:"student_id"`
	FileURL      string      `db:"file_url"`
	SubmittedAt  time.Time   `db:"submitted_at"`
	Grade        null.String `db:"grade"`
	Feedback     null.String `db:"feedback"`
}

func (r submissionRow) submission() submission.Submission {
	return submission.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		FileURL:      r.FileURL,
		SubmittedAt:  r.SubmittedAt,
		Grade:        r.Grade,
		Feedback:     r.Feedback,
	}
}

type submissionRepository struct {
	db *sqlx.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db *sqlx.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to submission.ErrNotFound
func (repo submissionRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return submission.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreateSubmission relies on the (assignment_id, student_id) unique index as
// the authoritative guard against double submission.
func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	const q = `
INSERT INTO submission (id, assignment_id, student_id, file_url, submitted_at, grade, feedback)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := repo.db.ExecContext(ctx, q, sub.ID, sub.AssignmentID, sub.StudentID, sub.FileURL, sub.SubmittedAt.UTC(), sub.Grade, sub.Feedback)
	if err != nil {
		if uniqueViolation(err, "submission_assignment_student_key") {
			return submission.Submission{}, submission.ErrAlreadySubmitted
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, assignmentID, studentID string) (submission.Submission, error) {
	var row submissionRow
	const q = `SELECT * FROM submission WHERE assignment_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, assignmentID, studentID); err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "getting submission")
	}
	return row.submission(), nil
}

func (repo submissionRepository) GetSubmissionByID(ctx context.Context, id string) (submission.Submission, error) {
	var row submissionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM submission WHERE id = $1`, id); err != nil {
		return submission.Submission{}, repo.trapNoRowsErr(err, "getting submission by id")
	}
	return row.submission(), nil
}

func (repo submissionRepository) QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]submission.Submission, error) {
	var rows []submissionRow
	const q = `SELECT * FROM submission WHERE assignment_id = $1 ORDER BY submitted_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying submissions by assignment")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}
