package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type courseRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Subject       string         `db:"subject"`
	Level         string         `db:"level"`
	OwnerID       string         `db:"owner_id"`
	JoinCode      string         `db:"join_code"`
	Students      pq.StringArray `db:"students"`
	AssignmentIDs pq.StringArray `db:"assignment_ids"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Subject:       r.Subject,
		Level:         r.Level,
		OwnerID:       r.OwnerID,
		JoinCode:      r.JoinCode,
		Students:      []string(r.Students),
		AssignmentIDs: []string(r.AssignmentIDs),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func newCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:            crs.ID,
		Title:         crs.Title,
		Description:   crs.Description,
		Subject:       crs.Subject,
		Level:         crs.Level,
		OwnerID:       crs.OwnerID,
		JoinCode:      crs.JoinCode,
		Students:      pq.StringArray(crs.Students),
		AssignmentIDs: pq.StringArray(crs.AssignmentIDs),
		CreatedAt:     crs.CreatedAt.UTC(),
		UpdatedAt:     crs.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	const q = `
INSERT INTO course (id, title, description, subject, level, owner_id, join_code, students, assignment_ids, created_at, updated_at)
VALUES (:id, :title, :description, :subject, :level, :owner_id, :join_code, :students, :assignment_ids, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, q, newCourseRow(crs)); err != nil {
		if uniqueViolation(err, "course_join_code_key") {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by id")
	}
	return row.course(), nil
}

func (repo courseRepository) GetCourseByJoinCode(ctx context.Context, code string) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE join_code = $1`, code); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by join code")
	}
	return row.course(), nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM course ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

// UpdateCourse only touches the editable attribute columns; the students and
// assignment_ids sets belong to the atomic add/remove statements below.
func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	const q = `
UPDATE course
SET title = :title, description = :description, subject = :subject, level = :level, updated_at = :updated_at
WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, newCourseRow(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourseByID(ctx, crs.ID)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

// AddStudent is a single guarded UPDATE: the membership check and the append
// happen inside postgres, so concurrent joins cannot duplicate the student.
func (repo courseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	const q = `
UPDATE course
SET students = array_append(students, $2::uuid), updated_at = now()
WHERE id = $1 AND NOT ($2::uuid = ANY(students))`

	res, err := repo.db.ExecContext(ctx, q, courseID, studentID)
	if err != nil {
		return false, errors.Wrap(err, "adding student to course")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "adding student to course")
	}
	return n > 0, nil
}

func (repo courseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) error {
	const q = `
UPDATE course
SET students = array_remove(students, $2::uuid), updated_at = now()
WHERE id = $1 AND $2::uuid = ANY(students)`

	res, err := repo.db.ExecContext(ctx, q, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "removing student from course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo courseRepository) AppendAssignment(ctx context.Context, courseID, assignmentID string) error {
	const q = `
UPDATE course
SET assignment_ids = array_append(assignment_ids, $2::uuid), updated_at = now()
WHERE id = $1 AND NOT ($2::uuid = ANY(assignment_ids))`

	res, err := repo.db.ExecContext(ctx, q, courseID, assignmentID)
	if err != nil {
		return errors.Wrap(err, "appending assignment to course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// idempotent: 0 rows means already appended, unless the course is gone
		if _, err = repo.GetCourseByID(ctx, courseID); err != nil {
			return err
		}
	}
	return nil
}

func (repo courseRepository) RemoveAssignment(ctx context.Context, courseID, assignmentID string) error {
	const q = `
UPDATE course
SET assignment_ids = array_remove(assignment_ids, $2::uuid), updated_at = now()
WHERE id = $1`

	if _, err := repo.db.ExecContext(ctx, q, courseID, assignmentID); err != nil {
		return errors.Wrap(err, "removing assignment from course")
	}
	return nil
}

func (repo courseRepository) CreateWithdrawal(ctx context.Context, wd course.Withdrawal) (course.Withdrawal, error) {
	const q = `
INSERT INTO withdrawal (id, course_id, student_id, reason, created_at)
VALUES ($1, $2, $3, $4, $5)`

	if _, err := repo.db.ExecContext(ctx, q, wd.ID, wd.CourseID, wd.StudentID, wd.Reason, wd.CreatedAt.UTC()); err != nil {
		return course.Withdrawal{}, errors.Wrap(err, "inserting withdrawal")
	}
	return wd, nil
}

func (repo courseRepository) QueryWithdrawalsByCourse(ctx context.Context, courseID string) ([]course.Withdrawal, error) {
	var wds []course.Withdrawal
	const q = `
SELECT id, course_id AS "courseid", student_id AS "studentid", reason, created_at AS "createdat"
FROM withdrawal WHERE course_id = $1 ORDER BY created_at DESC`

	if err := repo.db.SelectContext(ctx, &wds, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying withdrawals")
	}
	return wds, nil
}
