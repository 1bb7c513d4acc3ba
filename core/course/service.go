package course

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound      = errors.New("course not found")
	ErrNotOwner      = errors.New("only the course owner may do this")
	ErrNotEnrolled   = errors.New("student is not enrolled in this course")
	ErrCodeExists    = errors.New("a course with this join code already exists")
	ErrCodeExhausted = errors.New("join code space exhausted")
)

// maxCodeAttempts bounds the regenerate-and-retry loop on join code
// collisions; code generation is not globally coordinated.
const maxCodeAttempts = 5

type (
	Repository interface {
		// CreateCourse persists a new course; returns ErrCodeExists when the
		// join code is already taken.
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseByJoinCode(ctx context.Context, code string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		// AddStudent atomically adds a student to the course's member set.
		// Returns false when the student was already a member.
		AddStudent(ctx context.Context, courseID, studentID string) (bool, error)
		// RemoveStudent atomically removes a student from the member set;
		// returns ErrNotEnrolled when they were not a member.
		RemoveStudent(ctx context.Context, courseID, studentID string) error

		// AppendAssignment atomically appends an assignment id to the
		// course's assignment set; appending an id already present is a no-op.
		AppendAssignment(ctx context.Context, courseID, assignmentID string) error
		// RemoveAssignment atomically removes an assignment id; removing an
		// absent id is a no-op.
		RemoveAssignment(ctx context.Context, courseID, assignmentID string) error

		CreateWithdrawal(ctx context.Context, wd Withdrawal) (Withdrawal, error)
		// QueryWithdrawalsByCourse returns a course's withdrawal audit trail,
		// most recent first.
		QueryWithdrawalsByCourse(ctx context.Context, courseID string) ([]Withdrawal, error)
	}

	// Cascader cleans up course-owned resources when a course is deleted.
	// Implemented by the assignment catalog; wired after construction to
	// avoid a dependency cycle.
	Cascader interface {
		DeleteByCourse(ctx context.Context, crs Course) error
	}

	Service struct {
		repo    Repository
		cascade Cascader
		logger  core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) SetCascader(c Cascader) { svc.cascade = c }

// Create registers a new course owned by `ownerID` under a freshly generated
// join code, regenerating on collision up to maxCodeAttempts times.
func (svc *Service) Create(ctx context.Context, nc NewCourse, ownerID string) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Title:         nc.Title,
		Description:   nc.Description,
		Subject:       nc.Subject,
		Level:         nc.Level,
		OwnerID:       ownerID,
		Students:      []string{},
		AssignmentIDs: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		crs.ID = uuid.New().String()
		crs.JoinCode = genJoinCode()

		created, err := svc.repo.CreateCourse(ctx, crs)
		if err == ErrCodeExists {
			continue
		}
		if err != nil {
			return Course{}, err
		}
		return created, nil
	}
	return Course{}, ErrCodeExhausted
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) Update(ctx context.Context, id, ownerID string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.OwnerID != ownerID {
		return Course{}, ErrNotOwner
	}
	if err = uc.Validate(crs); err != nil {
		return Course{}, err
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.Subject = uc.Subject
	crs.Level = uc.Level
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

// Delete removes the course after a best-effort cascade into its assignments
// (which in turn release attached files). A cascade failure is logged and
// does not block the course deletion: availability over cleanup.
func (svc *Service) Delete(ctx context.Context, id, ownerID string) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if crs.OwnerID != ownerID {
		return ErrNotOwner
	}

	if svc.cascade != nil {
		if err = svc.cascade.DeleteByCourse(ctx, crs); err != nil {
			svc.logger.Error(fmt.Sprintf("cascading delete of course %s: %v", crs.ID, err), err)
		}
	}
	return svc.repo.DeleteCourse(ctx, crs.ID)
}
