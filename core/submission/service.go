package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrNotFound         = errors.New("submission not found")
	ErrAlreadySubmitted = errors.New("assignment already submitted")
	ErrDeadlinePassed   = errors.New("submission deadline has passed")
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateSubmission persists a new submission; the storage layer
		// enforces uniqueness on (assignment_id, student_id) and returns
		// ErrAlreadySubmitted on violation.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string) (Submission, error)
		QuerySubmissionsByAssignment(ctx context.Context, assignmentID string) ([]Submission, error)
	}

	// Service owns the at-most-one submission relation between a student and
	// an assignment.
	Service struct {
		repo       Repository
		asgRepo    assignment.Repository
		courseRepo course.Repository
		store      core.ObjectStore
		logger     core.Logger
	}
)

func NewService(repo Repository, asgRepo assignment.Repository, courseRepo course.Repository, store core.ObjectStore, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		asgRepo:    asgRepo,
		courseRepo: courseRepo,
		store:      store,
		logger:     logger,
	}
}

// Submit hands in a file for an assignment. The deadline is exclusive: a
// submission at exactly the due date is accepted, any later instant is not.
// The duplicate check before the upload is only a fast path that saves a
// wasted upload; the storage unique constraint on (assignment_id, student_id)
// is what actually guards against concurrent double submission. The file is
// uploaded before the record is written, so no record can ever reference a
// URL that was not stored; when the insert loses the race, the fresh upload
// is deleted again best-effort.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID string, ns NewSubmission) (Submission, error) {
	if err := ns.Validate(); err != nil {
		return Submission{}, err
	}

	asg, err := svc.asgRepo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := nowFunc().UTC()
	if now.After(asg.DueDate) {
		return Submission{}, ErrDeadlinePassed
	}

	if _, err = svc.repo.GetSubmission(ctx, asg.ID, studentID); err == nil {
		return Submission{}, ErrAlreadySubmitted
	} else if err != ErrNotFound {
		return Submission{}, err
	}

	fileURL, err := svc.store.Put(ctx, ns.Data, ns.FileName, ns.ContentType)
	if err != nil {
		return Submission{}, core.NewUpstreamError("uploading submission file", err)
	}

	sub := Submission{
		ID:           uuid.New().String(),
		AssignmentID: asg.ID,
		StudentID:    studentID,
		FileURL:      fileURL,
		SubmittedAt:  now,
	}
	sub, err = svc.repo.CreateSubmission(ctx, sub)
	if err == ErrAlreadySubmitted {
		// lost a concurrent race after uploading; drop the duplicate file
		if delErr := svc.store.Delete(ctx, fileURL); delErr != nil {
			svc.logger.Error(fmt.Sprintf("deleting duplicate submission file %s: %v", fileURL, delErr), delErr)
		}
		return Submission{}, err
	}
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// Status reports whether the student has submitted; a missing record is not
// an error.
func (svc *Service) Status(ctx context.Context, assignmentID, studentID string) (Status, error) {
	sub, err := svc.repo.GetSubmission(ctx, assignmentID, studentID)
	if err == ErrNotFound {
		return Status{Submitted: false}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{Submitted: true, Submission: &sub}, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmissionByID(ctx, id)
}

// QueryByAssignment lists an assignment's submissions for its course owner.
func (svc *Service) QueryByAssignment(ctx context.Context, assignmentID, ownerID string) ([]Submission, error) {
	asg, err := svc.asgRepo.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	crs, err := svc.courseRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return nil, err
	}
	if crs.OwnerID != ownerID {
		return nil, course.ErrNotOwner
	}
	return svc.repo.QuerySubmissionsByAssignment(ctx, asg.ID)
}
