package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var ErrNotFound = errors.New("assignment not found")

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id string) (Assignment, error)
		// QueryAssignmentsByCourse returns the course's assignments ordered
		// by due date.
		QueryAssignmentsByCourse(ctx context.Context, courseID string) ([]Assignment, error)
		UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
	}

	// Service owns Assignment entities scoped to a Course and their attached
	// file references.
	Service struct {
		repo       Repository
		courseRepo course.Repository
		store      core.ObjectStore
		logger     core.Logger
	}
)

func NewService(repo Repository, courseRepo course.Repository, store core.ObjectStore, logger core.Logger) *Service {
	return &Service{
		repo:       repo,
		courseRepo: courseRepo,
		store:      store,
		logger:     logger,
	}
}

// Create persists a new assignment under `courseID` and appends its id to the
// course's assignment set. The two writes are not transactional: when the
// append fails it is retried once on its own (the assignment is never
// re-created) and a final failure surfaces as an upstream error while the
// assignment row remains, an accepted orphan reachable by id.
func (svc *Service) Create(ctx context.Context, courseID string, na NewAssignment, ownerID string) (Assignment, error) {
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}
	// the attachment must live in our object store, or deletion could
	// never release it
	if na.FileURL != "" && !svc.store.Owns(na.FileURL) {
		return Assignment{}, core.NewValidationError(core.ErrInvalidFileRef,
			core.FieldError{Field: "file_url", Error: core.ErrInvalidFileRef.Error()})
	}
	crs, err := svc.courseRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Assignment{}, err
	}
	if crs.OwnerID != ownerID {
		return Assignment{}, course.ErrNotOwner
	}

	now := time.Now().UTC()
	asg := Assignment{
		ID:          uuid.New().String(),
		CourseID:    crs.ID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		FileURL:     null.NewString(na.FileURL, na.FileURL != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	asg, err = svc.repo.CreateAssignment(ctx, asg)
	if err != nil {
		return Assignment{}, err
	}

	if err = svc.courseRepo.AppendAssignment(ctx, crs.ID, asg.ID); err != nil {
		svc.logger.Warn(fmt.Sprintf("appending assignment %s to course %s (retrying): %v", asg.ID, crs.ID, err), err)
		if err = svc.courseRepo.AppendAssignment(ctx, crs.ID, asg.ID); err != nil {
			return Assignment{}, core.NewUpstreamError("registering assignment on course", err)
		}
	}
	return asg, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID string) ([]Assignment, error) {
	if _, err := svc.courseRepo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignmentsByCourse(ctx, courseID)
}

func (svc *Service) Update(ctx context.Context, id, ownerID string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.authorize(ctx, asg, ownerID); err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(asg); err != nil {
		return Assignment{}, err
	}

	asg.Title = ua.Title
	asg.Description = ua.Description
	asg.DueDate = ua.DueDate.UTC()
	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

// Delete removes the assignment, its id on the parent course, and its
// attached file. The id is detached first so the course never references a
// missing assignment; the file delete comes last and is best-effort, so a
// failure leaves an orphaned object in storage, never a stale record.
// Existing submissions are kept as historical records addressable by id.
func (svc *Service) Delete(ctx context.Context, id, ownerID string) error {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.authorize(ctx, asg, ownerID); err != nil {
		return err
	}

	if err = svc.courseRepo.RemoveAssignment(ctx, asg.CourseID, asg.ID); err != nil {
		return err
	}
	if err = svc.repo.DeleteAssignment(ctx, asg.ID); err != nil {
		return err
	}
	svc.releaseFile(ctx, asg)
	return nil
}

// DeleteByCourse deletes all of a course's assignments as part of the course
// deletion cascade; the course record itself is about to go, so ids are not
// detached one by one. Failures are collected as they are already past the
// point of rollback.
func (svc *Service) DeleteByCourse(ctx context.Context, crs course.Course) error {
	var firstErr error
	for _, id := range crs.AssignmentIDs {
		asg, err := svc.repo.GetAssignmentByID(ctx, id)
		if err != nil {
			if err != ErrNotFound && firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err = svc.repo.DeleteAssignment(ctx, asg.ID); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		svc.releaseFile(ctx, asg)
	}
	return firstErr
}

func (svc *Service) releaseFile(ctx context.Context, asg Assignment) {
	if !asg.FileURL.Valid {
		return
	}
	if err := svc.store.Delete(ctx, asg.FileURL.String); err != nil {
		svc.logger.Error(fmt.Sprintf("releasing file of assignment %s: %v", asg.ID, err), err)
	}
}

func (svc *Service) authorize(ctx context.Context, asg Assignment, ownerID string) error {
	crs, err := svc.courseRepo.GetCourseByID(ctx, asg.CourseID)
	if err != nil {
		return err
	}
	if crs.OwnerID != ownerID {
		return course.ErrNotOwner
	}
	return nil
}
