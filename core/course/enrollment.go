package course

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// EnrollmentService owns the student-membership relation on a Course.
type EnrollmentService struct {
	repo    Repository
	usrRepo user.Repository
	mailSvc core.EmailService
	logger  core.Logger
}

func NewEnrollmentService(repo Repository, usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger) *EnrollmentService {
	return &EnrollmentService{
		repo:    repo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// JoinByCode enrolls a student into the course matching `code`. Joining a
// course the student already belongs to is a success, not an error; the
// returned flag reports it. Membership is added with an atomic set-add so
// concurrent joins cannot duplicate the student.
func (svc *EnrollmentService) JoinByCode(ctx context.Context, code, studentID string) (Course, bool, error) {
	// codes are stored uppercase; accept any casing from the caller
	crs, err := svc.repo.GetCourseByJoinCode(ctx, strings.ToUpper(core.CleanString(code)))
	if err != nil {
		return Course{}, false, err
	}
	if crs.HasStudent(studentID) {
		return crs, true, nil
	}

	added, err := svc.repo.AddStudent(ctx, crs.ID, studentID)
	if err != nil {
		return Course{}, false, err
	}

	// return the canonical post-mutation course
	crs, err = svc.repo.GetCourseByID(ctx, crs.ID)
	if err != nil {
		return Course{}, false, err
	}
	return crs, !added, nil
}

// Withdraw removes a student from the course. The reason is kept as an audit
// record and forwarded to the course owner; neither of those side effects
// blocks the removal itself.
func (svc *EnrollmentService) Withdraw(ctx context.Context, courseID, studentID string, wc WithdrawCourse) error {
	if err := wc.Validate(); err != nil {
		return err
	}

	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return err
	}
	if err = svc.repo.RemoveStudent(ctx, crs.ID, studentID); err != nil {
		return err
	}

	wd := Withdrawal{
		ID:        uuid.New().String(),
		CourseID:  crs.ID,
		StudentID: studentID,
		Reason:    wc.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if _, err = svc.repo.CreateWithdrawal(ctx, wd); err != nil {
		svc.logger.Error(fmt.Sprintf("recording withdrawal from course %s: %v", crs.ID, err), err)
	}
	svc.notifyOwner(ctx, crs, studentID, wc.Reason)
	return nil
}

// Withdrawals returns the course's withdrawal audit trail.
func (svc *EnrollmentService) Withdrawals(ctx context.Context, courseID string) ([]Withdrawal, error) {
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryWithdrawalsByCourse(ctx, courseID)
}

// Members resolves the enrolled student ids to their user records.
func (svc *EnrollmentService) Members(ctx context.Context, courseID string) ([]user.User, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return svc.usrRepo.GetUsersByID(ctx, crs.Students...)
}

func (svc *EnrollmentService) notifyOwner(ctx context.Context, crs Course, studentID, reason string) {
	owner, err := svc.usrRepo.GetUserByID(ctx, crs.OwnerID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("resolving owner of course %s: %v", crs.ID, err), err)
		return
	}

	var studentName string
	if student, err := svc.usrRepo.GetUserByID(ctx, studentID); err == nil {
		studentName = student.Name
	} else {
		studentName = studentID
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: fmt.Sprintf("%s withdrew from %s", studentName, crs.Title),
		BodyStr: fmt.Sprintf("%s withdrew from %q.\n\nReason: %s\n", studentName, crs.Title, reason),
	})
}
