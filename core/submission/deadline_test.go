package submission

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/assignment"
	objstoresvc "github.com/trezcool/darasa/services/objstore"
	testutil "github.com/trezcool/darasa/tests"
)

type stubAssignmentRepo struct {
	asg assignment.Assignment
}

func (r stubAssignmentRepo) CreateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	return asg, nil
}
func (r stubAssignmentRepo) GetAssignmentByID(context.Context, string) (assignment.Assignment, error) {
	return r.asg, nil
}
func (r stubAssignmentRepo) QueryAssignmentsByCourse(context.Context, string) ([]assignment.Assignment, error) {
	return nil, nil
}
func (r stubAssignmentRepo) UpdateAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	return asg, nil
}
func (r stubAssignmentRepo) DeleteAssignment(context.Context, string) error { return nil }

// stubSubmissionRepo sees no existing submission but fails the insert with
// createErr; it simulates losing the duplicate race to a concurrent writer.
type stubSubmissionRepo struct {
	createErr error
	created   []Submission
}

func (r *stubSubmissionRepo) CreateSubmission(_ context.Context, sub Submission) (Submission, error) {
	if r.createErr != nil {
		return Submission{}, r.createErr
	}
	r.created = append(r.created, sub)
	return sub, nil
}
func (r *stubSubmissionRepo) GetSubmission(context.Context, string, string) (Submission, error) {
	return Submission{}, ErrNotFound
}
func (r *stubSubmissionRepo) GetSubmissionByID(context.Context, string) (Submission, error) {
	return Submission{}, ErrNotFound
}
func (r *stubSubmissionRepo) QuerySubmissionsByAssignment(context.Context, string) ([]Submission, error) {
	return nil, nil
}

func TestSubmitDeadlineBoundary(t *testing.T) {
	due := time.Date(2026, time.March, 14, 23, 59, 0, 0, time.UTC)
	asgRepo := stubAssignmentRepo{asg: assignment.Assignment{ID: "a1", CourseID: "c1", DueDate: due}}
	ns := NewSubmission{FileName: "essay.pdf", Data: []byte("essay")}

	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{name: "well before the deadline", now: due.Add(-time.Hour)},
		{name: "at exactly the deadline", now: due},
		{name: "one second late", now: due.Add(time.Second), wantErr: ErrDeadlinePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nowFunc = func() time.Time { return tt.now }
			defer func() { nowFunc = time.Now }()

			svc := NewService(&stubSubmissionRepo{}, asgRepo, nil, objstoresvc.NewDummyStore(), testutil.NopLogger{})
			_, err := svc.Submit(context.Background(), "a1", "s1", ns)
			if err != tt.wantErr {
				t.Errorf("Submit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmitLostRaceReleasesUpload(t *testing.T) {
	due := time.Now().Add(time.Hour).UTC()
	asgRepo := stubAssignmentRepo{asg: assignment.Assignment{ID: "a1", CourseID: "c1", DueDate: due}}
	store := objstoresvc.NewDummyStore()

	svc := NewService(&stubSubmissionRepo{createErr: ErrAlreadySubmitted}, asgRepo, nil, store, testutil.NopLogger{})
	_, err := svc.Submit(context.Background(), "a1", "s1", NewSubmission{FileName: "essay.pdf", Data: []byte("essay")})
	if err != ErrAlreadySubmitted {
		t.Fatalf("Submit() error = %v, want %v", err, ErrAlreadySubmitted)
	}

	if len(store.Puts) != 1 {
		t.Fatalf("store puts = %d, want 1", len(store.Puts))
	}
	if store.Has(store.Puts[0]) {
		t.Error("duplicate upload still in storage after losing the race")
	}
}
