package submission_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	objstoresvc "github.com/trezcool/darasa/services/objstore"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func TestMain(m *testing.M) {
	testutil.InitValidators()
	os.Exit(m.Run())
}

type env struct {
	svc    *submission.Service
	asgSvc *assignment.Service
	crsSvc *course.Service
	store  *objstoresvc.DummyStore
}

func setup() env {
	db := inmemdb.Open()
	crsRepo := inmemdb.NewCourseRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)
	subRepo := inmemdb.NewSubmissionRepository(db)

	logger := testutil.NopLogger{}
	store := objstoresvc.NewDummyStore()

	return env{
		svc:    submission.NewService(subRepo, asgRepo, crsRepo, store, logger),
		asgSvc: assignment.NewService(asgRepo, crsRepo, store, logger),
		crsSvc: course.NewService(crsRepo, logger),
		store:  store,
	}
}

func newSub(name string) submission.NewSubmission {
	return submission.NewSubmission{FileName: name, ContentType: "application/pdf", Data: []byte("essay")}
}

func TestServiceSubmit(t *testing.T) {
	ctx := context.Background()
	e := setup()
	crs := testutil.CreateCourse(t, e.crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()
	asg := testutil.CreateAssignment(t, e.asgSvc, crs.ID, "t1", "HW1", due, "")

	t.Run("missing file", func(t *testing.T) {
		if _, err := e.svc.Submit(ctx, asg.ID, "s1", submission.NewSubmission{FileName: "a.pdf"}); err == nil {
			t.Error("Submit() error = nil, want validation error")
		}
	})

	t.Run("file too big", func(t *testing.T) {
		ns := submission.NewSubmission{FileName: "big.pdf", Data: bytes.Repeat([]byte("x"), 10<<20+1)}
		if _, err := e.svc.Submit(ctx, asg.ID, "s1", ns); err == nil {
			t.Error("Submit() error = nil, want validation error")
		}
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, "nope", "s1", newSub("essay.pdf"))
		if errors.Cause(err) != assignment.ErrNotFound {
			t.Errorf("Submit() error = %v, want %v", err, assignment.ErrNotFound)
		}
	})

	t.Run("first submission is accepted", func(t *testing.T) {
		sub, err := e.svc.Submit(ctx, asg.ID, "s1", newSub("essay.pdf"))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if sub.AssignmentID != asg.ID || sub.StudentID != "s1" {
			t.Errorf("submission keys = (%s, %s), want (%s, s1)", sub.AssignmentID, sub.StudentID, asg.ID)
		}
		if !e.store.Has(sub.FileURL) {
			t.Error("submitted file missing from storage")
		}
	})

	t.Run("second submission by the same student conflicts", func(t *testing.T) {
		_, err := e.svc.Submit(ctx, asg.ID, "s1", newSub("essay2.pdf"))
		if errors.Cause(err) != submission.ErrAlreadySubmitted {
			t.Errorf("Submit() error = %v, want %v", err, submission.ErrAlreadySubmitted)
		}
	})

	t.Run("another student may still submit", func(t *testing.T) {
		if _, err := e.svc.Submit(ctx, asg.ID, "s2", newSub("essay.pdf")); err != nil {
			t.Errorf("Submit() error = %v", err)
		}
	})

	t.Run("past deadline", func(t *testing.T) {
		past := testutil.CreateAssignment(t, e.asgSvc, crs.ID, "t1", "HW0", time.Now().Add(-time.Minute).UTC(), "")
		_, err := e.svc.Submit(ctx, past.ID, "s1", newSub("essay.pdf"))
		if errors.Cause(err) != submission.ErrDeadlinePassed {
			t.Errorf("Submit() error = %v, want %v", err, submission.ErrDeadlinePassed)
		}
	})

	t.Run("upload failure writes no record", func(t *testing.T) {
		e.store.FailPut = true
		defer func() { e.store.FailPut = false }()

		_, err := e.svc.Submit(ctx, asg.ID, "s3", newSub("essay.pdf"))
		if !core.IsUpstream(err) {
			t.Fatalf("Submit() error = %v, want upstream error", err)
		}
		st, err := e.svc.Status(ctx, asg.ID, "s3")
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if st.Submitted {
			t.Error("record written despite failed upload")
		}
	})
}

func TestServiceStatus(t *testing.T) {
	ctx := context.Background()
	e := setup()
	crs := testutil.CreateCourse(t, e.crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()
	asg := testutil.CreateAssignment(t, e.asgSvc, crs.ID, "t1", "HW1", due, "")

	st, err := e.svc.Status(ctx, asg.ID, "s1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Submitted || st.Submission != nil {
		t.Errorf("Status() = %+v, want not submitted", st)
	}

	sub, err := e.svc.Submit(ctx, asg.ID, "s1", newSub("essay.pdf"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	st, err = e.svc.Status(ctx, asg.ID, "s1")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Submitted || st.Submission == nil || st.Submission.ID != sub.ID {
		t.Errorf("Status() = %+v, want submitted %s", st, sub.ID)
	}
}

func TestServiceQueryByAssignment(t *testing.T) {
	ctx := context.Background()
	e := setup()
	crs := testutil.CreateCourse(t, e.crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()
	asg := testutil.CreateAssignment(t, e.asgSvc, crs.ID, "t1", "HW1", due, "")

	for _, sid := range []string{"s1", "s2"} {
		if _, err := e.svc.Submit(ctx, asg.ID, sid, newSub("essay.pdf")); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	t.Run("not course owner", func(t *testing.T) {
		_, err := e.svc.QueryByAssignment(ctx, asg.ID, "t2")
		if errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("QueryByAssignment() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("owner sees all submissions", func(t *testing.T) {
		subs, err := e.svc.QueryByAssignment(ctx, asg.ID, "t1")
		if err != nil {
			t.Fatalf("QueryByAssignment() error = %v", err)
		}
		if len(subs) != 2 {
			t.Errorf("len(QueryByAssignment()) = %d, want 2", len(subs))
		}
	})
}
