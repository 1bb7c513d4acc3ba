package assignment_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	objstoresvc "github.com/trezcool/darasa/services/objstore"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func TestMain(m *testing.M) {
	testutil.InitValidators()
	os.Exit(m.Run())
}

func setup() (*assignment.Service, *course.Service, *objstoresvc.DummyStore) {
	db := inmemdb.Open()
	crsRepo := inmemdb.NewCourseRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)

	logger := testutil.NopLogger{}
	store := objstoresvc.NewDummyStore()

	crsSvc := course.NewService(crsRepo, logger)
	svc := assignment.NewService(asgRepo, crsRepo, store, logger)
	crsSvc.SetCascader(svc)
	return svc, crsSvc, store
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, crsSvc, store := setup()
	crs := testutil.CreateCourse(t, crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()

	t.Run("missing title", func(t *testing.T) {
		if _, err := svc.Create(ctx, crs.ID, assignment.NewAssignment{DueDate: due}, "t1"); err == nil {
			t.Error("Create() error = nil, want validation error")
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Create(ctx, "nope", assignment.NewAssignment{Title: "HW1", DueDate: due}, "t1")
		if errors.Cause(err) != course.ErrNotFound {
			t.Errorf("Create() error = %v, want %v", err, course.ErrNotFound)
		}
	})

	t.Run("not course owner", func(t *testing.T) {
		_, err := svc.Create(ctx, crs.ID, assignment.NewAssignment{Title: "HW1", DueDate: due}, "t2")
		if errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("Create() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("registers the id on the course", func(t *testing.T) {
		asg, err := svc.Create(ctx, crs.ID, assignment.NewAssignment{Title: "HW1", DueDate: due}, "t1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := crsSvc.GetByID(ctx, crs.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if len(got.AssignmentIDs) != 1 || got.AssignmentIDs[0] != asg.ID {
			t.Errorf("AssignmentIDs = %v, want [%s]", got.AssignmentIDs, asg.ID)
		}
	})

	t.Run("foreign file url is rejected", func(t *testing.T) {
		na := assignment.NewAssignment{Title: "HW2", DueDate: due, FileURL: "https://elsewhere.invalid/brief.pdf"}
		if _, err := svc.Create(ctx, crs.ID, na, "t1"); err == nil {
			t.Error("Create() error = nil, want validation error")
		}
	})

	t.Run("stored file url is accepted", func(t *testing.T) {
		fileURL, err := store.Put(ctx, []byte("brief"), "brief.pdf", "application/pdf")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		asg, err := svc.Create(ctx, crs.ID, assignment.NewAssignment{Title: "HW2", DueDate: due, FileURL: fileURL}, "t1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if asg.FileURL.String != fileURL {
			t.Errorf("FileURL = %q, want %q", asg.FileURL.String, fileURL)
		}
	})
}

func TestServiceQueryByCourse(t *testing.T) {
	ctx := context.Background()
	svc, crsSvc, _ := setup()
	crs := testutil.CreateCourse(t, crsSvc, "t1", "Algebra", "Math", "101")

	later := time.Now().Add(72 * time.Hour).UTC()
	sooner := time.Now().Add(24 * time.Hour).UTC()
	testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW2", later, "")
	testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW1", sooner, "")

	t.Run("unknown course", func(t *testing.T) {
		if _, err := svc.QueryByCourse(ctx, "nope"); errors.Cause(err) != course.ErrNotFound {
			t.Errorf("QueryByCourse() error = %v, want %v", err, course.ErrNotFound)
		}
	})

	t.Run("ordered by due date", func(t *testing.T) {
		asgs, err := svc.QueryByCourse(ctx, crs.ID)
		if err != nil {
			t.Fatalf("QueryByCourse() error = %v", err)
		}
		if len(asgs) != 2 {
			t.Fatalf("len(QueryByCourse()) = %d, want 2", len(asgs))
		}
		if asgs[0].Title != "HW1" || asgs[1].Title != "HW2" {
			t.Errorf("order = [%s %s], want [HW1 HW2]", asgs[0].Title, asgs[1].Title)
		}
	})
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc, crsSvc, _ := setup()
	crs := testutil.CreateCourse(t, crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()
	asg := testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW1", due, "")

	t.Run("not course owner", func(t *testing.T) {
		_, err := svc.Update(ctx, asg.ID, "t2", assignment.UpdateAssignment{Title: "Hijacked"})
		if errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("Update() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("empty fields keep original values", func(t *testing.T) {
		got, err := svc.Update(ctx, asg.ID, "t1", assignment.UpdateAssignment{Title: "HW1 redux"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Title != "HW1 redux" {
			t.Errorf("Title = %q, want %q", got.Title, "HW1 redux")
		}
		if !got.DueDate.Equal(due) {
			t.Errorf("DueDate = %v, want kept as %v", got.DueDate, due)
		}
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, crsSvc, store := setup()
	crs := testutil.CreateCourse(t, crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()

	fileURL, err := store.Put(ctx, []byte("brief"), "brief.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	asg := testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW1", due, fileURL)

	t.Run("not course owner", func(t *testing.T) {
		if err := svc.Delete(ctx, asg.ID, "t2"); errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("Delete() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("detaches the id and releases the file", func(t *testing.T) {
		if err := svc.Delete(ctx, asg.ID, "t1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := svc.GetByID(ctx, asg.ID); errors.Cause(err) != assignment.ErrNotFound {
			t.Errorf("GetByID() after delete error = %v, want %v", err, assignment.ErrNotFound)
		}
		got, err := crsSvc.GetByID(ctx, crs.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if len(got.AssignmentIDs) != 0 {
			t.Errorf("AssignmentIDs = %v, want empty", got.AssignmentIDs)
		}
		if store.Has(fileURL) {
			t.Error("attached file still in storage after delete")
		}
		if len(store.Deletes) != 1 {
			t.Errorf("store deletes = %d, want exactly 1", len(store.Deletes))
		}
	})
}

func TestDeleteByCourseCascade(t *testing.T) {
	ctx := context.Background()
	svc, crsSvc, store := setup()
	crs := testutil.CreateCourse(t, crsSvc, "t1", "Algebra", "Math", "101")
	due := time.Now().Add(48 * time.Hour).UTC()

	fileURL, err := store.Put(ctx, []byte("brief"), "brief.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	asg1 := testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW1", due, fileURL)
	asg2 := testutil.CreateAssignment(t, svc, crs.ID, "t1", "HW2", due, "")

	if err := crsSvc.Delete(ctx, crs.ID, "t1"); err != nil {
		t.Fatalf("course Delete() error = %v", err)
	}

	for _, id := range []string{asg1.ID, asg2.ID} {
		if _, err := svc.GetByID(ctx, id); errors.Cause(err) != assignment.ErrNotFound {
			t.Errorf("GetByID(%s) after cascade error = %v, want %v", id, err, assignment.ErrNotFound)
		}
	}
	if store.Has(fileURL) {
		t.Error("attached file still in storage after cascade")
	}
}
