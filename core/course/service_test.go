package course_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func TestMain(m *testing.M) {
	testutil.InitValidators()
	os.Exit(m.Run())
}

var testConf = &core.Config{AppName: "Darasa"}

func setup() (*course.Service, *course.EnrollmentService, course.Repository, *inmemdb.DB) {
	db := inmemdb.Open()
	crsRepo := inmemdb.NewCourseRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)

	logger := testutil.NopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(testConf)

	svc := course.NewService(crsRepo, logger)
	enrollSvc := course.NewEnrollmentService(crsRepo, usrRepo, mailSvc, logger)
	return svc, enrollSvc, crsRepo, db
}

func TestServiceCreate(t *testing.T) {
	svc, _, _, _ := setup()
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		if _, err := svc.Create(ctx, course.NewCourse{Title: "Algebra"}, "t1"); err == nil {
			t.Error("Create() error = nil, want validation error")
		}
	})

	t.Run("join codes are unique and well-formed", func(t *testing.T) {
		codes := make(map[string]struct{})
		for i := 0; i < 50; i++ {
			crs, err := svc.Create(ctx, course.NewCourse{Title: "Algebra", Subject: "Math", Level: "101"}, "t1")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if len(crs.JoinCode) != 6 {
				t.Errorf("JoinCode = %q, want 6 characters", crs.JoinCode)
			}
			if crs.JoinCode != strings.ToUpper(crs.JoinCode) {
				t.Errorf("JoinCode = %q, want uppercase", crs.JoinCode)
			}
			if _, dup := codes[crs.JoinCode]; dup {
				t.Errorf("JoinCode %q issued twice", crs.JoinCode)
			}
			codes[crs.JoinCode] = struct{}{}
		}
	})

	t.Run("new course starts empty", func(t *testing.T) {
		crs, err := svc.Create(ctx, course.NewCourse{Title: "Biology", Subject: "Science", Level: "201"}, "t1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(crs.Students) != 0 || len(crs.AssignmentIDs) != 0 {
			t.Errorf("new course has students=%v assignments=%v, want both empty", crs.Students, crs.AssignmentIDs)
		}
		if crs.OwnerID != "t1" {
			t.Errorf("OwnerID = %q, want %q", crs.OwnerID, "t1")
		}
	})
}

// collideRepo fails CreateCourse with ErrCodeExists a set number of times
// before delegating.
type collideRepo struct {
	course.Repository
	collisions int
}

func (r *collideRepo) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if r.collisions > 0 {
		r.collisions--
		return course.Course{}, course.ErrCodeExists
	}
	return r.Repository.CreateCourse(ctx, crs)
}

func TestServiceCreateCodeCollision(t *testing.T) {
	_, _, crsRepo, _ := setup()
	ctx := context.Background()
	repo := &collideRepo{Repository: crsRepo}
	svc := course.NewService(repo, testutil.NopLogger{})
	nc := course.NewCourse{Title: "Algebra", Subject: "Math", Level: "101"}

	t.Run("regenerates until a code sticks", func(t *testing.T) {
		repo.collisions = 4
		crs, err := svc.Create(ctx, nc, "t1")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(crs.JoinCode) != 6 {
			t.Errorf("JoinCode = %q, want 6 characters", crs.JoinCode)
		}
	})

	t.Run("gives up after too many collisions", func(t *testing.T) {
		repo.collisions = 5
		_, err := svc.Create(ctx, nc, "t1")
		if errors.Cause(err) != course.ErrCodeExhausted {
			t.Errorf("Create() error = %v, want %v", err, course.ErrCodeExhausted)
		}
	})
}

func TestServiceUpdate(t *testing.T) {
	svc, _, _, _ := setup()
	ctx := context.Background()
	crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")

	t.Run("not owner", func(t *testing.T) {
		_, err := svc.Update(ctx, crs.ID, "t2", course.UpdateCourse{Title: "Hijacked"})
		if errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("Update() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("empty fields keep original values", func(t *testing.T) {
		got, err := svc.Update(ctx, crs.ID, "t1", course.UpdateCourse{Title: "Algebra II"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Title != "Algebra II" {
			t.Errorf("Title = %q, want %q", got.Title, "Algebra II")
		}
		if got.Subject != "Math" || got.Level != "101" {
			t.Errorf("Subject/Level = %q/%q, want kept as %q/%q", got.Subject, got.Level, "Math", "101")
		}
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Update(ctx, "nope", "t1", course.UpdateCourse{Title: "X"})
		if errors.Cause(err) != course.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, course.ErrNotFound)
		}
	})
}

type fakeCascader struct {
	calls []course.Course
	err   error
}

func (c *fakeCascader) DeleteByCourse(_ context.Context, crs course.Course) error {
	c.calls = append(c.calls, crs)
	return c.err
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("not owner", func(t *testing.T) {
		svc, _, _, _ := setup()
		crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")
		if err := svc.Delete(ctx, crs.ID, "t2"); errors.Cause(err) != course.ErrNotOwner {
			t.Errorf("Delete() error = %v, want %v", err, course.ErrNotOwner)
		}
	})

	t.Run("cascades then deletes", func(t *testing.T) {
		svc, _, _, _ := setup()
		cascade := &fakeCascader{}
		svc.SetCascader(cascade)
		crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")

		if err := svc.Delete(ctx, crs.ID, "t1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if len(cascade.calls) != 1 || cascade.calls[0].ID != crs.ID {
			t.Errorf("cascade calls = %v, want exactly course %s", cascade.calls, crs.ID)
		}
		if _, err := svc.GetByID(ctx, crs.ID); errors.Cause(err) != course.ErrNotFound {
			t.Errorf("GetByID() after delete error = %v, want %v", err, course.ErrNotFound)
		}
	})

	t.Run("cascade failure does not block deletion", func(t *testing.T) {
		svc, _, _, _ := setup()
		svc.SetCascader(&fakeCascader{err: errors.New("storage down")})
		crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")

		if err := svc.Delete(ctx, crs.ID, "t1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := svc.GetByID(ctx, crs.ID); errors.Cause(err) != course.ErrNotFound {
			t.Errorf("GetByID() after delete error = %v, want %v", err, course.ErrNotFound)
		}
	})
}

func TestJoinByCode(t *testing.T) {
	ctx := context.Background()
	svc, enrollSvc, _, _ := setup()
	crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")

	t.Run("unknown code", func(t *testing.T) {
		_, _, err := enrollSvc.JoinByCode(ctx, "NOPE42", "s1")
		if errors.Cause(err) != course.ErrNotFound {
			t.Errorf("JoinByCode() error = %v, want %v", err, course.ErrNotFound)
		}
	})

	t.Run("join accepts any casing", func(t *testing.T) {
		got, already, err := enrollSvc.JoinByCode(ctx, " "+strings.ToLower(crs.JoinCode)+" ", "s1")
		if err != nil {
			t.Fatalf("JoinByCode() error = %v", err)
		}
		if already {
			t.Error("alreadyEnrolled = true on first join")
		}
		if !got.HasStudent("s1") {
			t.Error("student missing from returned course")
		}
	})

	t.Run("rejoin is an idempotent success", func(t *testing.T) {
		got, already, err := enrollSvc.JoinByCode(ctx, crs.JoinCode, "s1")
		if err != nil {
			t.Fatalf("JoinByCode() error = %v", err)
		}
		if !already {
			t.Error("alreadyEnrolled = false on rejoin")
		}
		if n := countStudent(got, "s1"); n != 1 {
			t.Errorf("membership count = %d, want 1", n)
		}
	})

	t.Run("concurrent joins add the student once", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, _ = enrollSvc.JoinByCode(ctx, crs.JoinCode, "s2")
			}()
		}
		wg.Wait()

		got, err := svc.GetByID(ctx, crs.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if n := countStudent(got, "s2"); n != 1 {
			t.Errorf("membership count = %d, want 1", n)
		}
	})
}

func countStudent(crs course.Course, studentID string) int {
	var n int
	for _, id := range crs.Students {
		if id == studentID {
			n++
		}
	}
	return n
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	svc, enrollSvc, _, db := setup()

	usrRepo := inmemdb.NewUserRepository(db)
	owner := testutil.CreateUser(t, usrRepo, "Teacher One", "teacher1", "teacher1@test.test", "", []string{"teacher:"}, true)
	student := testutil.CreateUser(t, usrRepo, "Student One", "student1", "student1@test.test", "", []string{"student:"}, true)

	crs := testutil.CreateCourse(t, svc, owner.ID, "Algebra", "Math", "101")
	if _, _, err := enrollSvc.JoinByCode(ctx, crs.JoinCode, student.ID); err != nil {
		t.Fatalf("JoinByCode() error = %v", err)
	}

	t.Run("reason too short", func(t *testing.T) {
		err := enrollSvc.Withdraw(ctx, crs.ID, student.ID, course.WithdrawCourse{Reason: "no"})
		if err == nil {
			t.Error("Withdraw() error = nil, want validation error")
		}
	})

	t.Run("not enrolled", func(t *testing.T) {
		err := enrollSvc.Withdraw(ctx, crs.ID, "ghost", course.WithdrawCourse{Reason: "moved away"})
		if errors.Cause(err) != course.ErrNotEnrolled {
			t.Errorf("Withdraw() error = %v, want %v", err, course.ErrNotEnrolled)
		}
	})

	t.Run("removes the student and keeps an audit trail", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		err := enrollSvc.Withdraw(ctx, crs.ID, student.ID, course.WithdrawCourse{Reason: "moved away"})
		if err != nil {
			t.Fatalf("Withdraw() error = %v", err)
		}

		got, err := svc.GetByID(ctx, crs.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.HasStudent(student.ID) {
			t.Error("student still enrolled after withdrawal")
		}

		wds, err := enrollSvc.Withdrawals(ctx, crs.ID)
		if err != nil {
			t.Fatalf("Withdrawals() error = %v", err)
		}
		if len(wds) != 1 || wds[0].Reason != "moved away" || wds[0].StudentID != student.ID {
			t.Errorf("Withdrawals() = %+v, want one record with the given reason", wds)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("SentMessages = %d, want 1", len(emailsvc.SentMessages))
		}
		if to := emailsvc.SentMessages[0].To[0].Address; to != owner.Email {
			t.Errorf("notification sent to %q, want %q", to, owner.Email)
		}
	})
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	svc, enrollSvc, _, db := setup()

	usrRepo := inmemdb.NewUserRepository(db)
	s1 := testutil.CreateUser(t, usrRepo, "Arya Stark", "aryastark", "arya@test.test", "", []string{"student:"}, true)
	s2 := testutil.CreateUser(t, usrRepo, "Jon Snow", "jonsnow", "jon@test.test", "", []string{"student:"}, true)

	crs := testutil.CreateCourse(t, svc, "t1", "Algebra", "Math", "101")
	for _, id := range []string{s1.ID, s2.ID} {
		if _, _, err := enrollSvc.JoinByCode(ctx, crs.JoinCode, id); err != nil {
			t.Fatalf("JoinByCode() error = %v", err)
		}
	}

	members, err := enrollSvc.Members(ctx, crs.ID)
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(Members()) = %d, want 2", len(members))
	}
	if members[0].Name != "Arya Stark" || members[1].Name != "Jon Snow" {
		t.Errorf("Members() = %v, want sorted by name", members)
	}
}
