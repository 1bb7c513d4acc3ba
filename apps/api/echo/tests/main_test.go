package tests

import (
	"os"
	"testing"
	"time"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	objstoresvc "github.com/trezcool/darasa/services/objstore"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	app     *Server
	usrRepo user.Repository
	asgRepo assignment.Repository
	store   *objstoresvc.DummyStore

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	testutil.InitValidators()

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Darasa",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
	}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	asgRepo = inmemdb.NewAssignmentRepository(db)
	subRepo := inmemdb.NewSubmissionRepository(db)

	// set up services
	logger := testutil.NopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	store = objstoresvc.NewDummyStore()

	usrSvc := user.NewService(usrRepo)
	crsSvc := course.NewService(crsRepo, logger)
	enrollSvc := course.NewEnrollmentService(crsRepo, usrRepo, mailSvc, logger)
	asgSvc := assignment.NewService(asgRepo, crsRepo, store, logger)
	subSvc := submission.NewService(subRepo, asgRepo, crsRepo, store, logger)
	crsSvc.SetCascader(asgSvc)

	// set up server
	app = NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     crsSvc,
			EnrollSvc:     enrollSvc,
			AssignmentSvc: asgSvc,
			SubmissionSvc: subSvc,
			Store:         store,
		},
	)

	os.Exit(m.Run())
}
