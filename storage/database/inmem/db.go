package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

// DB is a mutex-guarded in-memory database for tests and local development.
// The repositories built on it honor the same atomicity contracts as the
// postgres adapter: set add/remove and unique checks happen under the table
// lock, never in the caller.
type (
	DB struct {
		user       *userTable
		course     *courseTable
		assignment *assignmentTable
		submission *submissionTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	courseTable struct {
		table       map[string]*course.Course
		withdrawals map[string]*course.Withdrawal
		mutex       sync.RWMutex
	}

	assignmentTable struct {
		table map[string]*assignment.Assignment
		mutex sync.RWMutex
	}

	submissionTable struct {
		table map[string]*submission.Submission
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course), withdrawals: make(map[string]*course.Withdrawal)},
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
		submission: &submissionTable{table: make(map[string]*submission.Submission)},
	}
}
