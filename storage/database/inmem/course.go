package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

// copyCourse returns a detached copy so callers never share slices with the table.
func copyCourse(crs *course.Course) course.Course {
	cp := *crs
	cp.Students = append([]string(nil), crs.Students...)
	cp.AssignmentIDs = append([]string(nil), crs.AssignmentIDs...)
	return cp
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range repo.db.table {
		if c.JoinCode == crs.JoinCode {
			return course.Course{}, course.ErrCodeExists
		}
	}
	stored := copyCourse(&crs)
	repo.db.table[crs.ID] = &stored
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return copyCourse(crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByJoinCode(_ context.Context, code string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.table {
		if crs.JoinCode == code {
			return copyCourse(crs), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.table))
	for _, crs := range repo.db.table {
		courses = append(courses, copyCourse(crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	// attribute columns only; membership and assignment sets are owned by
	// the atomic operations below
	stored.Title = crs.Title
	stored.Description = crs.Description
	stored.Subject = crs.Subject
	stored.Level = crs.Level
	stored.UpdatedAt = crs.UpdatedAt
	return copyCourse(stored), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.table, id)
	return nil
}

func (repo *courseRepository) AddStudent(_ context.Context, courseID, studentID string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return false, course.ErrNotFound
	}
	if crs.HasStudent(studentID) {
		return false, nil
	}
	crs.Students = append(crs.Students, studentID)
	return true, nil
}

func (repo *courseRepository) RemoveStudent(_ context.Context, courseID, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for i, id := range crs.Students {
		if id == studentID {
			crs.Students = append(crs.Students[:i], crs.Students[i+1:]...)
			return nil
		}
	}
	return course.ErrNotEnrolled
}

func (repo *courseRepository) AppendAssignment(_ context.Context, courseID, assignmentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for _, id := range crs.AssignmentIDs {
		if id == assignmentID {
			return nil // idempotent
		}
	}
	crs.AssignmentIDs = append(crs.AssignmentIDs, assignmentID)
	return nil
}

func (repo *courseRepository) RemoveAssignment(_ context.Context, courseID, assignmentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for i, id := range crs.AssignmentIDs {
		if id == assignmentID {
			crs.AssignmentIDs = append(crs.AssignmentIDs[:i], crs.AssignmentIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (repo *courseRepository) CreateWithdrawal(_ context.Context, wd course.Withdrawal) (course.Withdrawal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := wd
	repo.db.withdrawals[wd.ID] = &stored
	return wd, nil
}

func (repo *courseRepository) QueryWithdrawalsByCourse(_ context.Context, courseID string) ([]course.Withdrawal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wds := make([]course.Withdrawal, 0)
	for _, wd := range repo.db.withdrawals {
		if wd.CourseID == courseID {
			wds = append(wds, *wd)
		}
	}
	sort.Slice(wds, func(i, j int) bool { return wds[i].CreatedAt.After(wds[j].CreatedAt) })
	return wds, nil
}
