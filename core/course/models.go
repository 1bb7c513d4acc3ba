package course

import (
	"crypto/rand"
	"time"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
	OwnerID     string `json:"owner_id"` // creating teacher

	// JoinCode is globally unique among courses; enforced by the storage layer.
	JoinCode string `json:"join_code"`

	// Students holds enrolled student ids; no duplicates. Mutated only via
	// the repository's atomic set operations, never read-modify-write.
	Students []string `json:"students"`

	// AssignmentIDs holds ids of assignments owned by this course, in
	// creation order. Same mutation discipline as Students.
	AssignmentIDs []string `json:"assignment_ids"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (c *Course) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// Withdrawal is the audit record kept when a student leaves a course.
type Withdrawal struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	StudentID string    `json:"student_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	Level       string `json:"level" validate:"required"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Level = core.CleanString(nc.Level)
	return core.Validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Empty fields are kept as-is.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
	Level       string `json:"level"`
}

func (uc *UpdateCourse) Validate(origCrs Course) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCrs.Description
	}
	if subj := core.CleanString(uc.Subject); subj != "" {
		uc.Subject = subj
	} else {
		uc.Subject = origCrs.Subject
	}
	if lvl := core.CleanString(uc.Level); lvl != "" {
		uc.Level = lvl
	} else {
		uc.Level = origCrs.Level
	}
	return core.Validate.Struct(uc)
}

// WithdrawCourse carries the reason a student leaves a course.
type WithdrawCourse struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

func (wc *WithdrawCourse) Validate() error {
	wc.Reason = core.CleanString(wc.Reason)
	return core.Validate.Struct(wc)
}

const (
	joinCodeLen = 6
	// no 0/O/1/I: join codes are read out loud and typed by hand
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// genJoinCode returns a random human-typeable course code. Uniqueness is not
// guaranteed here; the registry retries on storage constraint violations.
func genJoinCode() string {
	buf := make([]byte, joinCodeLen)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand is broken; nothing sensible to do
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf)
}
