package assignment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"` // owning course, required
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"` // UTC

	// FileURL references the attached file in the object store; null when
	// the assignment has no attachment.
	FileURL null.String `json:"file_url"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	FileURL     string    `json:"file_url"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateAssignment defines what information may be provided to modify an
// existing Assignment. Empty fields are kept as-is.
type UpdateAssignment struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
}

func (ua *UpdateAssignment) Validate(origAsg Assignment) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = origAsg.Title
	}
	if desc := core.CleanString(ua.Description); desc != "" {
		ua.Description = desc
	} else {
		ua.Description = origAsg.Description
	}
	if ua.DueDate.IsZero() {
		ua.DueDate = origAsg.DueDate
	}
	return core.Validate.Struct(ua)
}
