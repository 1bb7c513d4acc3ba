package submission

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

type Submission struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	FileURL      string    `json:"file_url"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC

	// Grade and Feedback are reserved for a future grading workflow; no
	// operation mutates them yet.
	Grade    null.String `json:"grade"`
	Feedback null.String `json:"feedback"`
}

// Status reports whether a student has submitted for an assignment.
type Status struct {
	Submitted  bool        `json:"submitted"`
	Submission *Submission `json:"submission,omitempty"`
}

var fileTooBigText = "file exceeds the 10MB limit"

// NewSubmission carries the file a student hands in.
type NewSubmission struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-" validate:"required"`
}

func (ns *NewSubmission) Validate() error {
	ns.FileName = core.CleanString(ns.FileName)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	if len(ns.Data) > core.MaxUploadSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: fileTooBigText})
	}
	return nil
}
