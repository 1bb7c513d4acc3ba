package echoapi

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/submission"
	"github.com/trezcool/darasa/core/user"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "user not found", err: user.ErrNotFound, want: http.StatusNotFound},
		{name: "course not found", err: course.ErrNotFound, want: http.StatusNotFound},
		{name: "not enrolled", err: course.ErrNotEnrolled, want: http.StatusNotFound},
		{name: "not owner", err: course.ErrNotOwner, want: http.StatusForbidden},
		{name: "code exhausted", err: course.ErrCodeExhausted, want: http.StatusConflict},
		{name: "already submitted", err: submission.ErrAlreadySubmitted, want: http.StatusConflict},
		{name: "username taken in a create race", err: user.ErrUsernameExists, want: http.StatusConflict},
		{name: "email taken in a create race", err: user.ErrEmailExists, want: http.StatusConflict},
		{name: "deadline passed", err: submission.ErrDeadlinePassed, want: http.StatusGone},
		{name: "unknown", err: errors.New("kaboom"), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := mapDomainError(tt.err); got != tt.want {
				t.Errorf("mapDomainError() code = %d, want %d", got, tt.want)
			}
		})
	}
}
