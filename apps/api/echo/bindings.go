package echoapi

import (
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type JoinRequest struct {
	Code string `json:"code" validate:"required"`
}

func (r *JoinRequest) Validate() error {
	r.Code = core.CleanString(r.Code)
	return core.Validate.Struct(r)
}

type JoinResponse struct {
	Course          course.Course `json:"course"`
	AlreadyEnrolled bool          `json:"already_enrolled"`
}

type UploadResponse struct {
	FileURL string `json:"file_url"`
}
