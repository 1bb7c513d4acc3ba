package echoapi

import (
	"io"
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/submission"
)

type submissionApi struct {
	svc *submission.Service
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *submission.Service) {
	api := submissionApi{svc: svc}

	ag := g.Group("/assignments/:id", jwt)
	ag.POST("/submit", api.submit, studentMiddleware())
	ag.GET("/submission", api.status, studentMiddleware())
	ag.GET("/submissions", api.queryByAssignment, teacherMiddleware())

	g.GET("/submissions/:id", api.retrieve, jwt, teacherMiddleware())
}

// Handlers

// submit hands in a multipart "file" for the assignment.
func (api *submissionApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	// read one byte past the cap so oversized uploads are caught without
	// buffering them whole; Validate rejects the excess
	data, err := ioutil.ReadAll(io.LimitReader(f, core.MaxUploadSize+1))
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}

	ns := submission.NewSubmission{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"), claims.Subject, ns)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// status reports whether the calling student has submitted.
func (api *submissionApi) status(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	st, err := api.svc.Status(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

// queryByAssignment lists all submissions; course owner only.
func (api *submissionApi) queryByAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	subs, err := api.svc.QueryByAssignment(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
