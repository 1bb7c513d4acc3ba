package echoapi

import (
	"io"
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type uploadApi struct {
	store core.ObjectStore
}

func registerUploadAPI(g *echo.Group, jwt echo.MiddlewareFunc, store core.ObjectStore) {
	api := uploadApi{store: store}

	g.POST("/uploads", api.create, jwt, teacherMiddleware())
}

// Handlers

// create stores a multipart "file" and returns its URL, to be attached to an
// assignment on creation.
func (api *uploadApi) create(ctx echo.Context) error {
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
	// buffering them whole
	data, err := ioutil.ReadAll(io.LimitReader(f, core.MaxUploadSize+1))
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}
	if len(data) > core.MaxUploadSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file exceeds the 10MB limit"})
	}

	url, err := api.store.Put(ctx.Request().Context(), data, fh.Filename, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return core.NewUpstreamError("storing uploaded file", err)
	}
	return ctx.JSON(http.StatusCreated, UploadResponse{FileURL: url})
}
