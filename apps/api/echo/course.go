package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc       *course.Service
	enrollSvc *course.EnrollmentService
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, enrollSvc *course.EnrollmentService) {
	api := courseApi{svc: svc, enrollSvc: enrollSvc}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("/join", api.join, studentMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.GET("/students", api.queryStudents)
	dg.GET("/withdrawals", api.queryWithdrawals)
	dg.POST("/students/:studentID/withdraw", api.withdraw)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err = api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) join(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	crs, already, err := api.enrollSvc.JoinByCode(ctx.Request().Context(), data.Code, claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, JoinResponse{Course: crs, AlreadyEnrolled: already})
}

// queryStudents lists the course roster; course owner or admin only.
func (api *courseApi) queryStudents(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	crs, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if crs.OwnerID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	students, err := api.enrollSvc.Members(reqCtx, crs.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

// queryWithdrawals lists the withdrawal audit trail; course owner or admin only.
func (api *courseApi) queryWithdrawals(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	crs, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if crs.OwnerID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	wds, err := api.enrollSvc.Withdrawals(reqCtx, crs.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wds)
}

// withdraw removes a student from the course; students may only withdraw
// themselves, the course owner or an admin may withdraw anyone.
func (api *courseApi) withdraw(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	courseID := ctx.Param("id")
	studentID := ctx.Param("studentID")

	if claims.Subject != studentID && !claims.IsAdmin {
		crs, err := api.svc.GetByID(reqCtx, courseID)
		if err != nil {
			return err
		}
		if crs.OwnerID != claims.Subject {
			return errHttpForbidden
		}
	}

	var data course.WithdrawCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WithdrawCourse")
	}

	if err = api.enrollSvc.Withdraw(reqCtx, courseID, studentID, data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
