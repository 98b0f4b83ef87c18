package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smancaringin/presensi/api/echo/helpers"
	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/attendance"
)

type (
	submitRequest struct {
		StudentName string              `json:"studentName"`
		ClassName   string              `json:"className"`
		Intent      attendance.Intent   `json:"intent"`
		Photo       string              `json:"photo"`
		Location    attendance.Location `json:"location"`
		Timestamp   time.Time           `json:"timestamp"`
	}
	updateRequest struct {
		Status attendance.Status `json:"status" validate:"required"`
		Note   string            `json:"note"`
	}
)

func (r *updateRequest) Validate() error { return core.Validate.Struct(r) }

type attendanceApi struct {
	service *attendance.Service
}

func RegisterAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service) {
	api := attendanceApi{service: svc}

	ag := g.Group("/attendance", jwt)

	// student + admin
	ag.POST("", api.submit)
	ag.GET("/me", api.mine)

	// admin only
	ag.GET("", api.query, helpers.AdminMiddleware())
	ag.DELETE("", api.destroyMultiple, helpers.AdminMiddleware())
	ag.GET("/aggregate", api.aggregate, helpers.AdminMiddleware())
	ag.GET("/export", api.export, helpers.AdminMiddleware())
	ag.GET("/report", api.report, helpers.AdminMiddleware())
	ag.POST("/report/email", api.emailReport, helpers.AdminMiddleware())
	ag.GET("/:id", api.retrieve, helpers.AdminMiddleware())
	ag.PUT("/:id", api.update, helpers.AdminMiddleware())
}

// submit runs one capture. Students can only check themselves in: their name
// and class always come from the token, never the body.
func (api *attendanceApi) submit(ctx echo.Context) error {
	data := new(submitRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}

	usr, err := helpers.GetContextUser(ctx)
	if err != nil {
		return err
	}

	e := attendance.CaptureEvent{
		StudentName: data.StudentName,
		ClassID:     data.ClassName,
		Intent:      data.Intent,
		Photo:       data.Photo,
		Location:    data.Location,
		Timestamp:   data.Timestamp,
	}
	if !usr.IsAdmin() {
		e.StudentName = usr.Name
		e.ClassID = usr.ClassID
	}

	rec, err := api.service.Submit(ctx.Request().Context(), e)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// mine returns the caller's own records for today.
func (api *attendanceApi) mine(ctx echo.Context) error {
	usr, err := helpers.GetContextUser(ctx)
	if err != nil {
		return err
	}

	day := attendance.DayWindow(time.Now(), api.service.Location())
	records, err := api.service.Filter(attendance.QueryFilter{Window: &day, StudentName: usr.Name})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter, err := api.parseFilter(ctx)
	if err != nil {
		return err
	}
	records, err := api.service.Filter(filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := api.service.GetByID(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	data := new(updateRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.service.Update(ctx.Param("id"), data.Status, data.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) destroyMultiple(ctx echo.Context) error {
	idsParam := ctx.QueryParam("ids")
	if idsParam == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "ids", Error: "required"})
	}
	if err := api.service.Delete(strings.Split(idsParam, ",")...); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) aggregate(ctx echo.Context) error {
	if monthParam := ctx.QueryParam("month"); monthParam != "" {
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			return core.NewValidationError(nil, core.FieldError{Field: "month", Error: "must be 1-12"})
		}
		result, err := api.service.AggregateMonth(time.Month(month))
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, result)
	}

	day := time.Now()
	if dateParam := ctx.QueryParam("date"); dateParam != "" {
		var err error
		day, err = time.ParseInLocation("2006-01-02", dateParam, api.service.Location())
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be YYYY-MM-DD"})
		}
	}
	result, err := api.service.AggregateDay(day)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	filter, err := api.parseFilter(ctx)
	if err != nil {
		return err
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="presensi_%s.csv"`, time.Now().In(api.service.Location()).Format("20060102")))
	res.WriteHeader(http.StatusOK)
	return api.service.ExportCSV(res, filter)
}

func (api *attendanceApi) report(ctx echo.Context) error {
	report, err := api.service.Report(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) emailReport(ctx echo.Context) error {
	report, err := api.service.EmailReport(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) parseFilter(ctx echo.Context) (attendance.QueryFilter, error) {
	filter := attendance.QueryFilter{
		ClassID: ctx.QueryParam("className"),
		Search:  ctx.QueryParam("search"),
	}

	if dateParam := ctx.QueryParam("date"); dateParam != "" {
		day, err := time.ParseInLocation("2006-01-02", dateParam, api.service.Location())
		if err != nil {
			return attendance.QueryFilter{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be YYYY-MM-DD"})
		}
		w := attendance.DayWindow(day, api.service.Location())
		filter.Window = &w
	} else if monthParam := ctx.QueryParam("month"); monthParam != "" {
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			return attendance.QueryFilter{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: "must be 1-12"})
		}
		w := attendance.MonthWindow(time.Month(month))
		filter.Window = &w
	}
	return filter, nil
}
