package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smancaringin/presensi/api/echo/helpers"
	"github.com/smancaringin/presensi/core"
	usr "github.com/smancaringin/presensi/core/user"
)

type (
	studentLoginRequest struct {
		Name      string `json:"name" validate:"required"`
		ClassName string `json:"className" validate:"required"`
		PIN       string `json:"pin" validate:"required"`
	}
	adminLoginRequest struct {
		Name string `json:"name" validate:"required"`
		PIN  string `json:"pin" validate:"required"`
	}
	loginResponse struct {
		Token string   `json:"token"`
		User  usr.User `json:"user"`
	}
)

func (r *studentLoginRequest) Validate() error { return core.Validate.Struct(r) }
func (r *adminLoginRequest) Validate() error   { return core.Validate.Struct(r) }

type authApi struct {
	service *usr.Service
}

func RegisterAuthAPI(g *echo.Group, svc *usr.Service) {
	api := authApi{service: svc}

	ag := g.Group("/auth")
	ag.POST("/student-login", api.studentLogin)
	ag.POST("/admin-login", api.adminLogin)
}

func (api *authApi) studentLogin(ctx echo.Context) error {
	data := new(studentLoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	u, err := api.service.AuthenticateStudent(data.Name, data.ClassName, data.PIN)
	if err != nil {
		return err
	}
	return api.respond(ctx, u)
}

func (api *authApi) adminLogin(ctx echo.Context) error {
	data := new(adminLoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	u, err := api.service.AuthenticateAdmin(data.Name, data.PIN)
	if err != nil {
		return err
	}
	return api.respond(ctx, u)
}

func (api *authApi) respond(ctx echo.Context, u usr.User) error {
	token, err := helpers.GenerateToken(helpers.GetUserClaims(u))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loginResponse{Token: token, User: u})
}
