package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
	"go.uber.org/zap"
)

// Register creates a user account
func Register(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := svc.Users.Create(c.Request().Context(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, err, "registration_failed")
	}

	prometheus.RecordRegister()
	log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login checks credentials and issues a token carrying the primary tenant
func Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, tenant, err := svc.Users.Authenticate(c.Request().Context(), login, req.Password)
	if err != nil {
		prometheus.RecordLogin(false)
		if apperror.Is(err, apperror.KindForbidden) {
			log.Warn("Login rejected", zap.String("login", login))
			prometheus.RecordError("invalid_credentials")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": apperror.Message(err)})
		}
		return fail(c, err, "login_failed")
	}

	var tenantID *uint
	if tenant != nil {
		tenantID = &tenant.ID
	}
	token, err := svc.JWT.GenerateTokenWithTenant(user.Email, user.Username, user.ID, tenantID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.RecordLogin(true)
	log.Info("User logged in", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token":  token,
		"user":   user,
		"tenant": tenant,
	})
}
