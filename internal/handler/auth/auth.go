package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/jkopstals/dingo-api/internal/api"
	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/service"
	"github.com/jkopstals/dingo-api/internal/store"

	"github.com/labstack/echo/v4"
)

const tokenTTL = 24 * time.Hour

var (
	getUserByEmail   = store.GetUserByEmail
	authenticateUser = service.AuthenticateUser
	issueAccessToken = service.IssueAccessToken
)

// AuthenticateHandler 以 email/password 交換存取令牌
// @Summary     Authenticate
// @Description 驗證憑證並回傳 bearer token
// @Tags        auth
// @Accept      application/x-www-form-urlencoded
// @Produce     json
// @Param       email    formData string true "使用者 Email"
// @Param       password formData string true "使用者密碼"
// @Success     200 {object} api.TokenResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Router      /auth [post]
func AuthenticateHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.AuthRequest
		// 憑證缺漏與憑證錯誤同樣回 invalid_credentials，不洩漏差異
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid_credentials"})
		}
		if req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid_credentials"})
		}

		user, err := getUserByEmail(c.Request().Context(), db, strings.ToLower(req.Email))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid_credentials"})
		}

		authUser, err := authenticateUser(c.Request().Context(), *user, req.Password)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid_credentials"})
		}

		token, err := issueAccessToken(*authUser, tokenTTL)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "could_not_create_token"})
		}

		return c.JSON(http.StatusOK, api.TokenResponse{Token: token})
	}
}

// ValidateTokenHandler 令牌驗證端點；RequireAuth 已驗過令牌
// @Summary     Validate token
// @Description 令牌有效時回 204
// @Tags        auth
// @Success     204 "No Content"
// @Failure     400 {object} api.ErrorResponse
// @Failure     401 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /validate-token [get]
func ValidateTokenHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}
}
