package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jkopstals/dingo-api/internal/service"

	"github.com/labstack/echo/v4"
)

const ContextUserKey = "user"

// tokenFromRequest 取出 bearer token。
// 優先讀 Authorization 標頭，否則退回 ?token= 查詢參數。
// 查詢參數傳輸會讓令牌進到存取日誌，保留只是為了相容既有客戶端。
func tokenFromRequest(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid authorization header format")
		}
		return parts[1], nil
	}
	if token := c.QueryParam("token"); token != "" {
		return token, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "token_not_provided")
}

func extractClaims(c echo.Context) (*service.CustomClaims, error) {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	claims, err := service.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
	}
	return claims, nil
}

// RequireAuth 驗證 bearer token 並把 claims 放進 context。
// 未附令牌回 400，令牌無效或過期回 401。
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := extractClaims(c)
		if err != nil {
			return err
		}
		c.Set(ContextUserKey, claims)
		return next(c)
	}
}
