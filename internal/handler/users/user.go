package users

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jkopstals/dingo-api/internal/api"
	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/middleware"
	"github.com/jkopstals/dingo-api/internal/model"
	"github.com/jkopstals/dingo-api/internal/rules"
	"github.com/jkopstals/dingo-api/internal/service"
	"github.com/jkopstals/dingo-api/internal/store"
	"github.com/jkopstals/dingo-api/internal/validation"

	"github.com/labstack/echo/v4"
)

const defaultPageSize = 10

var (
	applyRules   = validation.Apply
	hashPassword = service.HashPassword
	createUser   = store.CreateUser
	getUserByID  = store.GetUserByID
	listUsers    = store.ListUsers
	countUsers   = store.CountUsers
	updateUser   = store.UpdateUser
	deleteUser   = store.DeleteUser
)

// CreateUserHandler 建立新使用者（公開端點）
// @Summary     Create a new user
// @Description 依建立規則集驗證表單資料並建立新帳號，422 逐欄回報所有錯誤
// @Tags        users
// @Accept      application/x-www-form-urlencoded
// @Produce     json
// @Param       name                  formData string true "使用者姓名"
// @Param       email                 formData string true "使用者 Email (lowercase)"
// @Param       password              formData string true "使用者密碼"
// @Param       password_confirmation formData string true "密碼確認"
// @Success     201 {object} api.UserData
// @Failure     400 {object} api.ErrorResponse
// @Failure     422 {object} api.ValidationErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Router      /users [post]
func CreateUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.CreateUserRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid form data"})
		}

		violations, err := applyRules(c.Request().Context(), db, req.Fields(), rules.ForCreate())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		if len(violations) > 0 {
			return c.JSON(http.StatusUnprocessableEntity, api.ValidationErrorResponse{
				Message: "validation failed",
				Errors:  violations,
			})
		}

		// 哈希是建立操作的顯式步驟，不藏在欄位賦值裡
		hash, err := hashPassword(req.Password)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to hash password"})
		}

		user, err := createUser(c.Request().Context(), db, &model.User{
			Name:         req.Name,
			Email:        strings.ToLower(req.Email),
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				// 驗證與寫入之間的唯一性競態
				return c.JSON(http.StatusUnprocessableEntity, api.ValidationErrorResponse{
					Message: "validation failed",
					Errors:  map[string][]string{"email": {"The email has already been taken."}},
				})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}

		return c.JSON(http.StatusCreated, api.UserData{Data: api.NewUserResponse(*user)})
	}
}

// GetUserHandler 取得單一使用者
// @Summary     Get a user by ID
// @Description 透過 ID 查詢並回傳使用者詳細資料
// @Tags        users
// @Produce     json
// @Param       id path int true "使用者 ID"
// @Success     200 {object} api.UserData
// @Failure     400 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/{id} [get]
func GetUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid user ID"})
		}
		user, err := getUserByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, api.UserData{Data: api.NewUserResponse(*user)})
	}
}

// ListUsersHandler 分頁列出使用者
// @Summary     List users
// @Description 依插入順序回傳一頁使用者與分頁中繼資料
// @Tags        users
// @Produce     json
// @Param       page  query int false "頁碼 (預設 1)"
// @Param       limit query int false "每頁筆數 (預設 10)"
// @Success     200 {object} api.UserList
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users [get]
func ListUsersHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := queryInt(c, "page", 1)
		limit := queryInt(c, "limit", defaultPageSize)

		users, err := listUsers(c.Request().Context(), db, limit, (page-1)*limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		total, err := countUsers(c.Request().Context(), db)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}

		data := make([]api.UserResponse, 0, len(users))
		for _, u := range users {
			data = append(data, api.NewUserResponse(u))
		}

		totalPages := (total + limit - 1) / limit
		if totalPages < 1 {
			totalPages = 1
		}
		links := api.PageLinks{}
		if page > 1 {
			links.Previous = pageLink(c, page-1, limit)
		}
		if page < totalPages {
			links.Next = pageLink(c, page+1, limit)
		}

		return c.JSON(http.StatusOK, api.UserList{
			Data: data,
			Meta: api.Meta{Pagination: api.Pagination{
				Total:       total,
				Count:       len(data),
				PerPage:     limit,
				CurrentPage: page,
				TotalPages:  totalPages,
				Links:       links,
			}},
		})
	}
}

func queryInt(c echo.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func pageLink(c echo.Context, page, limit int) string {
	return fmt.Sprintf("%s?page=%d&limit=%d", c.Request().URL.Path, page, limit)
}

// UpdateUserHandler 更新指定使用者
// @Summary     Update a user by ID
// @Description 依更新規則集驗證（email 唯一性排除自己），只寫入可填欄位
// @Tags        users
// @Accept      application/x-www-form-urlencoded
// @Produce     json
// @Param       id                    path     int    true "使用者 ID"
// @Param       name                  formData string true "使用者姓名"
// @Param       email                 formData string true "使用者 Email (lowercase)"
// @Param       password              formData string true "使用者密碼"
// @Param       password_confirmation formData string true "密碼確認"
// @Success     200 {object} api.UserData
// @Failure     400 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     422 {object} api.ValidationErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/{id} [post]
func UpdateUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid user ID"})
		}

		user, err := getUserByID(c.Request().Context(), db, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}

		var req api.UpdateUserRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid form data"})
		}

		// 操作類型（更新、排除自己）是顯式參數，不從路由形狀推斷
		violations, err := applyRules(c.Request().Context(), db, req.Fields(), rules.ForUpdate(id))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		if len(violations) > 0 {
			return c.JSON(http.StatusUnprocessableEntity, api.ValidationErrorResponse{
				Message: "validation failed",
				Errors:  violations,
			})
		}

		hash, err := hashPassword(req.Password)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: "failed to hash password"})
		}

		// 只持久化可填欄位：name、email、password
		user.Name = req.Name
		user.Email = strings.ToLower(req.Email)
		user.PasswordHash = hash

		if err := updateUser(c.Request().Context(), db, user); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
			}
			// 與其他使用者撞 email：唯一性檢查後仍可能在持久化時發生
			if errors.Is(err, store.ErrDuplicateEmail) {
				return c.JSON(http.StatusUnprocessableEntity, api.ValidationErrorResponse{
					Message: "validation failed",
					Errors:  map[string][]string{"email": {"The email has already been taken."}},
				})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}

		updated, err := getUserByID(c.Request().Context(), db, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, api.UserData{Data: api.NewUserResponse(*updated)})
	}
}

// DeleteUserHandler 刪除指定使用者
// @Summary     Delete a user by ID
// @Description 根據使用者 ID 刪除帳號
// @Tags        users
// @Param       id path int true "使用者 ID"
// @Success     204 "No Content"
// @Failure     400 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/{id} [delete]
func DeleteUserHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "invalid user ID"})
		}
		if _, err := getUserByID(c.Request().Context(), db, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		if err := deleteUser(c.Request().Context(), db, id); err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// MeHandler 取得當前使用者資訊
// @Summary     Get current user info
// @Description 透過 bearer token 取得當前使用者詳細資訊
// @Tags        users
// @Produce     json
// @Success     200 {object} api.UserData
// @Failure     401 {object} api.ErrorResponse
// @Failure     404 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/me [get]
func MeHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(middleware.ContextUserKey).(*service.CustomClaims)
		if !ok || claims.UserID == 0 {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{Message: "invalid or missing token"})
		}
		user, err := getUserByID(c.Request().Context(), db, claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, api.ErrorResponse{Message: "user not found"})
			}
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, api.UserData{Data: api.NewUserResponse(*user)})
	}
}

// RulesHandler 揭露建立規則集（公開端點）
// @Summary     Registration rules
// @Description 以欄位對應規則描述字串的形式回傳建立規則集，供客戶端產生表單
// @Tags        users
// @Produce     json
// @Success     200 {object} api.RulesData
// @Router      /users/rules [get]
func RulesHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, api.RulesData{Data: rules.ForCreate().Describe()})
	}
}
