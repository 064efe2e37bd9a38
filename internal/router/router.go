package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jkopstals/dingo-api/internal/cache"
	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/handler"
	"github.com/jkopstals/dingo-api/internal/handler/auth"
	"github.com/jkopstals/dingo-api/internal/handler/users"
	"github.com/jkopstals/dingo-api/internal/middleware"
)

// Setup 註冊所有路由與中介層
func Setup(e *echo.Echo, db database.DB, rdb cache.Cache) {
	api := e.Group("/api")

	// 健康檢查（需登入）
	api.GET("/ping", handler.PingHandler(db, rdb), middleware.RequireAuth)

	// 公開端點
	api.POST("/auth", auth.AuthenticateHandler(db))
	api.GET("/users/rules", users.RulesHandler())
	api.POST("/users", users.CreateUserHandler(db))

	// 需令牌的端點
	api.GET("/validate-token", auth.ValidateTokenHandler(), middleware.RequireAuth)
	api.GET("/users", users.ListUsersHandler(db), middleware.RequireAuth)
	api.GET("/users/me", users.MeHandler(db), middleware.RequireAuth)
	api.POST("/users/upload", users.UploadUsersHandler(db), middleware.RequireAuth)
	api.GET("/users/:id", users.GetUserHandler(db), middleware.RequireAuth)
	api.POST("/users/:id", users.UpdateUserHandler(db), middleware.RequireAuth)
	api.DELETE("/users/:id", users.DeleteUserHandler(db), middleware.RequireAuth)
}
