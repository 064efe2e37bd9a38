package api

import (
	"time"

	"github.com/jkopstals/dingo-api/internal/model"
)

// ErrorResponse 全域錯誤響應模型
// swagger:model ErrorResponse
type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse 422 響應，逐欄位回報所有被違反的約束
// swagger:model ValidationErrorResponse
type ValidationErrorResponse struct {
	Message string              `json:"message" example:"validation failed"`
	Errors  map[string][]string `json:"errors"`
}

// TokenResponse 登入成功的令牌響應
// swagger:model TokenResponse
type TokenResponse struct {
	Token string `json:"token" example:"eyJhbGciOi..."`
}

// UserResponse 回傳的使用者資訊；密碼永不包含
// swagger:model UserResponse
type UserResponse struct {
	ID        int       `json:"id" example:"1"`
	Name      string    `json:"name" example:"Alice"`
	Email     string    `json:"email" example:"alice@example.com"`
	CreatedAt time.Time `json:"created_at" example:"2025-05-01T15:04:05Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2025-05-01T15:04:05Z"`
}

// UserData 單一使用者的 data 封套
// swagger:model UserData
type UserData struct {
	Data UserResponse `json:"data"`
}

// PageLinks 分頁導覽連結；不存在的方向省略
type PageLinks struct {
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

// Pagination 分頁中繼資料
type Pagination struct {
	Total       int       `json:"total" example:"51"`
	Count       int       `json:"count" example:"10"`
	PerPage     int       `json:"per_page" example:"10"`
	CurrentPage int       `json:"current_page" example:"1"`
	TotalPages  int       `json:"total_pages" example:"6"`
	Links       PageLinks `json:"links"`
}

// Meta 列表響應的中繼資料封套
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// UserList 使用者列表的 data + meta 封套
// swagger:model UserList
type UserList struct {
	Data []UserResponse `json:"data"`
	Meta Meta           `json:"meta"`
}

// RulesData 規則揭露的 data 封套：欄位對應規則描述字串
// swagger:model RulesData
type RulesData struct {
	Data map[string]string `json:"data"`
}

// NewUserResponse 由 model.User 組裝響應
func NewUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
