package api

// AuthRequest 登入憑證 (form data)
// swagger:model AuthRequest
type AuthRequest struct {
	Email    string `form:"email" example:"alice@example.com"`
	Password string `form:"password" example:"Secret123!"`
}

// CreateUserRequest 建立使用者的請求格式 (form data)
// 欄位約束由規則集驗證，錯誤逐欄回報
// swagger:model CreateUserRequest
type CreateUserRequest struct {
	Name                 string `form:"name" example:"Alice"`
	Email                string `form:"email" example:"alice@example.com"`
	Password             string `form:"password" example:"Secret123!"`
	PasswordConfirmation string `form:"password_confirmation" example:"Secret123!"`
}

// UpdateUserRequest 更新使用者的請求格式 (form data)
// swagger:model UpdateUserRequest
type UpdateUserRequest struct {
	Name                 string `form:"name" example:"Alice"`
	Email                string `form:"email" example:"alice@example.com"`
	Password             string `form:"password" example:"Secret123!"`
	PasswordConfirmation string `form:"password_confirmation" example:"Secret123!"`
}

// Fields 以欄位名稱映射回傳請求內容，交給規則集驗證
func (r CreateUserRequest) Fields() map[string]string {
	return map[string]string{
		"name":                  r.Name,
		"email":                 r.Email,
		"password":              r.Password,
		"password_confirmation": r.PasswordConfirmation,
	}
}

// Fields 以欄位名稱映射回傳請求內容，交給規則集驗證
func (r UpdateUserRequest) Fields() map[string]string {
	return map[string]string{
		"name":                  r.Name,
		"email":                 r.Email,
		"password":              r.Password,
		"password_confirmation": r.PasswordConfirmation,
	}
}
