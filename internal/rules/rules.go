// Package rules 定義使用者欄位的宣告式驗證規則集。
// 規則集是顯式傳遞的值，不是套件層級的共享狀態；
// 建立與更新各有一組（更新時唯一性檢查排除自己）。
package rules

import (
	"sort"
	"strings"
)

// Check 描述單一欄位約束。
// Tag 是交給 go-playground/validator 評估的表達式；
// Unique 與 SameAs 的檢查不屬於 validator，由 validation 套件自行解析。
type Check struct {
	Tag     string
	Unique  bool
	SameAs  string
	Label   string
	Message string
}

// Set 是欄位名稱對應約束列表的規則集。
// ExcludeID > 0 時唯一性檢查排除該使用者（更新場景）。
type Set struct {
	Fields    map[string][]Check
	ExcludeID int
}

// ForCreate 回傳建立使用者的規則集
func ForCreate() Set {
	return Set{Fields: map[string][]Check{
		"name": {
			{Label: "string"},
			{Tag: "required", Label: "required", Message: "The name field is required."},
			{Tag: "min=2", Label: "min:2", Message: "The name must be at least 2 characters."},
		},
		"email": {
			{Tag: "email", Label: "email", Message: "The email must be a valid email address."},
			{Tag: "required", Label: "required", Message: "The email field is required."},
			{Unique: true, Label: "unique:users", Message: "The email has already been taken."},
		},
		"password": {
			{Label: "string"},
			{Tag: "required", Label: "required", Message: "The password field is required."},
			{Tag: "min=8", Label: "min:8", Message: "The password must be at least 8 characters."},
		},
		"password_confirmation": {
			{Tag: "required", Label: "required", Message: "The password confirmation field is required."},
			{SameAs: "password", Label: "same:password", Message: "The password confirmation does not match."},
		},
	}}
}

// ForUpdate 回傳更新使用者的規則集，excludeID 的現值不視為 email 衝突
func ForUpdate(excludeID int) Set {
	s := ForCreate()
	s.ExcludeID = excludeID
	return s
}

// ForImport 回傳批次匯入的規則集；匯入格式沒有確認欄位
func ForImport() Set {
	s := ForCreate()
	delete(s.Fields, "password_confirmation")
	return s
}

// Fillable 回傳允許寫入的欄位（規則集鍵扣除 password_confirmation）
func (s Set) Fillable() []string {
	var keys []string
	for k := range s.Fields {
		if k == "password_confirmation" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe 以 "label|label|..." 形式輸出規則集，供客戶端產生表單
func (s Set) Describe() map[string]string {
	out := make(map[string]string, len(s.Fields))
	for field, checks := range s.Fields {
		labels := make([]string, 0, len(checks))
		for _, c := range checks {
			labels = append(labels, c.Label)
		}
		out[field] = strings.Join(labels, "|")
	}
	return out
}
