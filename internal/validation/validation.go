// Package validation 將規則集套用到欄位值映射，
// 收集每個欄位所有被違反的約束（不短路），
// 跨欄位約束在逐欄位約束之後評估。
package validation

import (
	"context"
	"strings"

	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/rules"
	"github.com/jkopstals/dingo-api/internal/store"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var emailInUse = store.EmailInUse

// Apply 驗證 fields 是否符合規則集。
// 回傳欄位對應錯誤訊息的映射；空映射代表通過。
// 只有唯一性查詢失敗（儲存層錯誤）才回傳 error。
func Apply(ctx context.Context, db database.DB, fields map[string]string, set rules.Set) (map[string][]string, error) {
	violations := map[string][]string{}
	add := func(field, msg string) {
		violations[field] = append(violations[field], msg)
	}

	type deferred struct {
		field string
		check rules.Check
	}
	var crossField []deferred

	for field, checks := range set.Fields {
		value := fields[field]
		for _, check := range checks {
			switch {
			case check.SameAs != "":
				crossField = append(crossField, deferred{field, check})
			case check.Unique:
				// 儲存層保存的是小寫 email，查詢前先正規化
				taken, err := emailInUse(ctx, db, strings.ToLower(value), set.ExcludeID)
				if err != nil {
					return nil, err
				}
				if taken {
					add(field, check.Message)
				}
			case check.Tag != "":
				if err := validate.Var(value, check.Tag); err != nil {
					add(field, check.Message)
				}
			}
		}
	}

	for _, d := range crossField {
		if fields[d.field] != fields[d.check.SameAs] {
			add(d.field, d.check.Message)
		}
	}

	return violations, nil
}
