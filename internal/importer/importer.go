// Package importer 實作試算表批次匯入流程：
// 上傳位元組寫入暫存檔、解析列、逐列獨立驗證並建立使用者，
// 回報每一列的結果。單列失敗不會中斷整批。
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/model"
	"github.com/jkopstals/dingo-api/internal/rules"
	"github.com/jkopstals/dingo-api/internal/service"
	"github.com/jkopstals/dingo-api/internal/store"
	"github.com/jkopstals/dingo-api/internal/validation"

	"github.com/xuri/excelize/v2"
)

// columns 是匯入時唯一接受的欄位，來自匯入規則集的可填欄位
var columns = rules.ForImport().Fillable()

// RowOutcome 單一資料列的匯入結果
type RowOutcome struct {
	// Row 匯入列的欄位值；密碼不回傳
	Row map[string]string `json:"user"`
	// Success 該列是否成功建立
	Success bool `json:"success"`
	// Errors 欄位對應錯誤訊息；成功時省略
	Errors map[string][]string `json:"errors,omitempty"`
}

// Report 整批匯入的結果
type Report struct {
	// Success 至少一列成功即為 true，不代表全部成功
	Success bool `json:"success"`
	// Progress 依序記錄的進度訊息
	Progress []string `json:"progress"`
	// Rows 每一列的結果，順序與試算表一致
	Rows []RowOutcome `json:"rows"`
}

func (r *Report) note(format string, args ...any) {
	r.Progress = append(r.Progress, fmt.Sprintf(format, args...))
}

// 測試替換點
var (
	applyRules   = validation.Apply
	hashPassword = service.HashPassword
	createUser   = store.CreateUser
)

// Run 執行匯入。只有無法接收上傳位元組或無法開啟試算表時回傳 error；
// 其餘失敗（含每一列的驗證或建立失敗）都記入報告。
func Run(ctx context.Context, db database.DB, upload io.Reader) (*Report, error) {
	report := &Report{}

	tmp, err := os.CreateTemp("", "user-import-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	// 暫存檔在每條離開路徑上都會被移除
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, upload); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("importer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	report.note("file received")

	f, err := excelize.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("importer: %w", err)
	}
	defer f.Close()

	candidates := extractRows(f)
	report.note("%d rows found", len(candidates))

	if len(candidates) == 0 {
		report.note("no rows valid")
		return report, nil
	}

	ruleSet := rules.ForImport()
	imported := 0
	for _, row := range candidates {
		outcome := importRow(ctx, db, row, ruleSet)
		if outcome.Success {
			imported++
			report.Success = true
		}
		report.Rows = append(report.Rows, outcome)
	}

	report.note("%d rows imported", imported)
	report.note("%d rows NOT imported", len(candidates)-imported)
	return report, nil
}

func importRow(ctx context.Context, db database.DB, row map[string]string, set rules.Set) RowOutcome {
	outcome := RowOutcome{
		// 密碼明文不得出現在任何回應中
		Row: map[string]string{"name": row["name"], "email": row["email"]},
	}

	violations, err := applyRules(ctx, db, row, set)
	if err != nil {
		outcome.Errors = map[string][]string{"unknown": {"could not create user"}}
		return outcome
	}
	if len(violations) > 0 {
		outcome.Errors = violations
		return outcome
	}

	hash, err := hashPassword(row["password"])
	if err != nil {
		outcome.Errors = map[string][]string{"unknown": {"could not create user"}}
		return outcome
	}

	_, err = createUser(ctx, db, &model.User{
		Name:         row["name"],
		Email:        strings.ToLower(row["email"]),
		PasswordHash: hash,
	})
	if err != nil {
		// 驗證沒攔到的失敗（例如唯一性競態）一律回報 unknown
		outcome.Errors = map[string][]string{"unknown": {"could not create user"}}
		return outcome
	}

	outcome.Success = true
	return outcome
}

// extractRows 從第一個工作表抽出符合欄位的資料列；
// 若第一個工作表沒有結果，改為掃描所有工作表並聯集全部符合的列。
func extractRows(f *excelize.File) []map[string]string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil
	}

	if rows := sheetRows(f, sheets[0]); len(rows) > 0 {
		return rows
	}

	var all []map[string]string
	for _, name := range sheets {
		all = append(all, sheetRows(f, name)...)
	}
	return all
}

// sheetRows 讀取單一工作表；首列必須同時含 name、email、password 標頭
func sheetRows(f *excelize.File, sheet string) []map[string]string {
	raw, err := f.GetRows(sheet)
	if err != nil || len(raw) < 2 {
		return nil
	}

	index := map[string]int{}
	for i, h := range raw[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return nil
		}
	}

	var rows []map[string]string
	for _, cells := range raw[1:] {
		row := map[string]string{}
		for _, col := range columns {
			if i := index[col]; i < len(cells) {
				row[col] = strings.TrimSpace(cells[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
