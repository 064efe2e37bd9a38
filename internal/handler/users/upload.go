package users

import (
	"io"
	"net/http"

	"github.com/jkopstals/dingo-api/internal/api"
	"github.com/jkopstals/dingo-api/internal/database"
	"github.com/jkopstals/dingo-api/internal/importer"

	"github.com/labstack/echo/v4"
)

var runImport = importer.Run

// ImportData 匯入報告的 data 封套
// swagger:model ImportData
type ImportData struct {
	Data importer.Report `json:"data"`
}

// UploadUsersHandler 批次匯入使用者
// @Summary     Bulk import users
// @Description 接收試算表上傳（multipart 的 file 欄位或原始請求本體），
// @Description 逐列驗證並建立使用者，回傳逐列結果報告；部分失敗不是錯誤
// @Tags        users
// @Accept      application/octet-stream
// @Produce     json
// @Success     200 {object} ImportData
// @Failure     400 {object} api.ErrorResponse
// @Failure     401 {object} api.ErrorResponse
// @Failure     500 {object} api.ErrorResponse
// @Security    ApiKeyAuth
// @Router      /users/upload [post]
func UploadUsersHandler(db database.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		upload, err := uploadReader(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Message: "could not read upload"})
		}
		defer upload.Close()

		report, err := runImport(c.Request().Context(), db, upload)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Message: err.Error()})
		}
		return c.JSON(http.StatusOK, ImportData{Data: *report})
	}
}

// uploadReader 優先取 multipart 的 file 欄位，否則用原始請求本體
func uploadReader(c echo.Context) (io.ReadCloser, error) {
	if fh, err := c.FormFile("file"); err == nil {
		return fh.Open()
	}
	return c.Request().Body, nil
}
