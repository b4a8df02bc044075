package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"springsnow/internal/model"
	"springsnow/internal/parser"
	"springsnow/internal/remote"
)

// 上传校验阈值
const (
	maxErrorRatio    = 0.1
	maxErrorDetails  = 10
	maxErrorsInReply = 5
)

// uploadRow 上传表中的一行日指标
type uploadRow struct {
	ProductID        *int64   `json:"product_id" validate:"required"`
	RecordDate       string   `json:"record_date" validate:"required"`
	ProductionVolume *float64 `json:"production_volume" validate:"omitempty,gte=0"`
	SalesVolume      *float64 `json:"sales_volume" validate:"omitempty,gte=0"`
	InventoryLevel   *float64 `json:"inventory_level" validate:"omitempty,gte=0"`
	AveragePrice     *float64 `json:"average_price" validate:"omitempty,gte=0"`
	SalesAmount      *float64 `json:"sales_amount"`
}

var rowValidate = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessage 把校验失败转换为接口约定的提示
func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "product_id":
		return "Invalid or missing product_id"
	case fe.Field() == "record_date":
		return "Missing record_date"
	case fe.Tag() == "gte":
		return fmt.Sprintf("Invalid %s: must be a non-negative number", fe.Field())
	default:
		return fmt.Sprintf("Invalid %s", fe.Field())
	}
}

// parseUploadRow 解析并校验一行，返回该行全部问题
func parseUploadRow(r parser.Record) (model.DailyMetric, []string) {
	var (
		row  uploadRow
		errs []string
	)

	if raw := strings.TrimSpace(r.Value("product_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			row.ProductID = &id
		}
	}
	row.RecordDate = strings.TrimSpace(r.Value("record_date"))

	number := func(column string) *float64 {
		raw := strings.TrimSpace(r.Value(column))
		if raw == "" {
			return nil
		}
		v := parser.ParseFloat(raw)
		if math.IsNaN(v) {
			errs = append(errs, fmt.Sprintf("Invalid %s: must be a non-negative number", column))
			return nil
		}
		return &v
	}
	row.ProductionVolume = number("production_volume")
	row.SalesVolume = number("sales_volume")
	row.InventoryLevel = number("inventory_level")
	row.AveragePrice = number("average_price")
	row.SalesAmount = number("sales_amount")

	if err := rowValidate.Struct(row); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ves {
				errs = append(errs, fieldMessage(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	var date string
	if row.RecordDate != "" {
		t, ok := parser.ParseDate(row.RecordDate)
		if !ok {
			errs = append(errs, "Invalid record_date format")
		} else {
			date = parser.FormatDate(t)
		}
	}
	if len(errs) > 0 {
		return model.DailyMetric{}, errs
	}

	return model.DailyMetric{
		RecordDate:       date,
		ProductID:        *row.ProductID,
		ProductionVolume: row.ProductionVolume,
		SalesVolume:      row.SalesVolume,
		InventoryLevel:   row.InventoryLevel,
		AveragePrice:     row.AveragePrice,
		SalesAmount:      row.SalesAmount,
	}, nil
}

// saveUpload 把上传文件保存到临时目录，返回路径
func saveUpload(c *gin.Context, prefix string) (string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", false
	}
	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("springsnow_%s_%d_%s", prefix, time.Now().UnixNano(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
		return "", false
	}
	return tempPath, true
}

// UploadPriceAdjustments 上传调价表
// POST /api/upload/price-adjustments
func (h *Handler) UploadPriceAdjustments(c *gin.Context) {
	tempPath, ok := saveUpload(c, "prices")
	if !ok {
		return
	}
	defer os.Remove(tempPath)

	res, err := h.coordinator.ImportPrices(c.Request.Context(), tempPath, false)
	if err != nil {
		log.Error().Err(err).Msg("调价表上传失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process price adjustments", "details": err.Error()})
		return
	}

	resp := gin.H{
		"message":          "Price adjustments uploaded successfully",
		"processedRecords": res.Records,
	}
	if len(res.Skipped) > 0 {
		resp["errors"] = res.Skipped
	}
	c.JSON(http.StatusOK, resp)
}

// UploadMetrics 上传日指标 Excel，逐行校验后写入
// POST /api/upload
func (h *Handler) UploadMetrics(c *gin.Context) {
	tempPath, ok := saveUpload(c, "upload")
	if !ok {
		return
	}
	defer os.Remove(tempPath)

	f, err := parser.OpenWorkbook(tempPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or in the wrong format"})
		return
	}
	defer f.Close()

	sheet, err := parser.ReadSheet(f, "")
	if err != nil || len(sheet.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or in the wrong format"})
		return
	}

	var (
		valid    []model.DailyMetric
		problems []string
	)
	for i, r := range sheet.Records {
		m, errs := parseUploadRow(r)
		if len(errs) > 0 {
			problems = append(problems, fmt.Sprintf("Row %d: %s", i+1, strings.Join(errs, "; ")))
			continue
		}
		valid = append(valid, m)
	}

	total := len(sheet.Records)
	if float64(len(problems)) > float64(total)*maxErrorRatio {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "Too many validation errors in uploaded data",
			"details":     problems[:min(len(problems), maxErrorDetails)],
			"totalErrors": len(problems),
			"totalRows":   total,
		})
		return
	}
	if len(valid) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid rows found in uploaded data"})
		return
	}

	res, err := h.store.InsertDailyMetrics(valid)
	if err != nil {
		h.fail(c, err)
		return
	}
	problems = append(problems, res.Errors...)
	log.Info().Int("rows", total).Int("inserted", res.Inserted).Int("errors", len(problems)).Msg("日指标上传完成")

	c.JSON(http.StatusOK, gin.H{
		"message":       "Upload successful",
		"processedRows": res.Inserted,
		"skippedRows":   total - res.Inserted,
		"errors":        problems[:min(len(problems), maxErrorsInReply)],
	})
}

// ImportBatch 接收远程推送的日指标批次
// POST /api/admin/import-batch
func (h *Handler) ImportBatch(c *gin.Context) {
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !bytes.HasPrefix(bytes.TrimSpace(body.Data), []byte("[")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Data must be an array"})
		return
	}

	var rows []remote.Row
	if err := json.Unmarshal(body.Data, &rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Data must be an array", "details": err.Error()})
		return
	}

	metrics := make([]model.DailyMetric, len(rows))
	for i, r := range rows {
		metrics[i] = r.Metric()
	}
	res, err := h.store.InsertDailyMetrics(metrics)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(res.Errors) > 0 {
		log.Warn().Int("failed", len(res.Errors)).Str("first", res.Errors[0]).Msg("部分批次行写入失败")
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inserted": res.Inserted, "total": res.Total})
}
