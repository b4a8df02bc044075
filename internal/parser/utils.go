package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeColumnName 规范化列名，去除空格（含全角空格）和换行
func NormalizeColumnName(name string) string {
	name = strings.ReplaceAll(name, "　", " ")
	name = strings.TrimSpace(name)
	return spaceRe.ReplaceAllString(name, "")
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// MatchPattern 使用正则匹配
func MatchPattern(text, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ParseFloat 解析数值，去除千分位和百分号；无法解析时返回 NaN
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FloatOrZero 解析数值，NaN 视为 0
func FloatOrZero(s string) float64 {
	v := ParseFloat(s)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
	"2006年1月2日",
	"2006.01.02",
	"20060102",
	"01-02-06",
	"1/2/06",
}

// ParseDate 解析日期，支持 Excel 序列号与常见文本格式
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 && v < 100000 {
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return time.Time{}, false
		}
		return truncateDay(t), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// FormatDate 统一日期格式 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// cell 安全取单元格
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isBlankRow 整行为空
func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
