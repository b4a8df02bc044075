package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"springsnow/internal/model"
)

var (
	priceSheetRe    = regexp.MustCompile(`价格表(\d+)月(\d+)号(?:（(\d+)）)?`)
	priceSheetDotRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\((\d+)\))?`)
)

// 每个 Sheet 横向并排三个模板，每个模板 9 列
const (
	templateWidth = 9
	templateCount = 3

	offsetCategory      = 0
	offsetName          = 1
	offsetSpecification = 2
	offsetPlant2Prev    = 7 // 加工二厂-前价格
	offsetPlant2Price   = 8 // 加工二厂-价格
)

// ParseSheetDate 从调价表 Sheet 名中解析 月/日/调价次数
// 支持 "价格表4月2号（2）" 与 "4.2(2)"
func ParseSheetDate(name string) (model.SheetDate, bool) {
	m := priceSheetRe.FindStringSubmatch(name)
	if m == nil {
		m = priceSheetDotRe.FindStringSubmatch(name)
	}
	if m == nil {
		return model.SheetDate{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > daysIn(month) {
		return model.SheetDate{}, false
	}
	count := 1
	if m[3] != "" {
		if c, err := strconv.Atoi(m[3]); err == nil && c > 0 {
			count = c
		}
	}
	return model.SheetDate{Month: month, Day: day, Count: count}, true
}

// daysIn 月份天数，2 月按闰年计，具体年份在 LoadPriceBook 中再校验
func daysIn(month int) int {
	return time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PriceBook 调价表解析结果
type PriceBook struct {
	Adjustments []model.PriceAdjustment
	Dates       []time.Time // 已解析的调价日期（去重、升序）
	Skipped     []string    // 无法解析日期的 Sheet
	Report      *LoadReport
}

// LoadPriceBook 打开并解析调价表
func LoadPriceBook(path string, year int) (*PriceBook, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	book, err := ParsePriceBook(f, year)
	if book != nil {
		book.Report.File = path
	}
	return book, err
}

// ParsePriceBook 解析全部调价 Sheet，按 (月, 日, 次数) 顺序输出
func ParsePriceBook(f *excelize.File, year int) (*PriceBook, error) {
	start := time.Now()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	type datedSheet struct {
		name string
		date model.SheetDate
	}
	var dated []datedSheet
	book := &PriceBook{Report: &LoadReport{Source: model.SourcePrice}}

	for _, name := range sheets {
		d, ok := ParseSheetDate(name)
		if !ok {
			book.Skipped = append(book.Skipped, name)
			book.Report.Warnings = append(book.Report.Warnings, fmt.Sprintf("无法从 Sheet 名提取日期: %s", name))
			log.Warn().Str("sheet", name).Msg("无法从 Sheet 名提取日期，跳过")
			continue
		}
		dated = append(dated, datedSheet{name: name, date: d})
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].date.Less(dated[j].date) })

	seenDates := map[string]bool{}
	for _, ds := range dated {
		rows, err := f.GetRows(ds.name, excelize.Options{RawCellValue: true})
		if err != nil {
			book.Report.Warnings = append(book.Report.Warnings, fmt.Sprintf("读取 Sheet %s 失败: %v", ds.name, err))
			continue
		}
		date := time.Date(year, time.Month(ds.date.Month), ds.date.Day, 0, 0, 0, 0, time.Local)
		if date.Day() != ds.date.Day {
			book.Skipped = append(book.Skipped, ds.name)
			book.Report.Warnings = append(book.Report.Warnings, fmt.Sprintf("%d 年没有该日期: %s", year, ds.name))
			log.Warn().Str("sheet", ds.name).Int("year", year).Msg("Sheet 日期在该年份不存在，跳过")
			continue
		}
		dateStr := FormatDate(date)
		if !seenDates[dateStr] {
			seenDates[dateStr] = true
			book.Dates = append(book.Dates, date)
		}

		adjs, total := parsePriceRows(rows, dateStr, ds.date.Count)
		book.Report.TotalRows += total
		book.Adjustments = append(book.Adjustments, adjs...)
		log.Debug().Str("sheet", ds.name).Str("date", dateStr).Int("records", len(adjs)).Msg("调价 Sheet 解析完成")
	}

	book.Report.KeptRows = len(book.Adjustments)
	book.Report.Duration = time.Since(start)
	log.Info().
		Int("sheets", len(dated)).
		Int("skipped", len(book.Skipped)).
		Int("records", len(book.Adjustments)).
		Msg("调价表解析完成")
	return book, nil
}

// parsePriceRows 解析三个并排模板，只保留加工二厂价格；同一 Sheet 内按 (品名, 规格) 去重
func parsePriceRows(rows [][]string, date string, count int) ([]model.PriceAdjustment, int) {
	var out []model.PriceAdjustment
	seen := map[string]bool{}
	total := 0

	for t := 0; t < templateCount; t++ {
		base := t * templateWidth
		for i := 1; i < len(rows); i++ {
			row := rows[i]
			if len(row) <= base {
				continue
			}
			name := cell(row, base+offsetName)
			if name == "" {
				continue
			}
			total++
			if strings.Contains(name, "均价") || strings.Contains(name, "品名") {
				continue
			}
			// 先去重再判价格：首次出现的行即使无价格也占用该 (品名, 规格)
			spec := cell(row, base+offsetSpecification)
			key := name + "\x00" + spec
			if seen[key] {
				continue
			}
			seen[key] = true

			current := ParseFloat(cell(row, base+offsetPlant2Price))
			if math.IsNaN(current) || current == 0 {
				continue
			}

			adj := model.PriceAdjustment{
				AdjustmentDate:  date,
				ProductName:     name,
				Specification:   spec,
				AdjustmentCount: count,
				CurrentPrice:    current,
				Category:        cell(row, base+offsetCategory),
			}
			if prev := ParseFloat(cell(row, base+offsetPlant2Prev)); !math.IsNaN(prev) && prev != 0 {
				adj.PreviousPrice = &prev
				adj.PriceDifference = current - prev
			}
			out = append(out, adj)
		}
	}
	return out, total
}
