package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"springsnow/internal/config"
	"springsnow/internal/metrics"
	"springsnow/internal/model"
	"springsnow/internal/parser"
)

var fixedNow = time.Date(2025, 7, 1, 8, 9, 10, 0, time.Local)

func newMonitor(t *testing.T) (*Monitor, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	opts := OptionsFromConfig(config.DefaultConfig().Quality)
	opts.Now = func() time.Time { return fixedNow }
	opts.Metrics = m
	return NewMonitor(opts), m
}

func record(row int, values map[string]string) parser.Record {
	return parser.Record{Row: row, Values: values}
}

func TestSeverityFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ratio float64
		want  Severity
	}{
		{0, SeverityLow},
		{0.049, SeverityLow},
		{0.05, SeverityMedium},
		{0.2, SeverityHigh},
		{0.49, SeverityHigh},
		{0.5, SeverityCritical},
		{1, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFor(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	l := OptionsFromConfig(config.DefaultConfig().Quality).Levels
	assert.Equal(t, LevelExcellent, l.Level(0.95))
	assert.Equal(t, LevelGood, l.Level(0.9))
	assert.Equal(t, LevelAcceptable, l.Level(0.70))
	assert.Equal(t, LevelPoor, l.Level(0.5))
	assert.Equal(t, LevelCritical, l.Level(0.49))
	assert.Equal(t, "优秀", LevelExcellent.Label())
}

func TestCheck_CleanDataset(t *testing.T) {
	t.Parallel()

	mon, m := newMonitor(t)
	cols := []string{"发票日期", "物料名称", "主数量"}
	var records []parser.Record
	for i := 0; i < 4; i++ {
		records = append(records, record(i+2, map[string]string{
			"发票日期": "2025-06-01",
			"物料名称": fmt.Sprintf("鸡翅%d", i),
			"主数量":  fmt.Sprint(100 * (i + 1)),
		}))
	}

	rep := mon.Check("sales", records, cols)
	assert.Empty(t, rep.Issues)
	assert.Equal(t, Scores{Completeness: 1, Accuracy: 1, Consistency: 1, Validity: 1}, rep.Scores)
	assert.Equal(t, 1.0, rep.Score)
	assert.Equal(t, LevelExcellent, rep.Level)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QualityScore.WithLabelValues("sales")))
}

func TestCheck_FreshRuleOnlyOnProductName(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)
	cols := []string{"发票日期", "客户名称", "物料分类名称", "物料名称", "主数量"}
	records := []parser.Record{
		record(2, map[string]string{
			"发票日期": "2025-06-01", "客户名称": "鲜品", "物料分类名称": "生鲜品其他",
			"物料名称": "鸡翅", "主数量": "100",
		}),
		record(3, map[string]string{
			"发票日期": "2025-06-02", "客户名称": "经销商", "物料分类名称": "分割品",
			"物料名称": "鸡爪", "主数量": "200",
		}),
	}

	rep := mon.Check("sales", records, cols)
	for _, issue := range rep.Issues {
		assert.NotEqual(t, IssueBusinessRule, issue.Type, "column %s", issue.Column)
	}
	assert.Equal(t, 1.0, rep.Scores.Validity)

	records[1].Values["物料名称"] = "鲜鸡腿"
	rep = mon.Check("sales", records, cols)
	issue, ok := lo.Find(rep.Issues, func(i Issue) bool { return i.Type == IssueBusinessRule })
	require.True(t, ok)
	assert.Equal(t, "物料名称", issue.Column)
	assert.Equal(t, 0.5, rep.Scores.Validity)
}

// productionFixture 200 行入库记录，每一维各埋入少量问题
func productionFixture() ([]parser.Record, []string) {
	cols := []string{"单据编号", "入库日期", "物料名称", "主数量"}
	records := make([]parser.Record, 200)
	for i := range records {
		v := map[string]string{
			"单据编号": fmt.Sprintf("NO-%03d", i),
			"入库日期": "2025-06-01",
			"物料名称": "鸡大胸",
			"主数量":  "10",
		}
		switch i {
		case 0:
			v["主数量"] = "100000"
		case 1:
			v["主数量"] = "-5"
		case 2:
			v["物料名称"] = "鲜鸡腿"
		case 3:
			v["物料名称"] = "鲜凤肠"
		case 4:
			v["入库日期"] = "2030-01-01"
		case 5:
			v["物料名称"] = ""
		case 7:
			v["单据编号"] = "NO-006"
		case 8:
			v["物料名称"] = "  "
		}
		records[i] = record(i+2, v)
	}
	return records, cols
}

func TestCheck_DetectsIssues(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)
	records, cols := productionFixture()
	rep := mon.Check("production", records, cols)

	byType := lo.KeyBy(rep.Issues, func(i Issue) string { return i.Type })
	require.Len(t, rep.Issues, 8)
	for _, typ := range []string{
		IssueMissingRequired, IssueOutOfRange, IssueExtremeValue, IssueOutlier,
		IssueDuplicate, IssueWhitespace, IssueBusinessRule, IssueFutureDate,
	} {
		issue, ok := byType[typ]
		require.True(t, ok, "missing issue %s", typ)
		assert.Equal(t, 1, issue.Affected, typ)
		assert.Equal(t, SeverityLow, issue.Severity, typ)
	}
	assert.Equal(t, "物料名称", byType[IssueMissingRequired].Column)
	assert.Equal(t, "主数量", byType[IssueOutlier].Column)
	assert.Equal(t, Validity, byType[IssueFutureDate].Dimension)

	assert.InDelta(t, 0.005, rep.NullRatios["物料名称"], 1e-9)
	assert.InDelta(t, 1-1.0/800, rep.Scores.Completeness, 1e-9)
	assert.InDelta(t, 0.99, rep.Scores.Accuracy, 1e-9)
	assert.InDelta(t, 1-1.0/200-1.0/800, rep.Scores.Consistency, 1e-9)
	assert.InDelta(t, 0.99, rep.Scores.Validity, 1e-9)
	assert.InDelta(t, 0.993125, rep.Score, 1e-9)
	assert.Equal(t, LevelExcellent, rep.Level)
}

func TestCheck_EmptyAndMissingColumns(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)

	empty := mon.Check("sales", nil, []string{"物料名称"})
	require.Len(t, empty.Issues, 1)
	assert.Equal(t, IssueEmptyDataset, empty.Issues[0].Type)
	assert.Equal(t, LevelCritical, empty.Level)

	rep := mon.Check("sales", []parser.Record{
		record(2, map[string]string{"物料名称": "鸡翅", "主数量": "1"}),
		record(3, map[string]string{"物料名称": "鸡爪", "主数量": "2"}),
	}, nil)
	assert.Equal(t, []string{"主数量", "物料名称"}, rep.Columns)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, IssueMissingRequired, rep.Issues[0].Type)
	assert.Equal(t, "发票日期", rep.Issues[0].Column)
	assert.Equal(t, SeverityCritical, rep.Issues[0].Severity)
}

func TestReport_WeightsByRecords(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)
	uniform := func(v float64) Scores { return Scores{v, v, v, v} }
	rep := mon.Report([]DatasetReport{
		{Name: "inventory", Records: 100, Scores: uniform(0.9), Score: 0.9},
		{Name: "sales", Records: 300, Scores: uniform(0.5), Score: 0.5, Issues: []Issue{
			{Type: IssueDuplicate, Severity: SeverityCritical},
		}},
	})

	assert.Equal(t, "QR_20250701_080910", rep.ReportID)
	assert.Equal(t, 400, rep.TotalRecords)
	assert.InDelta(t, 0.6, rep.OverallScore, 1e-9)
	assert.InDelta(t, 0.6, rep.Scores.Accuracy, 1e-9)
	assert.Equal(t, LevelPoor, rep.Level)
	assert.Equal(t, 1, rep.IssueCount)
	assert.Equal(t, 1, rep.CriticalIssues)
	assert.Equal(t, []string{
		"数据质量严重不达标，建议立即启动数据质量改进计划",
		"优先处理所有 critical 级别的数据质量问题",
		"完整性问题突出，建议检查数据录入流程和必填字段验证",
		"准确性需要提升，建议加强数据验证规则和异常值检测",
		"一致性问题较多，建议统一数据格式和清理重复记录",
		"有效性检查发现问题，建议完善业务规则验证",
		"发现重复记录，建议实施去重策略和唯一性约束",
	}, rep.Recommendations)
}

func TestReport_CapsRecommendations(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)
	var issues []Issue
	for _, typ := range []string{IssueMissingRequired, IssueOutOfRange, IssueExtremeValue, IssueOutlier, IssueDuplicate, IssueWhitespace} {
		issues = append(issues, Issue{Type: typ, Severity: SeverityLow})
	}
	rep := mon.Report([]DatasetReport{{Name: "sales", Records: 10, Issues: issues}})
	assert.Equal(t, LevelCritical, rep.Level)
	assert.Len(t, rep.Recommendations, maxRecommendations)
}

func TestExport(t *testing.T) {
	t.Parallel()

	mon, _ := newMonitor(t)
	records, cols := productionFixture()
	rep := mon.Report([]DatasetReport{mon.Check("production", records, cols)})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rep))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "QR_20250701_080910", decoded["report_id"])
	assert.Equal(t, "excellent", decoded["level"])
	assert.Contains(t, buf.String(), IssueBusinessRule)

	buf.Reset()
	require.NoError(t, WriteHTML(&buf, rep))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "QR_20250701_080910", doc.Find("#report-id").Text())
	assert.Equal(t, "99.3%", strings.TrimSpace(doc.Find("#overall-score").Text()))
	assert.Equal(t, 2, doc.Find("#datasetTable tr").Length())
	assert.Equal(t, 8, doc.Find("#issueTable tr.severity-low").Length())
	assert.Equal(t, len(rep.Recommendations), doc.Find("#recommendations li").Length())

	dir := t.TempDir()
	jsonPath, htmlPath, err := Save(dir, rep)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quality_report_QR_20250701_080910.json"), jsonPath)
	assert.FileExists(t, htmlPath)
}

func TestRun_SkipsMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inv := filepath.Join(dir, "收发存汇总表查询.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"物料名称", "物料分类名称", "入库", "出库", "结存"},
		{"鸡大胸", "分割品", 1000, 800, 200},
		{"鸡翅", "分割品", 500, 400, 100},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, f.SaveAs(inv))
	require.NoError(t, f.Close())

	mon, _ := newMonitor(t)
	rep, err := mon.Run(context.Background(), []Source{
		{Name: "inventory", Path: inv},
		{Name: "production", Path: filepath.Join(dir, "missing.xlsx")},
	})
	require.NoError(t, err)
	require.Len(t, rep.Datasets, 1)
	assert.Equal(t, 2, rep.Datasets[0].Records)
	assert.Equal(t, 1.0, rep.Datasets[0].Score)
	assert.Len(t, rep.Warnings, 1)
	require.NotNil(t, rep.Datasets[0].Detected)
	assert.Equal(t, model.SourceInventory, rep.Datasets[0].Detected.Source)

	rep, err = mon.Run(context.Background(), []Source{{Name: "sales", Path: inv}})
	require.NoError(t, err)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "表头更像 inventory")

	_, err = mon.Run(context.Background(), []Source{{Name: "sales", Path: filepath.Join(dir, "nope.xlsx")}})
	assert.Error(t, err)
}

func TestSourcesFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Sources.ExcelDir = "in"
	srcs := SourcesFromConfig(cfg)
	require.Len(t, srcs, 3)
	assert.Equal(t, filepath.Join("in", "销售发票执行查询.xlsx"), srcs[2].Path)
	_, err := os.Stat(srcs[0].Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRatioDataQuality(t *testing.T) {
	t.Parallel()

	sales := []model.SalesRecord{{QuantityKg: 800}}
	inv := []model.InventoryItem{{Production: 1000}}

	assert.Equal(t, 1.0, RatioDataQuality(sales, inv))
	assert.Equal(t, 0.85, RatioDataQuality(nil, inv))
	assert.Equal(t, 0.88, RatioDataQuality([]model.SalesRecord{{QuantityKg: -1}, {QuantityKg: 800}}, inv))
	assert.Equal(t, 0.85, RatioDataQuality([]model.SalesRecord{{QuantityKg: 100000}}, inv))
}
