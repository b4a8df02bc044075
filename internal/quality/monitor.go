package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"springsnow/internal/config"
	"springsnow/internal/filter"
	"springsnow/internal/metrics"
	"springsnow/internal/parser"
)

// Dimension 质量维度
type Dimension string

const (
	Completeness Dimension = "completeness"
	Accuracy     Dimension = "accuracy"
	Consistency  Dimension = "consistency"
	Validity     Dimension = "validity"
)

// Severity 问题严重程度
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// 问题类型
const (
	IssueEmptyDataset    = "empty_dataset"
	IssueMissingRequired = "missing_required_data"
	IssueOutOfRange      = "value_out_of_range"
	IssueExtremeValue    = "extreme_value"
	IssueOutlier         = "statistical_outlier"
	IssueDuplicate       = "duplicate_records"
	IssueWhitespace      = "whitespace_only"
	IssueBusinessRule    = "business_rule_violation"
	IssueFutureDate      = "future_date"
)

// 非负列关键字：数量、金额、单价类列出现负数视为越界
var nonNegativeKeywords = []string{"数量", "入库", "出库", "结存", "单价", "金额"}

// DefaultRequired 各源文件的必填列（规范化后的表头）
var DefaultRequired = map[string][]string{
	"inventory":  {"物料名称"},
	"production": {"入库日期", "物料名称", "主数量"},
	"sales":      {"发票日期", "物料名称", "主数量"},
}

// Issue 单个数据质量问题
type Issue struct {
	Type        string    `json:"type"`
	Dimension   Dimension `json:"dimension"`
	Severity    Severity  `json:"severity"`
	Dataset     string    `json:"dataset"`
	Column      string    `json:"column"`
	Affected    int       `json:"affected_records"`
	Ratio       float64   `json:"ratio"`
	Description string    `json:"description"`
	Action      string    `json:"suggested_action"`
}

// Scores 四维评分
type Scores struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Validity     float64 `json:"validity"`
}

// Mean 四维平均
func (s Scores) Mean() float64 {
	return (s.Completeness + s.Accuracy + s.Consistency + s.Validity) / 4
}

// DatasetReport 单个数据集的检查结果
type DatasetReport struct {
	Name       string             `json:"name"`
	Records    int                `json:"records"`
	Columns    []string           `json:"columns"`
	NullRatios map[string]float64 `json:"null_ratios"`
	Scores     Scores             `json:"scores"`
	Score      float64            `json:"score"`
	Level      Level              `json:"level"`
	Issues     []Issue            `json:"issues"`
	// 按表头识别出的源表类型，仅 CheckFile 填写
	Detected *parser.SheetRecognitionResult `json:"detected,omitempty"`
}

// Options 监控参数
type Options struct {
	ZScoreThreshold float64
	IQRMultiplier   float64
	Levels          Levels
	Required        map[string][]string
	Now             func() time.Time
	Metrics         *metrics.Metrics
}

// OptionsFromConfig 从配置构造监控参数
func OptionsFromConfig(cfg config.QualityConfig) Options {
	return Options{
		ZScoreThreshold: cfg.ZScoreThreshold,
		IQRMultiplier:   cfg.IQRMultiplier,
		Levels: Levels{
			Excellent:  cfg.Excellent,
			Good:       cfg.Good,
			Acceptable: cfg.Acceptable,
			Poor:       cfg.Poor,
		},
		Required: DefaultRequired,
	}
}

// Monitor 数据质量监控
type Monitor struct {
	opts       Options
	metrics    *metrics.Metrics
	recognizer *parser.SheetRecognizer
}

// NewMonitor 创建监控器，未设置的参数取默认值
func NewMonitor(opts Options) *Monitor {
	def := OptionsFromConfig(config.DefaultConfig().Quality)
	if opts.ZScoreThreshold <= 0 {
		opts.ZScoreThreshold = def.ZScoreThreshold
	}
	if opts.IQRMultiplier <= 0 {
		opts.IQRMultiplier = def.IQRMultiplier
	}
	if opts.Levels == (Levels{}) {
		opts.Levels = def.Levels
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default
	}
	return &Monitor{opts: opts, metrics: m, recognizer: parser.NewSheetRecognizer()}
}

// SeverityFor 按受影响比例定级
func SeverityFor(ratio float64) Severity {
	switch {
	case ratio >= 0.5:
		return SeverityCritical
	case ratio >= 0.2:
		return SeverityHigh
	case ratio >= 0.05:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Check 检查一个数据集；columns 为空时取记录中出现的全部列
func (m *Monitor) Check(name string, records []parser.Record, columns []string) DatasetReport {
	if len(columns) == 0 {
		columns = columnsOf(records)
	}
	rep := DatasetReport{
		Name:       name,
		Records:    len(records),
		Columns:    columns,
		NullRatios: make(map[string]float64, len(columns)),
		Issues:     []Issue{},
	}

	if len(records) == 0 {
		rep.Issues = append(rep.Issues, Issue{
			Type:        IssueEmptyDataset,
			Dimension:   Completeness,
			Severity:    SeverityCritical,
			Dataset:     name,
			Column:      "all",
			Ratio:       1,
			Description: "数据集为空",
			Action:      "确认导出文件是否包含数据",
		})
		rep.Level = m.opts.Levels.Level(0)
		m.metrics.QualityScore.WithLabelValues(name).Set(0)
		return rep
	}

	c := &checker{m: m, name: name, records: records, columns: columns, rep: &rep}
	rep.Scores = Scores{
		Completeness: c.completeness(),
		Accuracy:     c.accuracy(),
		Consistency:  c.consistency(),
		Validity:     c.validity(),
	}
	rep.Score = rep.Scores.Mean()
	rep.Level = m.opts.Levels.Level(rep.Score)

	m.metrics.QualityScore.WithLabelValues(name).Set(rep.Score)
	log.Info().
		Str("dataset", name).
		Int("records", rep.Records).
		Float64("score", rep.Score).
		Str("level", string(rep.Level)).
		Int("issues", len(rep.Issues)).
		Msg("数据质量检查完成")
	return rep
}

type checker struct {
	m       *Monitor
	name    string
	records []parser.Record
	columns []string
	rep     *DatasetReport
}

func (c *checker) issue(typ string, dim Dimension, column string, affected int, desc, action string) {
	ratio := float64(affected) / float64(len(c.records))
	c.rep.Issues = append(c.rep.Issues, Issue{
		Type:        typ,
		Dimension:   dim,
		Severity:    SeverityFor(ratio),
		Dataset:     c.name,
		Column:      column,
		Affected:    affected,
		Ratio:       ratio,
		Description: desc,
		Action:      action,
	})
}

// completeness 非空单元格占比，必填列缺失单独报告
func (c *checker) completeness() float64 {
	total := len(c.records) * len(c.columns)
	if total == 0 {
		return 1
	}
	empty := 0
	for _, col := range c.columns {
		n := 0
		for _, r := range c.records {
			if r.Value(col) == "" {
				n++
			}
		}
		empty += n
		c.rep.NullRatios[col] = float64(n) / float64(len(c.records))
	}

	for _, col := range c.m.opts.Required[c.name] {
		if !lo.Contains(c.columns, col) {
			c.rep.Issues = append(c.rep.Issues, Issue{
				Type:        IssueMissingRequired,
				Dimension:   Completeness,
				Severity:    SeverityCritical,
				Dataset:     c.name,
				Column:      col,
				Affected:    len(c.records),
				Ratio:       1,
				Description: fmt.Sprintf("缺少必填列 '%s'", col),
				Action:      "检查导出模板是否包含该列",
			})
			continue
		}
		ratio := c.rep.NullRatios[col]
		if ratio > 0 {
			n := int(math.Round(ratio * float64(len(c.records))))
			c.issue(IssueMissingRequired, Completeness, col, n,
				fmt.Sprintf("必填字段 '%s' 有 %d 个空值 (%.1f%%)", col, n, ratio*100),
				fmt.Sprintf("检查 %s 字段的数据录入流程", col))
		}
	}
	return clamp01(1 - float64(empty)/float64(total))
}

// accuracy 负数、极端值与统计离群值
func (c *checker) accuracy() float64 {
	cells, flagged := 0, 0
	for _, col := range c.columns {
		if isDateColumn(col) {
			continue
		}
		vals := c.numeric(col)
		if len(vals) == 0 {
			continue
		}
		cells += len(vals)
		bad := make([]bool, len(vals))

		if parser.ContainsAny(col, nonNegativeKeywords) {
			n := 0
			for i, v := range vals {
				if v < 0 {
					bad[i] = true
					n++
				}
			}
			if n > 0 {
				c.issue(IssueOutOfRange, Accuracy, col, n,
					fmt.Sprintf("列 '%s' 有 %d 个负值", col, n),
					fmt.Sprintf("检查 %s 列的数据录入，确保值在合理范围内", col))
			}
		}

		if len(vals) > 10 {
			c.distribution(col, vals, bad)
		}

		flagged += lo.Count(bad, true)
	}
	if cells == 0 {
		return 1
	}
	return clamp01(1 - float64(flagged)/float64(cells))
}

// distribution 极端值（> p99×10）与 z-score、IQR 同时判定的离群值
func (c *checker) distribution(col string, vals []float64, bad []bool) {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	p99 := stat.Quantile(0.99, stat.LinInterp, sorted, nil)
	if p99 > 0 {
		n := 0
		for i, v := range vals {
			if v > p99*10 {
				bad[i] = true
				n++
			}
		}
		if n > 0 {
			c.issue(IssueExtremeValue, Accuracy, col, n,
				fmt.Sprintf("列 '%s' 有 %d 个值超过 P99 的 10 倍", col, n),
				fmt.Sprintf("核对 %s 列的单位与录入", col))
		}
	}

	mean, std := stat.PopMeanStdDev(vals, nil)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	k := c.m.opts.IQRMultiplier * (q3 - q1)
	lower, upper := q1-k, q3+k

	zCount, iqrCount, both := 0, 0, 0
	for i, v := range vals {
		z := std > 0 && math.Abs(v-mean)/std > c.m.opts.ZScoreThreshold
		q := v < lower || v > upper
		if z {
			zCount++
		}
		if q {
			iqrCount++
		}
		if z && q {
			bad[i] = true
			both++
		}
	}
	if both > 0 {
		c.issue(IssueOutlier, Accuracy, col, both,
			fmt.Sprintf("列 '%s' 检测到 %d 个统计异常值 (z-score %d, IQR %d)", col, both, zCount, iqrCount),
			fmt.Sprintf("检查 %s 列的异常值，确认是否为数据录入错误", col))
	}
}

// numeric 列中可解析为数值的单元格；存在非数值内容时整列不视为数值列
func (c *checker) numeric(col string) []float64 {
	var vals []float64
	for _, r := range c.records {
		s := strings.TrimSpace(r.Value(col))
		if s == "" {
			continue
		}
		v := parser.ParseFloat(s)
		if math.IsNaN(v) {
			return nil
		}
		vals = append(vals, v)
	}
	return vals
}

// consistency 重复行与纯空白字符串
func (c *checker) consistency() float64 {
	seen := make(map[string]struct{}, len(c.records))
	dup := 0
	for _, r := range c.records {
		parts := make([]string, len(c.columns))
		for i, col := range c.columns {
			parts[i] = r.Value(col)
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := seen[key]; ok {
			dup++
			continue
		}
		seen[key] = struct{}{}
	}
	if dup > 0 {
		ratio := float64(dup) / float64(len(c.records))
		c.issue(IssueDuplicate, Consistency, "all", dup,
			fmt.Sprintf("发现 %d 条重复记录 (%.1f%%)", dup, ratio*100),
			"删除重复记录或检查数据录入流程")
	}

	blank := 0
	for _, col := range c.columns {
		n := 0
		for _, r := range c.records {
			v := r.Value(col)
			if v != "" && strings.TrimSpace(v) == "" {
				n++
			}
		}
		if n > 0 {
			blank += n
			c.issue(IssueWhitespace, Consistency, col, n,
				fmt.Sprintf("列 '%s' 有 %d 个仅含空白的值", col, n),
				"清理空白字符或在导出前统一为空值")
		}
	}

	total := len(c.records) * len(c.columns)
	score := 1 - float64(dup)/float64(len(c.records))
	if total > 0 {
		score -= float64(blank) / float64(total)
	}
	return clamp01(score)
}

// validity 含“鲜”的产品名（凤肠除外）与未来日期
func (c *checker) validity() float64 {
	invalid := make(map[int]struct{})
	today := c.m.opts.Now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)

	for _, col := range c.columns {
		switch {
		case isNameColumn(col):
			n := 0
			for i, r := range c.records {
				if isFreshName(strings.TrimSpace(r.Value(col))) {
					invalid[i] = struct{}{}
					n++
				}
			}
			if n > 0 {
				c.issue(IssueBusinessRule, Validity, col, n,
					fmt.Sprintf("发现 %d 个应被过滤的 '%s' 类产品", n, filter.FreshKeyword),
					fmt.Sprintf("检查产品过滤规则，确保 '%s' 类产品被正确处理", filter.FreshKeyword))
			}
		case isDateColumn(col):
			n := 0
			for i, r := range c.records {
				t, ok := parser.ParseDate(r.Value(col))
				if ok && t.After(today) {
					invalid[i] = struct{}{}
					n++
				}
			}
			if n > 0 {
				c.issue(IssueFutureDate, Validity, col, n,
					fmt.Sprintf("列 '%s' 有 %d 个未来日期", col, n),
					"核对单据日期或系统时间")
			}
		}
	}
	return clamp01(1 - float64(len(invalid))/float64(len(c.records)))
}

func isFreshName(name string) bool {
	return strings.Contains(name, filter.FreshKeyword) && !strings.Contains(name, filter.RescueKeyword)
}

// isNameColumn 只看产品名列，客户名称与物料分类名称不参与“鲜”品校验
func isNameColumn(col string) bool {
	switch col {
	case filter.ColMaterialName, "商品名称", "品名":
		return true
	}
	return false
}

func isDateColumn(col string) bool {
	return strings.Contains(col, "日期")
}

func columnsOf(records []parser.Record) []string {
	set := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Values {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
