package quality

import (
	"time"

	"github.com/samber/lo"
)

// Level 质量等级
type Level string

const (
	LevelExcellent  Level = "excellent"
	LevelGood       Level = "good"
	LevelAcceptable Level = "acceptable"
	LevelPoor       Level = "poor"
	LevelCritical   Level = "critical"
)

// Label 中文等级名
func (l Level) Label() string {
	switch l {
	case LevelExcellent:
		return "优秀"
	case LevelGood:
		return "良好"
	case LevelAcceptable:
		return "合格"
	case LevelPoor:
		return "较差"
	default:
		return "严重"
	}
}

// Levels 等级阈值（下限）
type Levels struct {
	Excellent  float64
	Good       float64
	Acceptable float64
	Poor       float64
}

// Level 按分数定级
func (l Levels) Level(score float64) Level {
	switch {
	case score >= l.Excellent:
		return LevelExcellent
	case score >= l.Good:
		return LevelGood
	case score >= l.Acceptable:
		return LevelAcceptable
	case score >= l.Poor:
		return LevelPoor
	default:
		return LevelCritical
	}
}

// maxRecommendations 建议条数上限
const maxRecommendations = 10

// Report 数据质量报告
type Report struct {
	ReportID        string          `json:"report_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Datasets        []DatasetReport `json:"datasets"`
	TotalRecords    int             `json:"total_records"`
	OverallScore    float64         `json:"overall_score"`
	Scores          Scores          `json:"scores"`
	Level           Level           `json:"level"`
	IssueCount      int             `json:"issue_count"`
	CriticalIssues  int             `json:"critical_issues"`
	Recommendations []string        `json:"recommendations"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// ReportID QR_YYYYmmdd_HHMMSS
func ReportID(t time.Time) string {
	return "QR_" + t.Format("20060102_150405")
}

// Report 汇总多个数据集：总分按记录数加权
func (m *Monitor) Report(datasets []DatasetReport) *Report {
	now := m.opts.Now()
	rep := &Report{
		ReportID:  ReportID(now),
		Timestamp: now,
		Datasets:  datasets,
	}

	var weighted Scores
	for _, d := range datasets {
		rep.TotalRecords += d.Records
		rep.IssueCount += len(d.Issues)
		rep.CriticalIssues += lo.CountBy(d.Issues, func(i Issue) bool { return i.Severity == SeverityCritical })

		w := float64(d.Records)
		rep.OverallScore += d.Score * w
		weighted.Completeness += d.Scores.Completeness * w
		weighted.Accuracy += d.Scores.Accuracy * w
		weighted.Consistency += d.Scores.Consistency * w
		weighted.Validity += d.Scores.Validity * w
	}
	if rep.TotalRecords > 0 {
		n := float64(rep.TotalRecords)
		rep.OverallScore /= n
		rep.Scores = Scores{
			Completeness: weighted.Completeness / n,
			Accuracy:     weighted.Accuracy / n,
			Consistency:  weighted.Consistency / n,
			Validity:     weighted.Validity / n,
		}
	}
	rep.Level = m.opts.Levels.Level(rep.OverallScore)
	rep.Recommendations = recommendations(rep)
	return rep
}

// recommendations 依次按总体等级、维度分数、问题类型给出建议
func recommendations(rep *Report) []string {
	var out []string
	switch rep.Level {
	case LevelCritical, LevelPoor:
		out = append(out,
			"数据质量严重不达标，建议立即启动数据质量改进计划",
			"优先处理所有 critical 级别的数据质量问题")
	case LevelAcceptable:
		out = append(out, "数据质量需要改进，建议制定系统性的质量提升方案")
	case LevelGood:
		out = append(out, "数据质量良好，建议继续保持并优化细节问题")
	default:
		out = append(out, "数据质量优秀，建议建立最佳实践标准")
	}

	if rep.TotalRecords > 0 {
		if rep.Scores.Completeness < 0.8 {
			out = append(out, "完整性问题突出，建议检查数据录入流程和必填字段验证")
		}
		if rep.Scores.Accuracy < 0.8 {
			out = append(out, "准确性需要提升，建议加强数据验证规则和异常值检测")
		}
		if rep.Scores.Consistency < 0.8 {
			out = append(out, "一致性问题较多，建议统一数据格式和清理重复记录")
		}
		if rep.Scores.Validity < 0.8 {
			out = append(out, "有效性检查发现问题，建议完善业务规则验证")
		}
	}

	types := map[string]bool{}
	for _, d := range rep.Datasets {
		for _, i := range d.Issues {
			types[i.Type] = true
		}
	}
	byType := []struct {
		typ string
		msg string
	}{
		{IssueEmptyDataset, "存在空数据集，建议确认 ERP 导出范围"},
		{IssueMissingRequired, "发现必填字段缺失，建议在数据录入界面增加必填验证"},
		{IssueOutOfRange, "发现数值超出合理范围，建议设置数据录入的范围限制"},
		{IssueExtremeValue, "发现极端数值，建议核对计量单位"},
		{IssueOutlier, "统计异常检测发现离群值，建议检查数据录入的准确性"},
		{IssueDuplicate, "发现重复记录，建议实施去重策略和唯一性约束"},
		{IssueWhitespace, "发现仅含空白的字段，建议导出前统一清洗"},
		{IssueBusinessRule, "发现应被过滤的鲜品记录，建议确认产品过滤规则"},
		{IssueFutureDate, "发现未来日期，建议核对单据日期"},
	}
	for _, t := range byType {
		if types[t.typ] {
			out = append(out, t.msg)
		}
	}

	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
