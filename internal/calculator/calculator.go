package calculator

// 产销率与周转的默认口径
const (
	DefaultRatioClip         = 500.0
	DefaultImporterRatioClip = 1000.0
	DefaultAbnormalLow       = 0.0
	DefaultAbnormalHigh      = 200.0
	DefaultRatioWarning      = 150.0
	DefaultTurnoverCapDays   = 365.0
	DefaultTaxRate           = 1.09
	DefaultMinPriceDiff      = 200.0
)

// Thresholds 产销率异常与预警阈值（%）
type Thresholds struct {
	Clip         float64 `json:"clip"`
	AbnormalLow  float64 `json:"abnormalLow"`
	AbnormalHigh float64 `json:"abnormalHigh"`
	Warning      float64 `json:"warning"`
}

// DefaultThresholds 报表默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		Clip:         DefaultRatioClip,
		AbnormalLow:  DefaultAbnormalLow,
		AbnormalHigh: DefaultAbnormalHigh,
		Warning:      DefaultRatioWarning,
	}
}

// IsAbnormal 产销率超出 [AbnormalLow, AbnormalHigh]
func (t Thresholds) IsAbnormal(ratio float64) bool {
	return ratio < t.AbnormalLow || ratio > t.AbnormalHigh
}

// IsWarning 产销率高于预警线
func (t Thresholds) IsWarning(ratio float64) bool {
	return ratio > t.Warning
}

// Class 报表中的样式类：异常 abnormal，预警 warning
func (t Thresholds) Class(ratio float64) string {
	switch {
	case t.IsAbnormal(ratio):
		return "abnormal"
	case t.IsWarning(ratio):
		return "warning"
	default:
		return ""
	}
}

// IsAbnormal 使用默认阈值判断
func IsAbnormal(ratio float64) bool {
	return DefaultThresholds().IsAbnormal(ratio)
}

// IsWarning 使用默认阈值判断
func IsWarning(ratio float64) bool {
	return DefaultThresholds().IsWarning(ratio)
}
