package model

// ImportSummary 一次导入的汇总结果
type ImportSummary struct {
	RunID           string         `json:"runId"`
	Products        int            `json:"products"`
	Metrics         int            `json:"metrics"`
	DroppedZeroRows int            `json:"droppedZeroRows"`
	Dates           int            `json:"dates"`
	Sources         map[string]int `json:"sources"` // 各源文件保留行数
}
