package exporter

// ProgressEvent 导出进度（CLI 与 SSE 共用）
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage"`
}

// progress 单调递增的进度上报，相同百分比只上报一次
type progress struct {
	fn   func(ProgressEvent)
	last int
}

func newProgress(fn func(ProgressEvent)) *progress {
	return &progress{fn: fn, last: -1}
}

func (p *progress) report(percent int, stage string) {
	if p == nil || p.fn == nil {
		return
	}
	percent = max(0, min(100, percent))
	if percent <= p.last {
		return
	}
	p.last = percent
	p.fn(ProgressEvent{Percent: percent, Stage: stage})
}

// rows 把 [from, to) 区间按已写行数线性分配
func (p *progress) rows(from, to, done, total int, stage string) {
	if total <= 0 {
		return
	}
	p.report(from+(to-from)*done/total, stage)
}
