package filter

import (
	"strings"

	"github.com/samber/lo"
)

// Row 可按列名取值的行，第二个返回值表示该列是否存在
type Row interface {
	Get(column string) (string, bool)
}

// Matcher 判断单元格取值是否命中
type Matcher func(value string) bool

// In 去除首尾空白后精确匹配
func In(values ...string) Matcher {
	set := lo.SliceToMap(values, func(v string) (string, struct{}) { return v, struct{}{} })
	return func(value string) bool {
		_, ok := set[strings.TrimSpace(value)]
		return ok
	}
}

// InFold 去除首尾空白并转小写后匹配
func InFold(values ...string) Matcher {
	set := lo.SliceToMap(values, func(v string) (string, struct{}) { return strings.ToLower(v), struct{}{} })
	return func(value string) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(value))]
		return ok
	}
}

// Contains 包含子串
func Contains(sub string) Matcher {
	return func(value string) bool {
		return strings.Contains(value, sub)
	}
}

// Blank 空或仅包含空白
func Blank() Matcher {
	return func(value string) bool {
		return strings.TrimSpace(value) == ""
	}
}

// WhitespaceOnly 非空但只有空白字符（空单元格视为缺失，不命中）
func WhitespaceOnly() Matcher {
	return func(value string) bool {
		return value != "" && strings.TrimSpace(value) == ""
	}
}

// Any 任一命中即命中
func Any(ms ...Matcher) Matcher {
	return func(value string) bool {
		for _, m := range ms {
			if m(value) {
				return true
			}
		}
		return false
	}
}

// Rule 排除规则：命中 Exclude 的行被丢弃
type Rule struct {
	Name     string
	Columns  []string // 取第一个存在的列
	Exclude  Matcher
	Optional bool // 列不存在时跳过该规则
}

// value 取规则关注列的值
func (r Rule) value(row Row) (string, bool) {
	for _, col := range r.Columns {
		if v, ok := row.Get(col); ok {
			return v, true
		}
	}
	return "", false
}

// excludes 判断该行是否应被排除
func (r Rule) excludes(row Row) bool {
	v, ok := r.value(row)
	if !ok && r.Optional {
		return false
	}
	return r.Exclude(v)
}

// Rescue 特例回补：在 Prepare 之后记住命中的行，规则链执行完后补回名称已不存在的行
type Rescue struct {
	Name   string
	Column string
	Match  Matcher
}

// Chain 有序规则链
type Chain struct {
	Name    string
	Prepare []Rule // 在回补快照之前执行
	Rules   []Rule
	Rescue  *Rescue
}

// Stats 过滤统计
type Stats struct {
	Input   int            `json:"input"`
	Kept    int            `json:"kept"`
	Rescued int            `json:"rescued"`
	Dropped map[string]int `json:"dropped"`
}

// Apply 按顺序执行规则链
func Apply[T Row](c Chain, rows []T) ([]T, Stats) {
	stats := Stats{Input: len(rows), Dropped: map[string]int{}}

	kept := applyRules(c.Prepare, rows, stats.Dropped)

	var saved []T
	if c.Rescue != nil {
		saved = lo.Filter(kept, func(row T, _ int) bool {
			v, _ := row.Get(c.Rescue.Column)
			return c.Rescue.Match(v)
		})
	}

	kept = applyRules(c.Rules, kept, stats.Dropped)

	if c.Rescue != nil && len(saved) > 0 {
		present := lo.SliceToMap(kept, func(row T) (string, struct{}) {
			v, _ := row.Get(c.Rescue.Column)
			return v, struct{}{}
		})
		for _, row := range saved {
			v, _ := row.Get(c.Rescue.Column)
			if _, ok := present[v]; ok {
				continue
			}
			kept = append(kept, row)
			stats.Rescued++
		}
	}

	stats.Kept = len(kept)
	return kept, stats
}

func applyRules[T Row](rules []Rule, rows []T, dropped map[string]int) []T {
	out := rows
	for _, rule := range rules {
		next := make([]T, 0, len(out))
		for _, row := range out {
			if rule.excludes(row) {
				dropped[rule.Name]++
				continue
			}
			next = append(next, row)
		}
		out = next
	}
	return out
}

// KeepProductName 产品名称规则：非“鲜”开头，或属于凤肠
func KeepProductName(name string) bool {
	return !strings.HasPrefix(name, FreshKeyword) || strings.Contains(name, RescueKeyword)
}

// KeepCategory 分类规则；strict 为 true 时要求分类非空
func KeepCategory(category string, strict bool) bool {
	c := strings.TrimSpace(category)
	if c == "" {
		return !strict
	}
	return !lo.Contains(ExcludedCategories, c)
}
