package parser

import (
	"math"
	"testing"
)

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" 物料名称 ":   "物料名称",
		"本币\n无税金额": "本币无税金额",
		"　结存　":     "结存",
		"客户 名称":    "客户名称",
	}
	for in, want := range cases {
		if got := NormalizeColumnName(in); got != want {
			t.Fatalf("NormalizeColumnName(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	t.Parallel()

	if v := ParseFloat("1,234.5"); v != 1234.5 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := ParseFloat("12%"); v != 12 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := ParseFloat("abc"); !math.IsNaN(v) {
		t.Fatalf("expected NaN, got %v", v)
	}
	if v := FloatOrZero(""); v != 0 {
		t.Fatalf("expected 0, got %v", v)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"45809", "2025-06-01", true},
		{"2025-06-01", "2025-06-01", true},
		{"2025/6/1", "2025-06-01", true},
		{"2025/06/01 08:30:00", "2025-06-01", true},
		{"2025年6月1日", "2025-06-01", true},
		{"20250601", "2025-06-01", true},
		{"", "", false},
		{"not a date", "", false},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		if ok != c.ok {
			t.Fatalf("ParseDate(%q) ok=%v, want %v", c.in, ok, c.ok)
		}
		if ok && FormatDate(got) != c.want {
			t.Fatalf("ParseDate(%q)=%s, want %s", c.in, FormatDate(got), c.want)
		}
	}
}

func TestParseSheetDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		month int
		day   int
		count int
		ok    bool
	}{
		{"价格表4月2号", 4, 2, 1, true},
		{"价格表4月2号（2）", 4, 2, 2, true},
		{"价格表12月31号（3）", 12, 31, 3, true},
		{"5.6", 5, 6, 1, true},
		{"5.6(2)", 5, 6, 2, true},
		{"汇总", 0, 0, 0, false},
		{"价格表13月2号", 0, 0, 0, false},
		{"价格表2月30号", 0, 0, 0, false},
		{"4.31", 0, 0, 0, false},
		{"价格表2月29号", 2, 29, 1, true},
	}
	for _, c := range cases {
		got, ok := ParseSheetDate(c.name)
		if ok != c.ok {
			t.Fatalf("ParseSheetDate(%q) ok=%v, want %v", c.name, ok, c.ok)
		}
		if !ok {
			continue
		}
		if got.Month != c.month || got.Day != c.day || got.Count != c.count {
			t.Fatalf("ParseSheetDate(%q)=%+v", c.name, got)
		}
	}
}
