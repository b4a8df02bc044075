package filter

import (
	"strings"
	"testing"
)

type testRow map[string]string

func (r testRow) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

func names(rows []testRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[ColMaterialName])
	}
	return out
}

func TestInventoryChain_RescuesFengChang(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸", ColCustomer: "经销商", ColMaterialCategory: "分割品"},
		{ColMaterialName: "", ColCustomer: "经销商", ColMaterialCategory: "分割品"},
		{ColMaterialName: "鲜鸡腿", ColCustomer: "经销商", ColMaterialCategory: "分割品"},
		{ColMaterialName: "鸡架", ColCustomer: "副产品", ColMaterialCategory: "分割品"},
		{ColMaterialName: "鸡肝", ColCustomer: "经销商", ColMaterialCategory: "副产品"},
		{ColMaterialName: "鸡心", ColCustomer: "经销商", ColMaterialCategory: ""},
		{ColMaterialName: "鲜凤肠", ColCustomer: "鲜品", ColMaterialCategory: "生鲜品其他"},
		{ColMaterialName: "凤肠礼盒", ColCustomer: "经销商", ColMaterialCategory: "深加工"},
	}

	kept, stats := Apply(InventoryChain(), rows)

	got := strings.Join(names(kept), ",")
	want := "鸡大胸,凤肠礼盒,鲜凤肠"
	if got != want {
		t.Fatalf("kept=%s, want %s", got, want)
	}
	if stats.Input != 8 || stats.Kept != 3 || stats.Rescued != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Dropped["blank_name"] != 1 || stats.Dropped["customer"] != 2 || stats.Dropped["category"] != 2 || stats.Dropped["fresh_name"] != 1 {
		t.Fatalf("unexpected dropped: %+v", stats.Dropped)
	}
}

func TestInventoryChain_OptionalColumnsAbsent(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸"},
		{ColMaterialName: "鲜鸡翅"},
	}
	kept, _ := Apply(InventoryChain(), rows)
	if len(kept) != 1 || kept[0][ColMaterialName] != "鸡大胸" {
		t.Fatalf("unexpected kept: %v", names(kept))
	}
}

func TestInventoryChain_EmptyCustomerKept(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸", ColCustomer: ""},
		{ColMaterialName: "鸡小胸", ColCustomer: "  "},
	}
	kept, _ := Apply(InventoryChain(), rows)
	if len(kept) != 1 || kept[0][ColMaterialName] != "鸡大胸" {
		t.Fatalf("unexpected kept: %v", names(kept))
	}
}

func TestSalesChain(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸", ColSalesCategory: "分割品", ColCustomerName: "某超市"},
		{ColMaterialName: "鸡架", ColSalesCategory: "副产品", ColCustomerName: "某超市"},
		{ColMaterialName: "鸡腿", ColSalesCategory: "NaN", ColCustomerName: "某超市"},
		{ColMaterialName: "鸡翅", ColSalesCategory: "分割品", ColCustomerName: " "},
		{ColMaterialName: "鸡爪", ColSalesCategory: "分割品", ColCustomerName: " 鲜品 "},
		{ColMaterialName: "鲜鸡胗", ColSalesCategory: "分割品", ColCustomerName: "某超市"},
	}
	kept, stats := Apply(SalesChain(), rows)
	if got := strings.Join(names(kept), ","); got != "鸡大胸" {
		t.Fatalf("kept=%s", got)
	}
	if stats.Dropped["category"] != 2 || stats.Dropped["customer"] != 2 || stats.Dropped["fresh_name"] != 1 {
		t.Fatalf("unexpected dropped: %+v", stats.Dropped)
	}
}

func TestProductionChain_CategoryFallbackColumn(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸", ColProductionBelongs: "分割品"},
		{ColMaterialName: "鸡骨", ColProductionBelongs: "副产品"},
		{ColMaterialName: "鸡皮", ColProductionBelongs: ""},
	}
	kept, _ := Apply(ProductionChain(), rows)
	if got := strings.Join(names(kept), ","); got != "鸡大胸" {
		t.Fatalf("kept=%s", got)
	}
}

func TestDepartmentChain(t *testing.T) {
	t.Parallel()

	rows := []testRow{
		{ColMaterialName: "鸡大胸", ColSalesCategory: "分割品"},
		{ColMaterialName: "鸡架", ColSalesCategory: "空白"},
		{ColMaterialName: "鸡胗", ColSalesCategory: "生鲜品其他"},
		{ColMaterialName: "鸡爪", ColSalesCategory: ""},
	}
	kept, _ := Apply(DepartmentChain(), rows)
	if got := names(kept); len(got) != 2 || got[0] != "鸡大胸" || got[1] != "鸡爪" {
		t.Fatalf("kept=%v", got)
	}
}

func TestKeepProductName(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"鸡大胸":  true,
		"鲜鸡腿":  false,
		"鲜凤肠":  true,
		"冷冻鲜品": true,
	}
	for name, want := range cases {
		if got := KeepProductName(name); got != want {
			t.Fatalf("KeepProductName(%q)=%v, want %v", name, got, want)
		}
	}
}

func TestKeepCategory(t *testing.T) {
	t.Parallel()

	if !KeepCategory("", false) || KeepCategory("", true) {
		t.Fatalf("blank category handling mismatch")
	}
	if KeepCategory("副产品", false) || KeepCategory("生鲜品其他", true) {
		t.Fatalf("excluded category kept")
	}
	if !KeepCategory("分割品", true) {
		t.Fatalf("regular category dropped")
	}
}

func TestProductClause(t *testing.T) {
	t.Parallel()

	relaxed := ProductClause("p", false)
	want := "(p.product_name NOT LIKE '鲜%' OR p.product_name LIKE '%凤肠%') AND (p.category IS NULL OR p.category = '' OR p.category NOT IN ('副产品', '生鲜品其他'))"
	if relaxed != want {
		t.Fatalf("relaxed clause:\n got: %s\nwant: %s", relaxed, want)
	}

	strict := PriceAdjustmentClause("pa", true)
	if !strings.Contains(strict, "pa.category IS NOT NULL AND pa.category != ''") {
		t.Fatalf("strict clause: %s", strict)
	}
}
