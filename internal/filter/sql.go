package filter

import (
	"fmt"
	"strings"
)

// sqlList 生成 SQL 字符串列表字面量
func sqlList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// NameClause 名称规则：排除“鲜”开头的产品，凤肠除外
func NameClause(nameCol string) string {
	return fmt.Sprintf("(%[1]s NOT LIKE '%[2]s%%' OR %[1]s LIKE '%%%[3]s%%')", nameCol, FreshKeyword, RescueKeyword)
}

// CategoryClause 分类规则；strict 要求分类非空
func CategoryClause(categoryCol string, strict bool) string {
	list := sqlList(ExcludedCategories)
	if strict {
		return fmt.Sprintf("(%[1]s IS NOT NULL AND %[1]s != '' AND %[1]s NOT IN (%[2]s))", categoryCol, list)
	}
	return fmt.Sprintf("(%[1]s IS NULL OR %[1]s = '' OR %[1]s NOT IN (%[2]s))", categoryCol, list)
}

// ProductClause Products 表的完整过滤条件
func ProductClause(alias string, strict bool) string {
	return NameClause(alias+".product_name") + " AND " + CategoryClause(alias+".category", strict)
}

// PriceAdjustmentClause PriceAdjustments 表的完整过滤条件
func PriceAdjustmentClause(alias string, strict bool) string {
	return NameClause(alias+".product_name") + " AND " + CategoryClause(alias+".category", strict)
}
