package parser

import (
	"fmt"
	"strings"
)

// FieldSpec 规范字段与候选表头（按优先级）
type FieldSpec struct {
	Field    string
	Aliases  []string
	Required bool
}

// FieldMapper 将中文表头映射到规范字段
type FieldMapper struct {
	specs []FieldSpec
}

// NewFieldMapper 创建字段映射器
func NewFieldMapper(specs ...FieldSpec) *FieldMapper {
	return &FieldMapper{specs: specs}
}

// Map 返回 规范字段 -> 实际表头；缺少必需列时返回 ErrMissingColumn
func (m *FieldMapper) Map(sheet *Sheet) (map[string]string, error) {
	mapping := make(map[string]string, len(m.specs))
	var missing []string
	for _, spec := range m.specs {
		found := ""
		for _, alias := range spec.Aliases {
			if sheet.HasColumn(alias) {
				found = alias
				break
			}
		}
		if found == "" {
			if spec.Required {
				missing = append(missing, strings.Join(spec.Aliases, "|"))
			}
			continue
		}
		mapping[spec.Field] = found
	}
	if len(missing) > 0 {
		return mapping, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return mapping, nil
}

// 规范字段名
const (
	FieldName          = "name"
	FieldCategory      = "category"
	FieldCustomer      = "customer"
	FieldDepartment    = "department"
	FieldDate          = "date"
	FieldQuantity      = "quantity"
	FieldProduction    = "production"
	FieldSales         = "sales"
	FieldClosing       = "closing"
	FieldTaxFreeAmount = "tax_free_amount"
	FieldTaxFreePrice  = "tax_free_price"
	FieldLocalTaxPrice = "local_tax_price"
	FieldTaxPrice      = "tax_price"
	FieldSpecification = "specification"
	FieldOwnPrice      = "own_price"
	FieldPeerMidPrice  = "peer_mid_price"
	FieldMidDiff       = "mid_diff"
)

// InventoryFields 收发存汇总表
func InventoryFields() *FieldMapper {
	return NewFieldMapper(
		FieldSpec{Field: FieldName, Aliases: []string{"物料名称", "商品名称"}, Required: true},
		FieldSpec{Field: FieldCategory, Aliases: []string{"物料分类名称"}},
		FieldSpec{Field: FieldCustomer, Aliases: []string{"客户"}},
		FieldSpec{Field: FieldDepartment, Aliases: []string{"责任部门"}},
		FieldSpec{Field: FieldProduction, Aliases: []string{"入库"}},
		FieldSpec{Field: FieldSales, Aliases: []string{"出库"}},
		FieldSpec{Field: FieldClosing, Aliases: []string{"结存"}, Required: true},
	)
}

// ProductionFields 产成品入库列表
func ProductionFields() *FieldMapper {
	return NewFieldMapper(
		FieldSpec{Field: FieldDate, Aliases: []string{"入库日期", "单据日期"}, Required: true},
		FieldSpec{Field: FieldName, Aliases: []string{"物料名称", "商品名称"}, Required: true},
		FieldSpec{Field: FieldQuantity, Aliases: []string{"主数量"}, Required: true},
		FieldSpec{Field: FieldCategory, Aliases: []string{"物料大类", "物料所属分类"}},
	)
}

// SalesFields 销售发票执行查询
func SalesFields() *FieldMapper {
	return NewFieldMapper(
		FieldSpec{Field: FieldDate, Aliases: []string{"发票日期"}, Required: true},
		FieldSpec{Field: FieldName, Aliases: []string{"物料名称", "商品名称"}, Required: true},
		FieldSpec{Field: FieldQuantity, Aliases: []string{"主数量"}, Required: true},
		FieldSpec{Field: FieldTaxFreeAmount, Aliases: []string{"本币无税金额", "无税金额"}},
		FieldSpec{Field: FieldLocalTaxPrice, Aliases: []string{"本币含税单价"}},
		FieldSpec{Field: FieldTaxPrice, Aliases: []string{"含税单价"}},
		FieldSpec{Field: FieldCategory, Aliases: []string{"物料分类"}},
		FieldSpec{Field: FieldCustomer, Aliases: []string{"客户名称"}},
		FieldSpec{Field: FieldDepartment, Aliases: []string{"责任部门"}},
	)
}

// ComparisonFields 价格对比表
func ComparisonFields() *FieldMapper {
	return NewFieldMapper(
		FieldSpec{Field: FieldName, Aliases: []string{"品名"}, Required: true},
		FieldSpec{Field: FieldSpecification, Aliases: []string{"规格"}, Required: true},
		FieldSpec{Field: FieldOwnPrice, Aliases: []string{"春雪价格"}, Required: true},
		FieldSpec{Field: FieldPeerMidPrice, Aliases: []string{"小明中间价"}, Required: true},
		FieldSpec{Field: FieldMidDiff, Aliases: []string{"中间价差"}, Required: true},
	)
}
