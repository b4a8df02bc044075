package filter

// 业务关键字
const (
	FreshKeyword     = "鲜"
	RescueKeyword    = "凤肠"
	ByProduct        = "副产品"
	FreshProduct     = "鲜品"
	FreshOther       = "生鲜品其他"
	BlankPlaceholder = "空白"
)

// ExcludedCategories 汇总口径下排除的物料分类
var ExcludedCategories = []string{ByProduct, FreshOther}

// 源表列名
const (
	ColMaterialName      = "物料名称"
	ColMaterialCategory  = "物料分类名称"
	ColSalesCategory     = "物料分类"
	ColCustomer          = "客户"
	ColCustomerName      = "客户名称"
	ColProductionMajor   = "物料大类"
	ColProductionBelongs = "物料所属分类"
)

// InventoryChain 收发存汇总表过滤
func InventoryChain() Chain {
	return Chain{
		Name: "inventory",
		Prepare: []Rule{
			{Name: "blank_name", Columns: []string{ColMaterialName}, Exclude: Blank()},
		},
		Rules: []Rule{
			{
				Name:     "customer",
				Columns:  []string{ColCustomer},
				Exclude:  Any(In(ByProduct, FreshProduct), WhitespaceOnly()),
				Optional: true,
			},
			{
				Name:     "category",
				Columns:  []string{ColMaterialCategory},
				Exclude:  Any(In(ExcludedCategories...), Blank()),
				Optional: true,
			},
			{Name: "fresh_name", Columns: []string{ColMaterialName}, Exclude: Contains(FreshKeyword)},
		},
		Rescue: &Rescue{Name: "feng_chang", Column: ColMaterialName, Match: Contains(RescueKeyword)},
	}
}

// ProductionChain 产成品入库过滤
func ProductionChain() Chain {
	return Chain{
		Name: "production",
		Rules: []Rule{
			{Name: "blank_name", Columns: []string{ColMaterialName}, Exclude: Blank()},
			{Name: "fresh_name", Columns: []string{ColMaterialName}, Exclude: Contains(FreshKeyword)},
			{
				Name:     "category",
				Columns:  []string{ColProductionMajor, ColProductionBelongs},
				Exclude:  Any(In(ByProduct), Blank()),
				Optional: true,
			},
		},
	}
}

// SalesChain 销售发票过滤
func SalesChain() Chain {
	return Chain{
		Name: "sales",
		Rules: []Rule{
			{Name: "blank_name", Columns: []string{ColMaterialName}, Exclude: Blank()},
			{
				Name:     "category",
				Columns:  []string{ColSalesCategory},
				Exclude:  InFold(ByProduct, "nan", ""),
				Optional: true,
			},
			{
				Name:     "customer",
				Columns:  []string{ColCustomerName},
				Exclude:  InFold("", ByProduct, FreshProduct),
				Optional: true,
			},
			{Name: "fresh_name", Columns: []string{ColMaterialName}, Exclude: Contains(FreshKeyword)},
		},
	}
}

// DepartmentChain 部门产销率口径过滤
func DepartmentChain() Chain {
	return Chain{
		Name: "department",
		Rules: []Rule{
			{Name: "blank_name", Columns: []string{ColMaterialName}, Exclude: Blank()},
			{
				// 分类为空的行保留
				Name:     "category",
				Columns:  []string{ColSalesCategory, ColMaterialCategory},
				Exclude:  In(BlankPlaceholder, ByProduct, FreshOther),
				Optional: true,
			},
			{Name: "fresh_name", Columns: []string{ColMaterialName}, Exclude: Contains(FreshKeyword)},
		},
	}
}
