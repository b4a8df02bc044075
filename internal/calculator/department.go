package calculator

import (
	"sort"

	"springsnow/internal/model"
)

// DepartmentProduct 部门口径下单产品产销
type DepartmentProduct struct {
	Name       string  `json:"name"`
	DeptSales  float64 `json:"deptSales"`  // 本部门销量（吨）
	AllSales   float64 `json:"allSales"`   // 全部门销量（吨）
	Production float64 `json:"production"` // 收发存 入库（吨）
	Ratio      float64 `json:"ratio"`      // 本部门产销率
}

// DepartmentResult 部门产销率
type DepartmentResult struct {
	Department     string              `json:"department"`
	DeptSales      float64             `json:"deptSales"`
	DeptProduction float64             `json:"deptProduction"`
	DeptRatio      float64             `json:"deptRatio"`
	AllSales       float64             `json:"allSales"`
	AllProduction  float64             `json:"allProduction"`
	AllRatio       float64             `json:"allRatio"`
	Products       []DepartmentProduct `json:"products"`
}

// DepartmentRatio 对比指定责任部门与全部门的产销率
// sales 与 inventory 需已按部门口径过滤；产量取收发存 入库
func DepartmentRatio(sales []model.SalesRecord, inventory []model.InventoryItem, department string, clip float64) DepartmentResult {
	res := DepartmentResult{Department: department}
	byName := map[string]*DepartmentProduct{}
	get := func(name string) *DepartmentProduct {
		p, ok := byName[name]
		if !ok {
			p = &DepartmentProduct{Name: name}
			byName[name] = p
		}
		return p
	}

	for _, r := range sales {
		tons := r.Tons()
		res.AllSales += tons
		p := get(r.Name)
		p.AllSales += tons
		if r.Department == department {
			res.DeptSales += tons
			p.DeptSales += tons
		}
	}
	for _, it := range inventory {
		tons := it.Production / 1000
		res.AllProduction += tons
		if it.Department == department {
			res.DeptProduction += tons
			get(it.Name).Production += tons
		}
	}

	res.DeptRatio = Ratio(res.DeptSales, res.DeptProduction, clip)
	res.AllRatio = Ratio(res.AllSales, res.AllProduction, clip)

	for _, p := range byName {
		p.Ratio = Ratio(p.DeptSales, p.Production, clip)
		res.Products = append(res.Products, *p)
	}
	sort.Slice(res.Products, func(i, j int) bool {
		if res.Products[i].DeptSales != res.Products[j].DeptSales {
			return res.Products[i].DeptSales > res.Products[j].DeptSales
		}
		return res.Products[i].Name < res.Products[j].Name
	})
	return res
}
