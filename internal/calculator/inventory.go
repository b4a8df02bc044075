package calculator

import "sort"

// RunningInventory 滚动库存：期初结存 + Σ(入库 - 出库)，按日期顺序逐日结转
// 参数单位为吨；返回 日期 -> 产品 -> 当日结存
func RunningInventory(opening map[string]float64, prodByDay, salesByDay map[string]map[string]float64) map[string]map[string]float64 {
	balance := make(map[string]float64, len(opening))
	for name, v := range opening {
		balance[name] = v
	}

	dates := unionKeys(prodByDay, salesByDay)
	out := make(map[string]map[string]float64, len(dates))
	for _, date := range dates {
		for name, v := range prodByDay[date] {
			balance[name] += v
		}
		for name, v := range salesByDay[date] {
			balance[name] -= v
		}
		snapshot := make(map[string]float64, len(balance))
		for name, v := range balance {
			snapshot[name] = v
		}
		out[date] = snapshot
	}
	return out
}

// InventoryRank 库存排行项
type InventoryRank struct {
	Name       string  `json:"name"`
	Level      float64 `json:"level"`
	Percentage float64 `json:"percentage"`
	Rank       int     `json:"rank"`
}

// TopInventory 按库存降序取前 limit 个，占比相对全部正库存
func TopInventory(levels map[string]float64, limit int) ([]InventoryRank, float64) {
	var total float64
	ranks := make([]InventoryRank, 0, len(levels))
	for name, v := range levels {
		if v <= 0 {
			continue
		}
		total += v
		ranks = append(ranks, InventoryRank{Name: name, Level: v})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Level != ranks[j].Level {
			return ranks[i].Level > ranks[j].Level
		}
		return ranks[i].Name < ranks[j].Name
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	for i := range ranks {
		ranks[i].Rank = i + 1
		if total > 0 {
			ranks[i].Percentage = Round2(ranks[i].Level / total * 100)
		}
	}
	return ranks, total
}
