package calculator

// WeightedAveragePrice 加权平均价 = Σ(量*价) / Σ量；总量为 0 时返回 0
func WeightedAveragePrice(volumes, prices []float64) float64 {
	var weighted, total float64
	for i, v := range volumes {
		if i >= len(prices) {
			break
		}
		weighted += v * prices[i]
		total += v
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SalesPricePerTon 含税吨价 = 无税金额 / 公斤数 * 税率 * 1000
func SalesPricePerTon(taxFreeAmount, quantityKg, taxRate float64) float64 {
	if quantityKg <= 0 {
		return 0
	}
	return taxFreeAmount / quantityKg * taxRate * 1000
}

// SalesAmount 含税销售额
func SalesAmount(taxFreeAmount, taxRate float64) float64 {
	return taxFreeAmount * taxRate
}
