package calculator

import "github.com/shopspring/decimal"

// TurnoverDays 库存周转天数 = 库存 / 日均销量，日均销量 <= 0 时为 0，上限 capDays，保留两位小数
func TurnoverDays(inventory, avgDailySales, capDays float64) float64 {
	if avgDailySales <= 0 {
		return 0
	}
	days := inventory / avgDailySales
	if capDays > 0 && days > capDays {
		days = capDays
	}
	return Round2(days)
}

// Round2 四舍五入到两位小数
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
