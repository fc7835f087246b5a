package models

import "github.com/shopspring/decimal"

// LineTotal returns price × quantity rounded to cents.
func LineTotal(price float64, quantity int) float64 {
	v, _ := decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		Float64()
	return v
}

// Sum adds amounts with decimal arithmetic and rounds to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	v, _ := total.Round(2).Float64()
	return v
}

// Round2 rounds an amount to cents.
func Round2(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}
