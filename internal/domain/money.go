package domain

import "github.com/shopspring/decimal"

// minorUnitDigits — число знаков минорной единицы валюты (копейки/центы).
const minorUnitDigits = 2

// DefaultTaxRate возвращает фиксированную налоговую ставку маркетплейса (15%).
func DefaultTaxRate() decimal.Decimal {
	return decimal.New(15, -2)
}

// Calculator считает деньги заказа. Чистая функция без ввода-вывода:
// одна и та же корзина при одной ставке всегда даёт одни и те же итоги.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator создаёт калькулятор с заданной налоговой ставкой.
// Отрицательная ставка заменяется ставкой по умолчанию.
func NewCalculator(rate decimal.Decimal) Calculator {
	if rate.IsNegative() {
		rate = DefaultTaxRate()
	}
	return Calculator{rate: rate}
}

// Rate возвращает ставку калькулятора.
func (c Calculator) Rate() decimal.Decimal {
	return c.rate
}

// Totals возвращает (subtotal, tax, total) по набору позиций.
// Налог = subtotal * rate, округление до минорной единицы half-up;
// total = subtotal + tax. Плавающая точка не используется нигде.
func (c Calculator) Totals(items []LineItem) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		line := item.UnitPrice.Mul(decimal.NewFromInt32(item.Qty))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(minorUnitDigits)
	// Round у decimal для положительных значений — это round-half-up.
	tax = subtotal.Mul(c.rate).Round(minorUnitDigits)
	total = subtotal.Add(tax)
	return subtotal, tax, total
}
