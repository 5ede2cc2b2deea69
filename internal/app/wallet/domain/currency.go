package domain

// 支援的幣別 (固定白名單)
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
)

// validCurrencies 白名單查表，新增幣別僅需加在這裡
var validCurrencies = map[string]struct{}{
	CurrencyUSD: {},
	CurrencyEUR: {},
	CurrencyGBP: {},
}

// ValidCurrency 檢查幣別代碼是否在白名單內
func ValidCurrency(code string) bool {
	_, ok := validCurrencies[code]
	return ok
}
