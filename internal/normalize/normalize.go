// Package normalize resolves each raw transaction into a USD-valued record.
//
// Token amounts arrive in on-chain base units, so known assets are rescaled by
// their token decimals before pricing:
//
//	USDC, USDT          1e6
//	WMATIC, WETH, DAI   1e18
//	WBTC                1e8
//
// Any other symbol is used unscaled. When the payload carries a positive USD
// price the value is scaled_amount * price, otherwise the scaled amount alone.
// Arithmetic is done in decimal so 18-decimal amounts scale exactly.
package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/credscore/internal/models"
	"github.com/rewired-gh/credscore/internal/payload"
)

// Payload keys read by the normalizer.
const (
	KeyAmount        = "amount"
	KeyAssetSymbol   = "assetSymbol"
	KeyAssetPriceUSD = "assetPriceUSD"
)

// Decimals returns the base-unit exponent for symbol and whether it is a rescaled asset.
// Checked in order: stablecoins, wrapped majors, WBTC.
func Decimals(symbol string) (int32, bool) {
	switch symbol {
	case "USDC", "USDT":
		return 6, true
	case "WMATIC", "WETH", "DAI":
		return 18, true
	case "WBTC":
		return 8, true
	}
	return 0, false
}

// Coerce converts a loosely typed payload value to a decimal. Absent, null,
// empty and non-numeric values become zero; a well-formed "0.00" is a real zero.
func Coerce(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		return parseDecimal(x)
	case json.Number:
		return parseDecimal(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case bool:
		if x {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// USDValue prices amount (in base units of symbol) at price.
func USDValue(symbol string, amount, price decimal.Decimal) float64 {
	scaled := amount
	if exp, ok := Decimals(symbol); ok {
		scaled = amount.Shift(-exp)
	}
	if price.IsPositive() {
		scaled = scaled.Mul(price)
	}
	v, _ := scaled.Float64()
	return v
}

// Transaction derives the normalized record for raw using its decoded payload.
// raw is copied, never modified.
func Transaction(raw models.RawTransaction, p payload.Payload) models.NormalizedTransaction {
	symbol := p.String(KeyAssetSymbol)
	amount := Coerce(p[KeyAmount])
	price := Coerce(p[KeyAssetPriceUSD])

	amountF, _ := amount.Float64()
	priceF, _ := price.Float64()

	return models.NormalizedTransaction{
		RawTransaction: raw,
		AssetSymbol:    symbol,
		Amount:         amountF,
		AssetPriceUSD:  priceF,
		USDValue:       USDValue(symbol, amount, price),
	}
}
