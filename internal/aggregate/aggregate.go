package aggregate

import (
    "strings"

    "github.com/shopspring/decimal"

    "oitracker/internal/market"
)

// ratioPlaces is the number of decimals kept in oi_supply_ratio.
const ratioPlaces = 4

// Coin is the combined view of one futures symbol.
type Coin struct {
    Symbol            string   `json:"symbol"`
    Price             float64  `json:"price"`
    ChangePct         float64  `json:"change_pct"`
    VolumeUSDT        float64  `json:"volume_usdt"`
    OpenInterest      float64  `json:"open_interest"`
    OpenInterestUSDT  float64  `json:"open_interest_usdt"`
    CirculatingSupply *float64 `json:"circulating_supply"`
    OISupplyRatio     *float64 `json:"oi_supply_ratio"`
}

// SymbolEntry is one row of the symbol listing.
type SymbolEntry struct {
    Symbol    string `json:"symbol"`
    Supported bool   `json:"supported"`
}

// Compose builds the Coin for symbol from live market data and an optional supply.
// A nil or non-positive supply leaves both supply fields null.
func Compose(symbol string, m market.Data, supply *float64) Coin {
    c := Coin{
        Symbol:           strings.ToUpper(symbol),
        Price:            m.Price,
        ChangePct:        m.ChangePct,
        VolumeUSDT:       m.VolumeUSDT,
        OpenInterest:     m.OpenInterest,
        OpenInterestUSDT: m.OpenInterest * m.Price,
    }
    if supply != nil && *supply > 0 {
        s := *supply
        c.CirculatingSupply = &s
        c.OISupplyRatio = OISupplyRatio(m.OpenInterest, s)
    }
    return c
}

// OISupplyRatio returns open interest as a percentage of supply, rounded half
// away from zero to four decimals. It is nil when supply is not positive.
func OISupplyRatio(openInterest, supply float64) *float64 {
    if supply <= 0 {
        return nil
    }
    r := decimal.NewFromFloat(openInterest).
        Div(decimal.NewFromFloat(supply)).
        Mul(decimal.NewFromInt(100)).
        Round(ratioPlaces).
        InexactFloat64()
    return &r
}
