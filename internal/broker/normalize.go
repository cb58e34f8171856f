package broker

import (
	"strconv"

	"github.com/atlas-desktop/session-engine/pkg/types"
)

func rawString(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		}
	}
	return fallback
}

func rawFloat(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return 0
}

func rawInt(m map[string]any, key string) int {
	return int(rawFloat(m, key))
}

func normalizeBalance(raw map[string]any) types.Balance {
	return types.Balance{
		TotalEvaluationAmount: rawString(raw, "tot_evlu_amt", "0"),
		EvaluationProfitLoss:  rawString(raw, "evlu_pfls_smtl_amt", "0"),
		PurchaseAmountTotal:   rawString(raw, "pchs_amt_smtl_amt", "0"),
		DepositTotal:          rawString(raw, "dnca_tot_amt", "0"),
		NextDayExerciseAmount: rawString(raw, "nxdy_excc_amt", "0"),
	}
}

func normalizeHoldings(raw []map[string]any) []types.Holding {
	holdings := make([]types.Holding, 0, len(raw))
	for _, r := range raw {
		qty := rawInt(r, "hldg_qty")
		if qty <= 0 {
			continue
		}
		holdings = append(holdings, types.Holding{
			StockCode: rawString(r, "pdno", rawString(r, "stock_code", "")),
			Quantity:  qty,
			Raw:       r,
		})
	}
	return holdings
}

func normalizePrice(raw map[string]any, stockCode string) types.PriceQuote {
	return types.PriceQuote{
		StockCode:    stockCode,
		StockName:    rawString(raw, "hts_kor_isnm", ""),
		CurrentPrice: rawFloat(raw, "stck_prpr"),
		Change:       rawFloat(raw, "prdy_vrss"),
		ChangeRate:   rawFloat(raw, "prdy_ctrt"),
		Volume:       int64(rawFloat(raw, "acml_vol")),
		High:         rawFloat(raw, "stck_hgpr"),
		Low:          rawFloat(raw, "stck_lwpr"),
		OpenPrice:    rawFloat(raw, "stck_oprc"),
	}
}

func normalizeCandle(raw map[string]any) types.Candle {
	return types.Candle{
		Date:   rawString(raw, "stck_bsop_date", rawString(raw, "date", "")),
		Open:   rawFloat(raw, "stck_oprc"),
		High:   rawFloat(raw, "stck_hgpr"),
		Low:    rawFloat(raw, "stck_lwpr"),
		Close:  rawFloat(raw, "stck_clpr"),
		Volume: rawFloat(raw, "acml_vol"),
	}
}

func normalizeOrderResult(raw map[string]any) types.OrderResult {
	orderNo := rawString(raw, "ODNO", rawString(raw, "odno", ""))
	result := types.OrderResult{OrderNo: orderNo, Raw: raw}

	if price := rawFloat(raw, "tot_ccld_amt"); price > 0 {
		result.FilledPrice = &price
	}
	if qty := rawInt(raw, "tot_ccld_qty"); qty > 0 {
		result.FilledQuantity = &qty
	}
	return result
}
