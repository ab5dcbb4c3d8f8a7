package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dexlab/quotefill/internal/quotes"
)

// EIP-2028 calldata costs.
const (
	gasPerNonzeroByte = 16
	gasPerZeroByte    = 4
)

// calldataGas is the intrinsic gas the call data itself would cost when
// submitted for real; the dry-run's internal gas counter never sees it.
func calldataGas(data []byte) int64 {
	var g int64
	for _, b := range data {
		if b == 0 {
			g += gasPerZeroByte
		} else {
			g += gasPerNonzeroByte
		}
	}
	return g
}

// costMetrics derives USD-denominated economics using the prices captured
// in the quote's metadata at fetch time, so a mid-scenario price refresh
// cannot skew one side of a comparison.
func costMetrics(q *quotes.Quote, res *quotes.SwapResult) *quotes.CostMetrics {
	md := q.Metadata
	gasPrice := parseFloat(q.GasPrice)
	gasCostWei := (float64(res.GasUsed) + float64(calldataGas(q.Data))) * gasPrice
	gasCostUsd := gasCostWei / 1e18 * md.EthUsd
	protocolFeeUsd := parseFloat(res.ProtocolFeePaid) / 1e18 * md.EthUsd

	boughtUsd := parseFloat(res.BoughtAmount) / math.Pow10(md.MakerTokenDecimals) * md.BuyTokenUsd
	soldUsd := parseFloat(res.SoldAmount) / math.Pow10(md.TakerTokenDecimals) * md.SellTokenUsd

	cost := gasCostUsd + protocolFeeUsd
	return &quotes.CostMetrics{
		GasCostUsd:        gasCostUsd,
		ProtocolFeeUsd:    protocolFeeUsd,
		BoughtUsd:         boughtUsd,
		SoldUsd:           soldUsd,
		AdjustedBoughtUsd: boughtUsd - cost,
		AdjustedSoldUsd:   soldUsd + cost,
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// printFillSummary writes the one-line human-readable outcome. This is
// observability output, not control flow; structured logging stays on
// zerolog.
func printFillSummary(q *quotes.Quote) {
	md := q.Metadata
	sell := parseFloat(q.SellAmount) / math.Pow10(md.TakerTokenDecimals)
	buy := parseFloat(q.BuyAmount) / math.Pow10(md.MakerTokenDecimals)
	summary := fmt.Sprintf("%s %s->%s %.2f -> %.2f ($%.2f) after %.1fs",
		strings.ToUpper(string(md.Side)), md.TakerToken, md.MakerToken, sell, buy, md.FillValue, md.FillDelay)

	parts := make([]string, 0, len(q.Sources))
	for _, s := range q.Sources {
		parts = append(parts, fmt.Sprintf("%s: %s%%", s.Name, proportionPct(s.Proportion)))
	}
	composition := strings.Join(parts, ", ")
	if quotes.HasFallback(q) {
		composition += " (+ fallback)"
	}

	if md.SwapResult.Succeeded() {
		fmt.Printf("%s @ %s\n\t✔ PASS\n\t%s\n", summary, md.APIPath, composition)
	} else {
		fmt.Printf("%s @ %s\n\t✘ FAIL (%s)\n\t%s\n", summary, md.APIPath, md.SwapResult.RevertData, composition)
	}
}

func proportionPct(p string) string {
	return strconv.FormatFloat(parseFloat(p)*100, 'f', -1, 64)
}
