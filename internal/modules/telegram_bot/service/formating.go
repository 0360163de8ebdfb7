package service

import (
	"fmt"
	"strings"

	"smc_bot/internal/helper"
	"smc_bot/internal/models"
	signals "smc_bot/internal/modules/signals/service"
	"smc_bot/internal/smc"
)

const helpText = "SMC signal bot\n\n" +
	"/generate SYMBOL: analyse and store a signal\n" +
	"/analyze SYMBOL: analysis report, nothing stored\n" +
	"/signals [N]: latest signals\n" +
	"/track ID: follow a signal live\n" +
	"/untrack ID: stop following\n" +
	"/delete ID: remove a signal\n" +
	"/stats: tracking statistics\n" +
	"/settings: analysis toggles\n" +
	"/toggle NAME: flip a toggle"

func formatSignalLine(s models.Signal) string {
	state := "new"
	switch {
	case s.Closed:
		state = "closed: " + s.ClosedReason
	case s.TP2Hit:
		state = "tracking, TP2 hit"
	case s.TP1Hit:
		state = "tracking, TP1 hit"
	case s.Tracked:
		state = "tracking"
	}
	return fmt.Sprintf("%s %s %s %.0f%% @ %s [%s]\n  id %s",
		s.CreatedAt.Format("01-02 15:04"), s.Symbol, s.Direction, s.Confidence,
		helper.FormatPrice(s.Entry), state, s.ID)
}

func formatSignals(list []models.Signal) string {
	if len(list) == 0 {
		return "📭 No signals yet"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Signals (%d)\n", len(list))
	for _, s := range list {
		b.WriteString(formatSignalLine(s) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStats(st models.Stats) string {
	return fmt.Sprintf(
		"📊 Tracking stats\n\n"+
			"Total: %d\n"+
			"Active: %d\n"+
			"Closed: %d\n"+
			"Winning: %d\n"+
			"Losing: %d\n"+
			"Win rate: %.1f%%",
		st.Total, st.Active, st.Closed, st.Winning, st.Losing, st.WinRate,
	)
}

func formatSettings(s signals.Settings) string {
	return fmt.Sprintf(
		"⚙️ Analysis settings\n\n"+
			"order_blocks: %s\n"+
			"fvg: %s\n"+
			"bos: %s\n"+
			"choch: %s\n"+
			"liquidity: %s\n"+
			"market_structure: %s\n"+
			"news_analysis: %s\n"+
			"auto_generate: %s\n\n"+
			"/toggle NAME to change",
		onOff(s.OrderBlocks), onOff(s.FVG), onOff(s.BOS), onOff(s.CHoCH),
		onOff(s.Liquidity), onOff(s.MarketStructure), onOff(s.NewsAnalysis), onOff(s.AutoGenerate),
	)
}

func formatReport(symbol string, r smc.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 %s analysis\n\n", symbol)
	if r.Structure != nil {
		fmt.Fprintf(&b, "Structure: %s (%.0f%%)\n", r.Structure.Trend, r.Structure.Strength*100)
	}
	if r.BOS != nil {
		fmt.Fprintf(&b, "BOS: %s through %s\n", r.BOS.Direction, helper.FormatPrice(r.BOS.BrokenLevel))
	}
	if r.CHoCH != nil {
		fmt.Fprintf(&b, "CHoCH: %s\n", r.CHoCH.Direction)
	}
	if n := len(r.OrderBlocks); n > 0 {
		ob := r.OrderBlocks[n-1]
		fmt.Fprintf(&b, "Order blocks: %d, last %s %s-%s\n", n, ob.Direction,
			helper.FormatPrice(ob.Low), helper.FormatPrice(ob.High))
	}
	if n := len(r.FVG); n > 0 {
		gap := r.FVG[n-1]
		fmt.Fprintf(&b, "FVG: %d, last %s %s-%s\n", n, gap.Direction,
			helper.FormatPrice(gap.Low), helper.FormatPrice(gap.High))
	}
	if r.Liquidity != nil {
		fmt.Fprintf(&b, "Liquidity: %d buy-side, %d sell-side\n", len(r.Liquidity.Buy), len(r.Liquidity.Sell))
	}
	for _, lv := range r.Levels {
		fmt.Fprintf(&b, "%s %s (%d touches)\n", strings.ToLower(string(lv.Kind)), helper.FormatPrice(lv.Level()), lv.Touches)
	}
	fmt.Fprintf(&b, "ATR: %s\n\n", helper.FormatPrice(r.ATR))
	b.WriteString(signals.FormatSignal(r.Signal))
	return b.String()
}
