package tradelog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/xuri/excelize/v2"
)

// PrintSummary renders the replayed trade history as a console table.
func (l *Log) PrintSummary(out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}

	total, err := l.ComputeTotalStats()
	if err != nil {
		return err
	}
	records, err := l.ReadAll()
	if err != nil {
		return err
	}

	pairs := make(map[string]struct{})
	for _, r := range records {
		if r.Pair != "" {
			pairs[r.Pair] = struct{}{}
		}
	}
	names := make([]string, 0, len(pairs))
	for p := range pairs {
		names = append(names, p)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("TRADE HISTORY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pair", "Trades", "Bought", "Sold", "P/L", "P/L %"})

	for _, pair := range names {
		stats, err := l.ComputePairStats(pair)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{
			stats.Pair,
			stats.Trades,
			fmt.Sprintf("%.2f", stats.TotalBought),
			fmt.Sprintf("%.2f", stats.TotalSold),
			fmt.Sprintf("%.2f", stats.PnL),
			fmt.Sprintf("%.2f%%", stats.PnLPct),
		})
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		total.TotalTrades,
		fmt.Sprintf("%.2f", total.TotalBought),
		fmt.Sprintf("%.2f", total.TotalSold),
		fmt.Sprintf("%.2f", total.PnL),
		fmt.Sprintf("%.2f%%", total.PnLPct),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

// ExportXLSX writes the full trade history and per-pair summary to an
// Excel workbook.
func (l *Log) ExportXLSX(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	records, err := l.ReadAll()
	if err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"
	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	tradeHeaders := []string{"Timestamp", "Pair", "Side", "Order ID", "Price", "Volume", "Details"}
	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(tradesSheet, cell, h)
		fx.SetCellStyle(tradesSheet, cell, cell, headerStyle)
	}
	for i, r := range records {
		row := i + 2
		fx.SetCellValue(tradesSheet, fmt.Sprintf("A%d", row), r.Timestamp.Format(timeLayout))
		fx.SetCellValue(tradesSheet, fmt.Sprintf("B%d", row), r.Pair)
		fx.SetCellValue(tradesSheet, fmt.Sprintf("C%d", row), r.Side)
		fx.SetCellValue(tradesSheet, fmt.Sprintf("D%d", row), r.OrderID)
		fx.SetCellValue(tradesSheet, fmt.Sprintf("E%d", row), r.Price)
		fx.SetCellValue(tradesSheet, fmt.Sprintf("F%d", row), r.Volume)
		fx.SetCellValue(tradesSheet, fmt.Sprintf("G%d", row), r.Details)
	}

	summaryHeaders := []string{"Pair", "Trades", "Bought", "Sold", "P/L", "P/L %"}
	for i, h := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(summarySheet, cell, h)
		fx.SetCellStyle(summarySheet, cell, cell, headerStyle)
	}

	pairs := make(map[string]struct{})
	for _, r := range records {
		if r.Pair != "" {
			pairs[r.Pair] = struct{}{}
		}
	}
	names := make([]string, 0, len(pairs))
	for p := range pairs {
		names = append(names, p)
	}
	sort.Strings(names)

	for i, pair := range names {
		stats, err := l.ComputePairStats(pair)
		if err != nil {
			return err
		}
		row := i + 2
		fx.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), stats.Pair)
		fx.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), stats.Trades)
		fx.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), stats.TotalBought)
		fx.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), stats.TotalSold)
		fx.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), stats.PnL)
		fx.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), stats.PnLPct)
	}

	return fx.SaveAs(path)
}
