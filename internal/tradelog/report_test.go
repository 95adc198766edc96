package tradelog

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPrintSummary(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Record{Pair: "XBTNGN", Side: "buy", Price: 100, Volume: 2}))
	require.NoError(t, l.Append(Record{Pair: "XBTNGN", Side: "sell", Price: 110, Volume: 2}))

	var buf bytes.Buffer
	require.NoError(t, l.PrintSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, "TRADE HISTORY")
	assert.Contains(t, out, "XBTNGN")
	assert.Contains(t, out, "TOTAL")
}

func TestExportXLSX(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append(Record{Pair: "XBTNGN", Side: "buy", OrderID: "o1", Price: 100, Volume: 2}))
	require.NoError(t, l.Append(Record{Pair: "XBTNGN", Side: "sell", OrderID: "o2", Price: 110, Volume: 2}))

	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, l.ExportXLSX(path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	pair, err := fx.GetCellValue("Trades", "B2")
	require.NoError(t, err)
	assert.Equal(t, "XBTNGN", pair)

	summaryPair, err := fx.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "XBTNGN", summaryPair)
}
