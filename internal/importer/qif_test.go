package importer

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

func parseQIF(t *testing.T, input string) []model.Transaction {
	t.Helper()
	p := &QIFParser{}
	txns, err := p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	return txns
}

func TestQIFParser_Testdata(t *testing.T) {
	data, err := os.ReadFile("../../testdata/statement.qif")
	require.NoError(t, err)

	txns := parseQIF(t, string(data))
	require.Len(t, txns, 5, "bad-date record is dropped, zero amounts are kept")

	assert.True(t, date(2025, 9, 7).Equal(txns[0].Date))
	assert.Equal(t, "-45.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "Coffee Shop", txns[0].Description)

	assert.Equal(t, "1250.00", txns[1].Amount.StringFixed(2))
	assert.Equal(t, "ACME Consulting / Invoice 1042 / Income:Consulting / CX", txns[1].Description)

	assert.Equal(t, "Supermarket / Groceries", txns[2].Description)
	assert.Equal(t, "-120.50", txns[2].Amount.StringFixed(2))

	assert.True(t, txns[3].Amount.IsZero())
	assert.Equal(t, "Zero Amount", txns[3].Description)

	assert.True(t, txns[4].Amount.IsZero(), "unparseable amount defaults to zero")
}

func TestQIFParser_Scenario(t *testing.T) {
	txns := parseQIF(t, "!Type:Bank\nD07/09/2025\nT-45.00\nPCoffee Shop\n^\nD\n^\n")
	require.Len(t, txns, 1)
	assert.True(t, date(2025, 9, 7).Equal(txns[0].Date))
	assert.Equal(t, "-45.00", txns[0].Amount.StringFixed(2))
	assert.Equal(t, "Coffee Shop", txns[0].Description)
}

func TestQIFParser_CRLF(t *testing.T) {
	txns := parseQIF(t, "D01/02/2024\r\nT10.00\r\nPShop\r\n^\r\n")
	require.Len(t, txns, 1)
	assert.True(t, date(2024, 2, 1).Equal(txns[0].Date))
	assert.Equal(t, "Shop", txns[0].Description)
}

func TestQIFParser_LowercaseTags(t *testing.T) {
	txns := parseQIF(t, "d01/02/2024\nt-3.50\npBakery\nmbread\n^")
	require.Len(t, txns, 1)
	assert.Equal(t, "Bakery / bread", txns[0].Description)
	assert.Equal(t, "-3.50", txns[0].Amount.StringFixed(2))
}

func TestQIFParser_SingleLineRecordDropped(t *testing.T) {
	txns := parseQIF(t, "D01/02/2024\n^\nD02/02/2024\nT5\n^")
	require.Len(t, txns, 1)
	assert.True(t, date(2024, 2, 2).Equal(txns[0].Date))
}

func TestQIFParser_MissingAmount(t *testing.T) {
	txns := parseQIF(t, "D01/02/2024\nPNo amount\n^")
	assert.Empty(t, txns)
}

func TestQIFParser_UntaggedLines(t *testing.T) {
	txns := parseQIF(t, "D01/02/2024\nT-1.00\n  \n123 Main St\n^")
	require.Len(t, txns, 1)
	assert.Equal(t, "123 Main St", txns[0].Description)
}

func TestQIFParser_Latin1(t *testing.T) {
	input := []byte("D01/02/2024\nT-8.00\nPCaf\xe9 Noir\n^")
	p := &QIFParser{}
	txns, err := p.Parse(context.Background(), strings.NewReader(string(input)))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Café Noir", txns[0].Description)
}

func TestQIFParser_Empty(t *testing.T) {
	assert.Empty(t, parseQIF(t, ""))
	assert.Empty(t, parseQIF(t, "!Type:Bank\n"))
}

func TestClassifyQIF(t *testing.T) {
	tests := []struct {
		line  string
		field qifField
		data  string
	}{
		{"D07/09/2025", qifDate, "07/09/2025"},
		{"T -45.00", qifAmount, "-45.00"},
		{"PCoffee", qifPayee, "Coffee"},
		{"Mnote", qifMemo, "note"},
		{"LFood", qifCategory, "Food"},
		{"!Type:Bank", qifIgnored, "Type:Bank"},
		{"N1001", qifIgnored, "1001"},
		{"CX", qifNarrative, "CX"},
		{"^", qifNarrative, "^"},
	}
	for _, tt := range tests {
		field, data := classifyQIF(tt.line)
		assert.Equal(t, tt.field, field, tt.line)
		assert.Equal(t, tt.data, data, tt.line)
	}
}

func TestQIFCategoryValue(t *testing.T) {
	assert.Equal(t, "Food", qifCategoryValue("Food"))
	assert.Equal(t, "Groceries", qifCategoryValue("SplitSGroceriesE"))
	assert.Equal(t, "Rent", qifCategoryValue("SRent"))
}
