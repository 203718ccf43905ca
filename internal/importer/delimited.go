package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cleared-dev/ledgerimport/internal/dates"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// DelimitedParser parses delimited-text statements using a column mapping.
type DelimitedParser struct {
	Mapping model.ColumnMapping
}

// NewDelimitedParser creates a parser for the given column mapping.
func NewDelimitedParser(mapping model.ColumnMapping) *DelimitedParser {
	return &DelimitedParser{Mapping: mapping}
}

// Format returns the parser name.
func (p *DelimitedParser) Format() string { return FormatCSV }

// amountNoise is removed from amount cells before parsing.
var amountNoise = []string{",", "$", "£", "€"}

// Parse reads rows keyed by header name. Rows without a valid date are skipped;
// unparseable amounts count as zero.
func (p *DelimitedParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	if err := p.Mapping.Validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With().Str("format", FormatCSV).Logger()

	cr, err := newDelimitedReader(r)
	if err != nil {
		return nil, err
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := p.columns(header)
	if err != nil {
		return nil, err
	}

	var txns []model.Transaction
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		rlog := log.With().Int("record", row).Logger()

		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		date, ok := dates.Parse(cell(p.Mapping.Date))
		if !ok {
			rlog.Warn().Str("token", cell(p.Mapping.Date)).Msg("skipping row without a valid date")
			continue
		}

		var amount decimal.Decimal
		if !p.Mapping.TwoColumn() {
			amount = cellAmount(cell(p.Mapping.Amount), rlog.Warn)
		} else {
			debit := cellAmount(cell(p.Mapping.Debit), rlog.Warn)
			credit := cellAmount(cell(p.Mapping.Credit), rlog.Warn)
			amount = credit.Sub(debit)
		}

		txns = append(txns, model.Transaction{
			Date:        date,
			Description: cell(p.Mapping.Description),
			Amount:      amount,
		})
	}
	return txns, nil
}

// columns resolves every mapped column to its header index.
func (p *DelimitedParser) columns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	mapped := []string{p.Mapping.Date, p.Mapping.Description}
	if p.Mapping.TwoColumn() {
		mapped = append(mapped, p.Mapping.Debit, p.Mapping.Credit)
	} else {
		mapped = append(mapped, p.Mapping.Amount)
	}

	cols := make(map[string]int, len(mapped))
	for _, name := range mapped {
		i, ok := index[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in header", model.ErrIncompleteMapping, name)
		}
		cols[name] = i
	}
	return cols, nil
}

// cellAmount parses a money cell; blank cells are zero without a warning.
func cellAmount(s string, warn func() *zerolog.Event) decimal.Decimal {
	d, ok := parseAmount(s, amountNoise...)
	if !ok && strings.TrimSpace(s) != "" {
		warn().Str("token", s).Msg("unparseable amount, using zero")
	}
	return d
}

// Header keywords, matched against lower-cased header cells.
var (
	dateKeywords   = []string{"date"}
	descKeywords   = []string{"desc", "narr", "payee", "memo", "particulars"}
	amountKeywords = []string{"amount", "total"}
	debitKeywords  = []string{"debit", "withdr", "payment", "paid out"}
	creditKeywords = []string{"credit", "deposit", "paid in"}
)

// GuessMapping reads the header row and proposes a column mapping. The first
// matching header wins for each field; a debit/credit pair discards the
// single-amount guess.
func GuessMapping(r io.Reader) ([]string, model.ColumnMapping, error) {
	cr, err := newDelimitedReader(r)
	if err != nil {
		return nil, model.ColumnMapping{}, err
	}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, model.ColumnMapping{}, nil
	}
	if err != nil {
		return nil, model.ColumnMapping{}, fmt.Errorf("reading header: %w", err)
	}

	var m model.ColumnMapping
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		lower := strings.ToLower(h)
		guess(&m.Date, h, lower, dateKeywords)
		guess(&m.Description, h, lower, descKeywords)
		guess(&m.Amount, h, lower, amountKeywords)
		guess(&m.Debit, h, lower, debitKeywords)
		guess(&m.Credit, h, lower, creditKeywords)
	}
	if m.Debit != "" && m.Credit != "" {
		m.Amount = ""
	}
	return header, m, nil
}

func guess(field *string, header, lower string, keywords []string) {
	if *field != "" {
		return
	}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			*field = header
			return
		}
	}
}

// newDelimitedReader strips a UTF-8 BOM, sniffs the dialect and returns a configured reader.
func newDelimitedReader(r io.Reader) (*csv.Reader, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("reading delimited text: %w", err)
	}

	d := SniffDialect(data)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = d.Delimiter
	cr.TrimLeadingSpace = d.SkipInitialSpace
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr, nil
}
