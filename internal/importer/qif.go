package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerimport/internal/dates"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// QIFParser parses Quicken Interchange Format statements.
type QIFParser struct{}

const (
	qifRecordEnd  = "^"
	qifSplitStart = "S"
	qifSplitEnd   = "E"
	qifMinLines   = 2
)

// qifField is the meaning of a QIF line, taken from its first character.
type qifField int

const (
	qifNarrative qifField = iota // untagged or unknown tag: the whole line is text
	qifDate
	qifAmount
	qifPayee
	qifMemo
	qifCategory
	qifIgnored // account type header or check number
)

// Format returns the parser name.
func (p *QIFParser) Format() string { return FormatQIF }

// Parse reads a QIF file and returns transactions that carry both a date and an amount.
func (p *QIFParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading qif: %w", err)
	}
	log := logger.FromContext(ctx).With().Str("format", FormatQIF).Logger()

	var txns []model.Transaction
	for i, raw := range strings.Split(decodeText(data), qifRecordEnd) {
		lines := strings.Split(strings.TrimSpace(raw), "\n")
		if len(lines) < qifMinLines {
			continue
		}
		if txn, ok := parseQIFRecord(lines, log.With().Int("record", i+1).Logger()); ok {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func parseQIFRecord(lines []string, log zerolog.Logger) (model.Transaction, bool) {
	var (
		date      time.Time
		dateToken string
		amount    decimal.Decimal
		hasAmount bool
		parts     []string
	)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, data := classifyQIF(line)
		switch field {
		case qifDate:
			dateToken = data
			date, _ = dates.Parse(data)
		case qifAmount:
			var ok bool
			amount, ok = parseAmount(data, ",")
			hasAmount = true
			if !ok {
				log.Warn().Str("token", data).Msg("unparseable amount, using zero")
			}
		case qifPayee, qifMemo:
			parts = append(parts, data)
		case qifCategory:
			parts = append(parts, qifCategoryValue(data))
		case qifIgnored:
		case qifNarrative:
			parts = append(parts, line)
		}
	}

	if date.IsZero() {
		log.Warn().Str("token", dateToken).Msg("skipping record without a valid date")
		return model.Transaction{}, false
	}
	if !hasAmount {
		log.Warn().Msg("skipping record without an amount")
		return model.Transaction{}, false
	}
	return model.Transaction{
		Date:        date,
		Description: joinDescription(parts),
		Amount:      amount,
	}, true
}

// classifyQIF splits a non-empty line into its field tag and trimmed data.
func classifyQIF(line string) (qifField, string) {
	data := strings.TrimSpace(line[1:])
	switch strings.ToUpper(line[:1]) {
	case "D":
		return qifDate, data
	case "T":
		return qifAmount, data
	case "P":
		return qifPayee, data
	case "M":
		return qifMemo, data
	case "L":
		return qifCategory, data
	case "!", "N":
		return qifIgnored, data
	default:
		return qifNarrative, line
	}
}

// qifCategoryValue keeps only the split segment of a category that embeds one.
func qifCategoryValue(s string) string {
	if !strings.Contains(s, qifSplitStart) {
		return s
	}
	seg := s[strings.LastIndex(s, qifSplitStart)+len(qifSplitStart):]
	if i := strings.Index(seg, qifSplitEnd); i >= 0 {
		seg = seg[:i]
	}
	return seg
}
