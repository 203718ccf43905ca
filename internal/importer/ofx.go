package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/cleared-dev/ledgerimport/internal/dates"
	"github.com/cleared-dev/ledgerimport/internal/logger"
	"github.com/cleared-dev/ledgerimport/internal/model"
)

// OFXParser parses Open Financial Exchange statements, both SGML (1.x) and XML (2.x).
// OFX files are not reliably well-formed, so tags are matched as text.
type OFXParser struct{}

var (
	ofxInterTagSpace = regexp.MustCompile(`>\s+<`)
	ofxTranList      = regexp.MustCompile(`(?is)<BANKTRANLIST>(.*?)</BANKTRANLIST>`)
	ofxStmtTrn       = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxDatePosted    = regexp.MustCompile(`(?i)<DTPOSTED>(\d{8})`)
	ofxAmount        = regexp.MustCompile(`(?i)<TRNAMT>([-+]?[\d.]+)`)

	// Text values end at the next tag, closed (XML) or not (SGML).
	ofxName = regexp.MustCompile(`(?i)<NAME>([^<]*)`)
	ofxMemo = regexp.MustCompile(`(?i)<MEMO>([^<]*)`)
)

// Format returns the parser name.
func (p *OFXParser) Format() string { return FormatOFX }

// Parse reads the STMTTRN blocks inside BANKTRANLIST. A file without a
// transaction list yields no transactions and no error.
func (p *OFXParser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading ofx: %w", err)
	}
	log := logger.FromContext(ctx).With().Str("format", FormatOFX).Logger()

	content := ofxInterTagSpace.ReplaceAllString(decodeText(data), "><")
	list, ok := ofxTag(content, ofxTranList)
	if !ok {
		log.Info().Msg("no BANKTRANLIST block found")
		return nil, nil
	}

	var txns []model.Transaction
	for i, m := range ofxStmtTrn.FindAllStringSubmatch(list, -1) {
		block := m[1]
		rlog := log.With().Int("record", i+1).Logger()

		dateToken, _ := ofxTag(block, ofxDatePosted)
		date, ok := dates.Parse(dateToken)
		if !ok {
			rlog.Warn().Str("token", dateToken).Msg("skipping transaction without a valid date")
			continue
		}

		amount, ok := ofxAmountValue(block)
		if !ok {
			rlog.Warn().Msg("skipping transaction without a valid amount")
			continue
		}

		name, _ := ofxText(block, ofxName)
		memo, _ := ofxText(block, ofxMemo)
		txns = append(txns, model.Transaction{
			Date:        date,
			Description: joinDescription([]string{name, memo}),
			Amount:      amount,
		})
	}
	return txns, nil
}

// ofxTag returns the first capture group of re in s.
func ofxTag(s string, re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ofxText returns a trimmed, entity-decoded text value; false if absent or blank.
func ofxText(s string, re *regexp.Regexp) (string, bool) {
	v, ok := ofxTag(s, re)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(html.UnescapeString(v))
	return v, v != ""
}

func ofxAmountValue(block string) (decimal.Decimal, bool) {
	token, ok := ofxTag(block, ofxAmount)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
