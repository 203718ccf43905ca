package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

// Header is the CSV header for a posting export.
const Header = "name,date,account,debit,credit,remark,voucherType,voucherNo"

const (
	numFields      = 8
	colName        = 0
	colDate        = 1
	colAccount     = 2
	colDebit       = 3
	colCredit      = 4
	colRemark      = 5
	colVoucherType = 6
	colVoucherNo   = 7
)

// WritePostings writes postings as CSV (including header), e.g. for a dry run.
func WritePostings(w io.Writer, postings []model.Posting) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, p := range postings {
		if err := cw.Write(MarshalPosting(p)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalPosting converts a Posting to a CSV row ([]string).
func MarshalPosting(p model.Posting) []string {
	row := make([]string, numFields)
	row[colName] = p.ID
	row[colDate] = p.Date.Format(dateFormat)
	row[colAccount] = p.Account
	row[colDebit] = p.Debit.StringFixed(2)
	row[colCredit] = p.Credit.StringFixed(2)
	row[colRemark] = p.Description
	row[colVoucherType] = p.VoucherType
	row[colVoucherNo] = p.VoucherNo
	return row
}
