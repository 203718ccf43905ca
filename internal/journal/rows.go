package journal

import (
	"github.com/cleared-dev/ledgerimport/internal/model"
)

const (
	dateFormat  = "2006-01-02"
	stampFormat = "2006-01-02 15:04:05"
)

// Rows renders postings as insert tuples for the given columns. Debit and
// credit are two-decimal strings; party is always NULL.
func Rows(postings []model.Posting, cols []string) [][]any {
	rows := make([][]any, len(postings))
	for i, p := range postings {
		rows[i] = Row(p, cols)
	}
	return rows
}

// Row renders one posting as an insert tuple. Unknown columns are NULL.
func Row(p model.Posting, cols []string) []any {
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = value(p, c)
	}
	return row
}

func value(p model.Posting, col string) any {
	switch col {
	case "name":
		return p.ID
	case "date":
		return p.Date.Format(dateFormat)
	case "account":
		return p.Account
	case "debit":
		return p.Debit.StringFixed(2)
	case "credit":
		return p.Credit.StringFixed(2)
	case "remark":
		return p.Description
	case "voucherType":
		return p.VoucherType
	case "voucherNo":
		return p.VoucherNo
	case "createdBy":
		return p.CreatedBy
	case "modifiedBy":
		return p.ModifiedBy
	case "created":
		return p.Created.Format(stampFormat)
	case "modified":
		return p.Modified.Format(stampFormat)
	default:
		return nil
	}
}
