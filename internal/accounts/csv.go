package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

const (
	numFields      = 5
	colName        = 0
	colGroup       = 1
	colRootType    = 2
	colAccountType = 3
	colParent      = 4
)

// WriteAccounts writes accounts as CSV (including header).
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"name", "is_group", "root_type", "account_type", "parent_account"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colName] = acct.Name
	row[colGroup] = strconv.FormatBool(acct.IsGroup)
	row[colRootType] = acct.RootType
	row[colAccountType] = acct.AccountType
	row[colParent] = acct.ParentAccount
	return row
}
