package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteMapping is returned when a column mapping cannot drive the delimited parser.
var ErrIncompleteMapping = errors.New("incomplete column mapping")

// ColumnMapping names the delimited-text columns that carry each transaction field.
// Empty string means "not mapped".
type ColumnMapping struct {
	Date        string `yaml:"date,omitempty"`
	Description string `yaml:"description,omitempty"`
	Amount      string `yaml:"amount,omitempty"`
	Debit       string `yaml:"debit,omitempty"`
	Credit      string `yaml:"credit,omitempty"`
}

// TwoColumn reports whether amounts come from a debit/credit column pair.
// A single amount column takes precedence when both are mapped.
func (m ColumnMapping) TwoColumn() bool {
	return m.Amount == "" && m.Debit != "" && m.Credit != ""
}

// IsZero reports whether no column is mapped.
func (m ColumnMapping) IsZero() bool {
	return m == ColumnMapping{}
}

// Validate checks that date and description are mapped along with either a
// single amount column or both debit and credit columns.
func (m ColumnMapping) Validate() error {
	var missing []string
	if m.Date == "" {
		missing = append(missing, "date")
	}
	if m.Description == "" {
		missing = append(missing, "description")
	}
	if m.Amount == "" && (m.Debit == "" || m.Credit == "") {
		missing = append(missing, "amount (or both debit and credit)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteMapping, strings.Join(missing, ", "))
	}
	return nil
}
