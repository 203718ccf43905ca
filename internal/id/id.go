package id

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrExhausted is returned when a batch of names would run past MaxInt64.
var ErrExhausted = errors.New("entry names exhausted")

// Allocator hands out sequential ledger entry names. It is owned by a single
// import run; concurrent runs against the same ledger are not supported.
type Allocator struct {
	next int64
}

// NewAllocator creates an Allocator whose first name is seed.
func NewAllocator(seed int64) *Allocator {
	if seed < 1 {
		seed = 1
	}
	return &Allocator{next: seed}
}

// Next returns the next name and advances the counter.
func (a *Allocator) Next() int64 {
	n := a.next
	a.next++
	return n
}

// Pair returns two consecutive names for the two sides of a voucher.
func (a *Allocator) Pair() (int64, int64) {
	return a.Next(), a.Next()
}

// Seed returns the first of need names to allocate given the largest numeric
// name already in the ledger (ok=false when there is none).
func Seed(maxExisting int64, ok bool, need int) (int64, error) {
	if !ok || maxExisting < 1 {
		maxExisting = 0
	}
	if need < 0 || maxExisting > math.MaxInt64-int64(need) {
		return 0, fmt.Errorf("%w: %d names after %d", ErrExhausted, need, maxExisting)
	}
	return maxExisting + 1, nil
}

// Format renders a numeric entry name.
func Format(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Parse parses a numeric entry name like "42". Names with non-digit
// characters ("ACC-LE-0007") are not numeric.
func Parse(name string) (int64, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
