package importer

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/cleared-dev/ledgerimport/internal/model"
)

// Parser converts a bank statement into canonical transactions.
//
// Parsers skip records they cannot use (logging why) and only return an error
// when the input itself cannot be read.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile returns the parser matching the file's extension, or nil.
func (r *Registry) ForFile(path string) Parser {
	format, ok := FormatForFile(path)
	if !ok {
		return nil
	}
	return r.Get(format)
}

// DefaultRegistry returns a registry with all built-in parsers. The column
// mapping drives the delimited-text parser.
func DefaultRegistry(mapping model.ColumnMapping) *Registry {
	r := NewRegistry()
	r.Register(&QIFParser{})
	r.Register(&OFXParser{})
	r.Register(NewDelimitedParser(mapping))
	return r
}

// Statement formats.
const (
	FormatQIF = "qif"
	FormatOFX = "ofx"
	FormatCSV = "csv"
)

var extensions = map[string]string{
	".qif": FormatQIF,
	".ofx": FormatOFX,
	".qfx": FormatOFX,
	".csv": FormatCSV,
}

// FormatForFile maps a statement file name to its format by extension.
func FormatForFile(path string) (string, bool) {
	format, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return format, ok
}

// decodeText reads statement bytes as UTF-8, falling back to Latin-1.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// joinDescription joins the non-empty parts with the canonical separator.
func joinDescription(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, model.DescriptionSeparator)
}

// parseAmount parses s as an exact decimal after removing each of strip.
// Unparseable input yields zero and false.
func parseAmount(s string, strip ...string) (decimal.Decimal, bool) {
	for _, c := range strip {
		s = strings.ReplaceAll(s, c, "")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
