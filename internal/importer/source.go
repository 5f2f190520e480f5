package importer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"contabile/internal/core"
)

var (
	// ErrMalformedHeader aborts an import before any row is read.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrUnsupportedFormat is returned for file extensions no source
	// can handle.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// RowSource yields the raw rows of a tabular file. The first row is
// the header; Next returns io.EOF after the last data row.
type RowSource interface {
	Headers() ([]string, error)
	Next() ([]string, error)
	Close() error
}

// OpenSource picks a RowSource by file extension. The name only
// matters for its extension; content comes from r.
func OpenSource(name string, r io.Reader) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return NewCSVSource(r)
	case ".xlsx":
		return NewXLSXSource(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// transactionAliases maps accepted header spellings, after folding, to
// canonical column keys. Portuguese spellings come from spreadsheets
// exported by banks and the previous version of this app.
var transactionAliases = map[string]string{
	"type": "kind", "tipo": "kind", "kind": "kind",
	"amount": "amount", "valor": "amount", "value": "amount",
	"date": "date", "data": "date",
	"category": "category", "categoria": "category",
	"card": "card", "cartao": "card", "credit_card": "card",
	"description": "description", "descricao": "description",
	"notes": "notes", "note": "notes", "observacao": "notes", "obs": "notes",
	"recurring": "recurring", "is_recurring": "recurring", "recorrente": "recurring",
}

var categoryAliases = map[string]string{
	"name": "name", "nome": "name",
	"type": "kind", "tipo": "kind", "kind": "kind",
}

// columnMap resolves a header row against an alias table, returning
// canonical key -> column index. Unknown columns are ignored; missing
// required columns make the whole file unusable.
func columnMap(headers []string, aliases map[string]string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ReplaceAll(core.Fold(h), " ", "_")
		canonical, ok := aliases[key]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedHeader, h)
		}
		cols[canonical] = i
	}

	var missing []string
	for _, key := range required {
		if _, ok := cols[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMalformedHeader, strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(record []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
