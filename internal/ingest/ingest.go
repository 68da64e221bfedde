// Package ingest reads raw lending-protocol transaction records from JSON or CSV
// exports into models.RawTransaction values, preserving file order.
//
// JSON input is an array of objects. actionData may be an embedded object or a
// string, and timestamp may be unix seconds (or ms/us/ns by magnitude), a date
// string, or a {"$date": ...} wrapper. CSV input needs a header row naming the
// userWallet, action and timestamp columns; actionData and the optional
// txHash/network/protocol columns are picked up when present and any other
// column (for example a leading index) is ignored.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rewired-gh/credscore/internal/models"
)

var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input source not found")
	// ErrUnsupportedFormat is returned for unknown formats or extensions.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// Format is an input file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ResolveFormat returns the concrete format for path. FormatAuto (or "")
// picks by file extension.
func ResolveFormat(path string, format Format) (Format, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatAuto, "":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return FormatJSON, nil
		case ".csv":
			return FormatCSV, nil
		}
		return "", fmt.Errorf("%w: cannot infer format from %q", ErrUnsupportedFormat, path)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Load reads every record from the file at path.
func Load(path string, format Format) ([]models.RawTransaction, error) {
	resolved, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return Read(f, resolved)
}

// Read reads every record from r in the given concrete format.
func Read(r io.Reader, format Format) ([]models.RawTransaction, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(r)
	case FormatCSV:
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func validateRecord(n int, tx *models.RawTransaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("record %d: %w", n, err)
	}
	return nil
}
