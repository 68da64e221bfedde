package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rewired-gh/credscore/internal/models"
)

var requiredColumns = []string{"userWallet", "action", "timestamp"}

// ReadCSV reads a headered CSV export from r. Columns are matched by header
// name; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]models.RawTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV input is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("CSV input is missing required column %q", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := []models.RawTransaction{}
	for n := 1; ; n++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}

		ts, err := ParseTimestamp(field(row, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}

		tx := models.RawTransaction{
			UserWallet: strings.TrimSpace(field(row, "userWallet")),
			Action:     field(row, "action"),
			Timestamp:  ts,
			ActionData: field(row, "actionData"),
			TxHash:     field(row, "txHash"),
			Network:    field(row, "network"),
			Protocol:   field(row, "protocol"),
		}
		if err := validateRecord(n, &tx); err != nil {
			return nil, err
		}
		records = append(records, tx)
	}
	return records, nil
}
