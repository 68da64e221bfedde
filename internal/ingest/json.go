package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rewired-gh/credscore/internal/models"
)

type jsonRecord struct {
	UserWallet string          `json:"userWallet"`
	Action     string          `json:"action"`
	Timestamp  json.RawMessage `json:"timestamp"`
	ActionData json.RawMessage `json:"actionData"`
	TxHash     string          `json:"txHash"`
	Network    string          `json:"network"`
	Protocol   string          `json:"protocol"`
}

// ReadJSON streams a JSON array of transaction records from r.
func ReadJSON(r io.Reader) ([]models.RawTransaction, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("JSON input must be an array of records")
	}

	var records []models.RawTransaction
	for n := 1; dec.More(); n++ {
		var rec jsonRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("record %d: failed to decode: %w", n, err)
		}

		ts, err := parseJSONTimestamp(rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}

		tx := models.RawTransaction{
			UserWallet: rec.UserWallet,
			Action:     rec.Action,
			Timestamp:  ts,
			ActionData: actionDataText(rec.ActionData),
			TxHash:     rec.TxHash,
			Network:    rec.Network,
			Protocol:   rec.Protocol,
		}
		if err := validateRecord(n, &tx); err != nil {
			return nil, err
		}
		records = append(records, tx)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}

	if records == nil {
		records = []models.RawTransaction{}
	}
	return records, nil
}

// actionDataText keeps string payloads verbatim and embedded objects as their
// raw JSON text. Null or absent payloads become "".
func actionDataText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
