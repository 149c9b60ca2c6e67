// internal/ingest/csv.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/boardyhq/campaign-backend/internal/model"
)

// ParseRecipients reads a comma-separated recipient list: first row is the
// header, values may be double-quote-wrapped. Rows with missing trailing
// fields get empty strings instead of failing the whole upload; extra fields
// are dropped.
func ParseRecipients(r io.Reader) (model.RecipientTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient list: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("recipient list is empty")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := model.RecipientTable{}
	for _, values := range records[1:] {
		row := model.Recipient{}
		for i, header := range headers {
			if i < len(values) {
				row[header] = strings.TrimSpace(values[i])
			} else {
				row[header] = ""
			}
		}
		table = append(table, row)
	}
	return table, nil
}
