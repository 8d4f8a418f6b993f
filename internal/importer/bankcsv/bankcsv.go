// Package bankcsv parses bank transaction export files in CSV format into
// raw transactions for staging.
package bankcsv

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/flowledger/backend/internal/importer"
	"github.com/flowledger/backend/internal/models"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var ErrEmptyFile = errors.New("the file contains no transactions")

// Expected header: bankTransactionId,name,description,bankCategory,amount,currency,type,paidDate
type row struct {
	BankTransactionID string `csv:"bankTransactionId"`
	Name              string `csv:"name"`
	Description       string `csv:"description"`
	BankCategory      string `csv:"bankCategory"`
	Amount            string `csv:"amount"`
	Currency          string `csv:"currency"`
	Type              string `csv:"type"`
	PaidDate          string `csv:"paidDate"`
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006"}

// Parse reads a CSV export and converts every row into a raw bank
// transaction. The first malformed row aborts the parse with an error naming
// the row.
func Parse(r io.Reader) ([]importer.RawBankTransaction, error) {
	var rows []*row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("could not parse the CSV file: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	raw := make([]importer.RawBankTransaction, 0, len(rows))
	for i, row := range rows {
		transaction, err := convert(row)
		if err != nil {
			// Row 1 is the header
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		raw = append(raw, transaction)
	}

	return raw, nil
}

func convert(r *row) (importer.RawBankTransaction, error) {
	if strings.TrimSpace(r.BankTransactionID) == "" {
		return importer.RawBankTransaction{}, errors.New("bankTransactionId must not be empty")
	}

	if strings.TrimSpace(r.Name) == "" {
		return importer.RawBankTransaction{}, errors.New("name must not be empty")
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(r.Amount), ",", "."))
	if err != nil {
		return importer.RawBankTransaction{}, fmt.Errorf("could not parse the amount %q", r.Amount)
	}

	categoryType, err := parseType(r.Type)
	if err != nil {
		return importer.RawBankTransaction{}, err
	}

	paidDate, err := parseDate(r.PaidDate)
	if err != nil {
		return importer.RawBankTransaction{}, err
	}

	return importer.RawBankTransaction{
		BankTransactionID: strings.TrimSpace(r.BankTransactionID),
		Name:              strings.TrimSpace(r.Name),
		Description:       strings.TrimSpace(r.Description),
		BankCategory:      strings.TrimSpace(r.BankCategory),
		Amount:            amount,
		Currency:          strings.ToUpper(strings.TrimSpace(r.Currency)),
		Type:              categoryType,
		PaidDate:          paidDate,
	}, nil
}

func parseType(s string) (models.CategoryType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.CategoryTypeInflow):
		return models.CategoryTypeInflow, nil
	case string(models.CategoryTypeOutflow):
		return models.CategoryTypeOutflow, nil
	default:
		return "", fmt.Errorf("the type must be INFLOW or OUTFLOW, got %q", s)
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("could not parse the paid date %q", s)
}
