package importer

import (
	"strings"
	"time"

	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/ryanuber/go-glob"
)

type mappingKey struct {
	bankCategory string
	categoryType models.CategoryType
}

// mappingIndex resolves (bank category, type) pairs to mappings. Exact
// matches win over glob patterns, patterns are tried in configuration order.
type mappingIndex struct {
	exact    map[mappingKey]models.CategoryMapping
	patterns []models.CategoryMapping
}

func newMappingIndex(mappings []models.CategoryMapping) mappingIndex {
	index := mappingIndex{
		exact: make(map[mappingKey]models.CategoryMapping, len(mappings)),
	}

	for _, m := range mappings {
		if strings.Contains(m.BankCategory, "*") {
			index.patterns = append(index.patterns, m)
			continue
		}

		index.exact[mappingKey{m.BankCategory, m.Type}] = m
	}

	return index
}

func (i mappingIndex) resolve(bankCategory string, categoryType models.CategoryType) (models.CategoryMapping, bool) {
	if m, ok := i.exact[mappingKey{bankCategory, categoryType}]; ok {
		return m, true
	}

	for _, m := range i.patterns {
		if m.Type == categoryType && glob.Glob(m.BankCategory, bankCategory) {
			return m, true
		}
	}

	return models.CategoryMapping{}, false
}

// buildOriginal copies the raw fields as they were uploaded.
func buildOriginal(raw RawBankTransaction) models.OriginalTransactionData {
	return models.OriginalTransactionData{
		BankTransactionID: raw.BankTransactionID,
		Name:              raw.Name,
		Description:       raw.Description,
		BankCategory:      raw.BankCategory,
		Amount:            raw.Amount,
		Currency:          raw.Currency,
		Type:              raw.Type,
		PaidDate:          raw.PaidDate.In(time.UTC),
	}
}

// buildMapped snapshots the mapping resolution for a transaction.
func buildMapped(original models.OriginalTransactionData, mapping models.CategoryMapping) *models.MappedTransactionData {
	name, parent := mapping.ResolvedTarget()

	return &models.MappedTransactionData{
		Name:           original.Name,
		Description:    original.Description,
		Category:       name,
		ParentCategory: parent,
		Action:         mapping.Action,
		Amount:         original.Amount,
		Currency:       original.Currency,
		Type:           original.Type,
		PaidDate:       original.PaidDate,
	}
}

// validate classifies a single transaction against the ledger snapshot.
// A duplicate pre-empts every other check.
func validate(original models.OriginalTransactionData, info ledger.Info, now time.Time) models.TransactionValidation {
	if original.BankTransactionID != "" {
		if _, ok := info.ExistingTransactionIDs[original.BankTransactionID]; ok {
			return models.ValidationResultDuplicate(original.BankTransactionID)
		}
	}

	var errs []string

	if info.Status != models.CashFlowStatusSetup {
		errs = append(errs, "historical import requires the cash flow to be in setup mode")
	}

	paidPeriod := types.MonthOf(original.PaidDate)
	if !paidPeriod.Before(info.ActivePeriod) {
		errs = append(errs, "the paid date must be before the active accounting period")
	}

	if paidPeriod.Before(info.StartPeriod) {
		errs = append(errs, "the paid date must not be before the cash flow start period")
	}

	if original.PaidDate.After(now) {
		errs = append(errs, "the paid date must not be in the future")
	}

	if len(errs) > 0 {
		return models.ValidationResultInvalid(errs)
	}

	return models.ValidationResultValid()
}
