package importer

import (
	"github.com/flowledger/backend/internal/ledger"
	"github.com/flowledger/backend/internal/models"
	"github.com/flowledger/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// Stage converts a batch of raw bank transactions into a staging session.
//
// When any bank category/type pair in the batch has no configured mapping,
// nothing is persisted and the result lists the unmapped pairs. With
// opts.KeepUnmapped the affected transactions are persisted as PENDING_MAPPING
// instead and can be completed via Revalidate later.
func (e *Engine) Stage(cashFlowID uuid.UUID, raw []RawBankTransaction, opts StageOptions) (StagingResult, error) {
	if len(raw) == 0 {
		return StagingResult{}, ErrBatchEmpty
	}

	info, err := e.ledger.GetInfo(cashFlowID)
	if err != nil {
		return StagingResult{}, err
	}

	mappings, err := e.mappings.FindByCashFlowID(cashFlowID)
	if err != nil {
		return StagingResult{}, err
	}

	index := newMappingIndex(mappings)
	unmapped := collectUnmapped(raw, index)

	if len(unmapped) > 0 && !opts.KeepUnmapped {
		// All-or-nothing gate: no staged transaction is persisted when any
		// mapping is missing
		return StagingResult{
			Status:             StagingHasUnmappedCategories,
			TotalCount:         len(raw),
			UnmappedCategories: unmapped,
		}, nil
	}

	now := e.clock.Now()
	sessionID := uuid.New()
	expiresAt := now.Add(e.stagingTTL())

	staged := make([]models.StagedTransaction, 0, len(raw))
	for _, r := range raw {
		original := buildOriginal(r)

		s := models.StagedTransaction{
			CashFlowID:       cashFlowID,
			StagingSessionID: sessionID,
			Original:         original,
			ExpiresAt:        expiresAt,
		}

		mapping, ok := index.resolve(original.BankCategory, original.Type)
		if ok {
			s.Mapped = buildMapped(original, mapping)
			s.Validation = validate(original, info, now)
		} else {
			s.Validation = models.ValidationResultPending()
		}

		staged = append(staged, s)
	}

	err = e.staged.SaveAll(staged)
	if err != nil {
		return StagingResult{}, err
	}

	result := e.buildStagingResult(staged, index, info)
	result.StagingSessionID = sessionID
	result.ExpiresAt = expiresAt
	result.UnmappedCategories = unmapped

	e.log.Info().
		Str("cashFlow", cashFlowID.String()).
		Str("stagingSession", sessionID.String()).
		Str("status", string(result.Status)).
		Int("transactions", result.TotalCount).
		Msg("staged transactions")

	return result, nil
}

// collectUnmapped returns the bank category/type pairs of the batch that have
// no mapping, in order of first occurrence, with occurrence counts.
func collectUnmapped(raw []RawBankTransaction, index mappingIndex) []UnmappedCategory {
	var unmapped []UnmappedCategory
	positions := make(map[mappingKey]int)

	for _, r := range raw {
		if _, ok := index.resolve(r.BankCategory, r.Type); ok {
			continue
		}

		key := mappingKey{r.BankCategory, r.Type}
		if pos, seen := positions[key]; seen {
			unmapped[pos].Occurrences++
			continue
		}

		positions[key] = len(unmapped)
		unmapped = append(unmapped, UnmappedCategory{
			BankCategory: r.BankCategory,
			Type:         r.Type,
			Occurrences:  1,
		})
	}

	return unmapped
}

// buildStagingResult computes the counts and breakdowns over a persisted
// session. Breakdowns only cover valid transactions. Category breakdowns keep
// the order of first occurrence, monthly breakdowns are chronological.
func (e *Engine) buildStagingResult(staged []models.StagedTransaction, index mappingIndex, info ledger.Info) StagingResult {
	result := StagingResult{
		TotalCount: len(staged),
	}

	type categoryAggregate struct {
		breakdown CategoryBreakdown
		create    *CategoryToCreate
	}

	var categoryOrder []mappingKey
	categories := make(map[mappingKey]*categoryAggregate)

	var monthOrder []types.Month
	months := make(map[types.Month]*MonthBreakdown)

	for _, s := range staged {
		switch s.Validation.Status {
		case models.ValidationPendingMapping:
			result.PendingCount++
			continue
		case models.ValidationDuplicate:
			result.DuplicateCount++
			result.Duplicates = append(result.Duplicates, DuplicateTransaction{
				BankTransactionID: s.Original.BankTransactionID,
				Name:              s.Original.Name,
			})
			continue
		case models.ValidationInvalid:
			result.InvalidCount++
			continue
		}

		result.ValidCount++

		key := mappingKey{s.Mapped.Category, s.Mapped.Type}
		aggregate, ok := categories[key]
		if !ok {
			aggregate = &categoryAggregate{
				breakdown: CategoryBreakdown{
					Category: s.Mapped.Category,
					Type:     s.Mapped.Type,
					Currency: s.Mapped.Currency,
					IsNew:    !info.HasCategory(s.Mapped.Category, s.Mapped.Type),
				},
			}

			mapping, _ := index.resolve(s.Original.BankCategory, s.Original.Type)
			if mapping.CreatesCategory() && !info.HasCategory(s.Mapped.Category, s.Mapped.Type) {
				aggregate.create = &CategoryToCreate{
					Name:   s.Mapped.Category,
					Parent: s.Mapped.ParentCategory,
					Type:   s.Mapped.Type,
				}
			}

			categories[key] = aggregate
			categoryOrder = append(categoryOrder, key)
		}

		aggregate.breakdown.Count++
		aggregate.breakdown.Total = aggregate.breakdown.Total.Add(s.Mapped.Amount)

		month := types.MonthOf(s.Mapped.PaidDate)
		breakdown, ok := months[month]
		if !ok {
			breakdown = &MonthBreakdown{Month: month, Inflow: decimal.Zero, Outflow: decimal.Zero}
			months[month] = breakdown
			monthOrder = append(monthOrder, month)
		}

		if s.Mapped.Type == models.CategoryTypeInflow {
			breakdown.Inflow = breakdown.Inflow.Add(s.Mapped.Amount)
		} else {
			breakdown.Outflow = breakdown.Outflow.Add(s.Mapped.Amount)
		}
	}

	for _, key := range categoryOrder {
		result.CategoryBreakdowns = append(result.CategoryBreakdowns, categories[key].breakdown)
		if categories[key].create != nil {
			result.CategoriesToCreate = append(result.CategoriesToCreate, *categories[key].create)
		}
	}

	slices.SortFunc(monthOrder, func(a, b types.Month) int {
		if a.Before(b) {
			return -1
		} else if a.After(b) {
			return 1
		}
		return 0
	})

	for _, month := range monthOrder {
		result.MonthlyBreakdowns = append(result.MonthlyBreakdowns, *months[month])
	}

	switch {
	case result.PendingCount > 0:
		result.Status = StagingHasUnmappedCategories
	case result.InvalidCount > 0:
		result.Status = StagingHasValidationErrors
	default:
		result.Status = StagingReadyForImport
	}

	return result
}
