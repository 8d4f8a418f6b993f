package importer

import (
	"github.com/flowledger/backend/internal/models"
	"github.com/google/uuid"
)

// Revalidate re-applies the current mappings to the PENDING_MAPPING
// transactions of a staging session. Transactions that are already resolved
// are carried through unchanged, so the operation is idempotent on them.
func (e *Engine) Revalidate(cashFlowID, sessionID uuid.UUID) (RevalidationResult, error) {
	staged, err := e.staged.FindByStagingSessionID(sessionID)
	if err != nil {
		return RevalidationResult{}, err
	}

	if len(staged) == 0 || staged[0].CashFlowID != cashFlowID {
		return RevalidationResult{}, ErrSessionNotFound
	}

	// All transactions of a session share one expiry, checking the first
	// member is sufficient. Store-side TTL cleanup is eventually consistent,
	// so this check is required even though expired rows are dropped.
	now := e.clock.Now()
	if staged[0].Expired(now) {
		return RevalidationResult{}, ErrSessionExpired
	}

	info, err := e.ledger.GetInfo(cashFlowID)
	if err != nil {
		return RevalidationResult{}, err
	}

	mappings, err := e.mappings.FindByCashFlowID(cashFlowID)
	if err != nil {
		return RevalidationResult{}, err
	}

	index := newMappingIndex(mappings)

	result := RevalidationResult{
		StagingSessionID: sessionID,
		TotalCount:       len(staged),
	}

	stillUnmapped := make(map[mappingKey]int)
	var unmappedOrder []mappingKey

	for i := range staged {
		s := &staged[i]

		if s.Validation.Status != models.ValidationPendingMapping {
			continue
		}

		mapping, ok := index.resolve(s.Original.BankCategory, s.Original.Type)
		if !ok {
			key := mappingKey{s.Original.BankCategory, s.Original.Type}
			if _, seen := stillUnmapped[key]; !seen {
				unmappedOrder = append(unmappedOrder, key)
			}
			stillUnmapped[key]++
			continue
		}

		s.Mapped = buildMapped(s.Original, mapping)
		s.Validation = validate(s.Original, info, now)
		result.RevalidatedCount++
	}

	// Full batch overwrite keeps the shared-expiry invariant trivially intact
	err = e.staged.SaveAll(staged)
	if err != nil {
		return RevalidationResult{}, err
	}

	for _, s := range staged {
		switch s.Validation.Status {
		case models.ValidationPendingMapping:
			result.StillPendingCount++
		case models.ValidationValid:
			result.ValidCount++
		case models.ValidationInvalid:
			result.InvalidCount++
		case models.ValidationDuplicate:
			result.DuplicateCount++
		}
	}

	for _, key := range unmappedOrder {
		result.StillUnmapped = append(result.StillUnmapped, UnmappedCategory{
			BankCategory: key.bankCategory,
			Type:         key.categoryType,
			Occurrences:  stillUnmapped[key],
		})
	}

	if result.StillPendingCount > 0 {
		result.Status = RevalidationStillUnmapped
	} else {
		result.Status = RevalidationSuccess
	}

	e.log.Info().
		Str("cashFlow", cashFlowID.String()).
		Str("stagingSession", sessionID.String()).
		Str("status", string(result.Status)).
		Int("revalidated", result.RevalidatedCount).
		Int("stillPending", result.StillPendingCount).
		Msg("revalidated staging session")

	return result, nil
}
