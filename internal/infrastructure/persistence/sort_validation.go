package persistence

import (
	"fmt"
	"strings"

	"github.com/banper/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// FundingRequestSortFields contains allowed sort fields for funding requests
var FundingRequestSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"request_number":   true,
	"requested_amount": true,
	"status":           true,
	"submitted_at":     true,
}

// AllocationSortFields contains allowed sort fields for allocations
var AllocationSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"fiscal_year":      true,
	"allocated_amount": true,
	"remaining_amount": true,
	"status":           true,
}

// TransactionSortFields contains allowed sort fields for transactions
var TransactionSortFields = map[string]bool{
	"created_at":       true,
	"transaction_date": true,
	"sequence":         true,
	"amount":           true,
	"category":         true,
}

// applyPage orders and paginates query. The id tiebreaker keeps pages stable.
func applyPage(query *gorm.DB, page shared.Page, allowed map[string]bool) *gorm.DB {
	page = page.Normalize()
	sortField := ValidateSortField(page.OrderBy, allowed, "created_at")
	sortOrder := ValidateSortOrder(page.OrderDir)
	return query.
		Order(fmt.Sprintf("%s %s, id %s", sortField, sortOrder, sortOrder)).
		Limit(page.PageSize).
		Offset(page.Offset())
}
