package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransaction(t *testing.T, a *Allocation, amount int64) *Transaction {
	tx, err := NewTransaction(a, 1, CategoryFoodProcurement, amount, time.Now(), "rice and eggs")
	require.NoError(t, err)
	return tx
}

func TestFormatTransactionNumber(t *testing.T) {
	assert.Equal(t, "TRX-000001", FormatTransactionNumber(1))
	assert.Equal(t, "TRX-012345", FormatTransactionNumber(12345))
	assert.Equal(t, "TRX-1234567", FormatTransactionNumber(1234567))
}

func TestNewTransaction(t *testing.T) {
	a := createTestAllocation(t, 100)

	t.Run("creates with valid inputs", func(t *testing.T) {
		tx, err := NewTransaction(a, 7, CategoryTransport, 25, time.Now(), " fuel ")
		require.NoError(t, err)
		assert.Equal(t, a.ID, tx.AllocationID)
		assert.Equal(t, a.Scope(), tx.Scope())
		assert.Equal(t, "TRX-000007", tx.TransactionNumber)
		assert.Equal(t, "fuel", tx.Description)
		assert.False(t, tx.IsApproved())
		require.Len(t, tx.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeTransactionRecorded, tx.GetDomainEvents()[0].EventType())
	})

	tests := []struct {
		name     string
		category TransactionCategory
		amount   int64
		date     time.Time
		desc     string
	}{
		{"zero amount", CategoryOther, 0, time.Now(), ""},
		{"negative amount", CategoryOther, -5, time.Now(), ""},
		{"unknown category", TransactionCategory("GIFTS"), 5, time.Now(), ""},
		{"missing date", CategoryOther, 5, time.Time{}, ""},
		{"description too long", CategoryOther, 5, time.Now(), strings.Repeat("x", 501)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(a, 1, tt.category, tt.amount, tt.date, tt.desc)
			assert.ErrorIs(t, err, shared.ErrValidationFailed)
		})
	}
}

func TestTransaction_Update(t *testing.T) {
	a := createTestAllocation(t, 100)
	tx := createTestTransaction(t, a, 40)

	newAmount := int64(55)
	newCategory := CategoryUtilities
	changes := TransactionChanges{Amount: &newAmount, Category: &newCategory}
	assert.True(t, changes.ChangesAmount(tx))

	old, err := tx.Update(changes)
	require.NoError(t, err)
	assert.Equal(t, int64(40), old)
	assert.Equal(t, int64(55), tx.Amount)
	assert.Equal(t, CategoryUtilities, tx.Category)
	assert.Equal(t, "rice and eggs", tx.Description)

	bad := int64(0)
	_, err = tx.Update(TransactionChanges{Amount: &bad})
	assert.ErrorIs(t, err, shared.ErrValidationFailed)
	assert.Equal(t, int64(55), tx.Amount)
}

func TestTransaction_ApprovedIsImmutable(t *testing.T) {
	a := createTestAllocation(t, 100)
	tx := createTestTransaction(t, a, 40)

	assert.ErrorIs(t, tx.Approve(""), shared.ErrValidationFailed)
	require.NoError(t, tx.Approve("program treasurer"))
	require.NotNil(t, tx.ApprovedAt)
	assert.Equal(t, "program treasurer", tx.ApprovedBy)

	assert.ErrorIs(t, tx.Approve("someone else"), shared.ErrImmutableRecord)

	amount := int64(1)
	_, err := tx.Update(TransactionChanges{Amount: &amount})
	assert.ErrorIs(t, err, shared.ErrImmutableRecord)
	assert.ErrorIs(t, tx.MarkDeleted(), shared.ErrImmutableRecord)
	assert.Equal(t, int64(40), tx.Amount)
	assert.False(t, tx.IsDeleted())
}

func TestTransaction_MarkDeleted(t *testing.T) {
	a := createTestAllocation(t, 100)
	tx := createTestTransaction(t, a, 40)

	require.NoError(t, tx.MarkDeleted())
	assert.True(t, tx.IsDeleted())
	assert.ErrorIs(t, tx.MarkDeleted(), shared.ErrNotFound)
	assert.ErrorIs(t, tx.Approve("x"), shared.ErrNotFound)
}
