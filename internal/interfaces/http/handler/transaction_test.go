package handler_test

import (
	"net/http"
	"testing"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionHandler_CreateDebitsAllocation(t *testing.T) {
	api := newAPIClient(t)
	allocation := api.disburse(1_000_000)

	status, env := api.do(http.MethodPost, "/transactions", spendBody(allocation.ID, 300_000))

	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	result := decode[appfunding.TransactionResult](t, env)
	require.NotNil(t, result.Transaction)
	assert.NotEmpty(t, result.Transaction.TransactionNumber)
	assert.Equal(t, int64(300_000), result.Allocation.SpentAmount)
	assert.Equal(t, int64(700_000), result.Allocation.RemainingAmount)
	assert.Equal(t, "PARTIALLY_SPENT", result.Allocation.Status)
}

func TestTransactionHandler_OverspendIsUnprocessable(t *testing.T) {
	api := newAPIClient(t)
	allocation := api.disburse(1_000_000)

	status, env := api.do(http.MethodPost, "/transactions", spendBody(allocation.ID, 1_000_001))

	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "OVERSPEND", env.Error.Code)

	status, env = api.do(http.MethodGet, "/allocations/"+allocation.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1_000_000), decode[appfunding.AllocationResponse](t, env).RemainingAmount)
}

func TestTransactionHandler_UpdateRebalances(t *testing.T) {
	api := newAPIClient(t)
	allocation := api.disburse(1_000_000)
	status, env := api.do(http.MethodPost, "/transactions", spendBody(allocation.ID, 300_000))
	require.Equal(t, http.StatusCreated, status)
	id := decode[appfunding.TransactionResult](t, env).Transaction.ID

	status, env = api.do(http.MethodPut, "/transactions/"+id.String(), gin.H{"amount": 450_000})

	require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	result := decode[appfunding.TransactionResult](t, env)
	assert.Equal(t, int64(450_000), result.Transaction.Amount)
	assert.Equal(t, int64(550_000), result.Allocation.RemainingAmount)
}

func TestTransactionHandler_ApprovedIsImmutable(t *testing.T) {
	api := newAPIClient(t)
	allocation := api.disburse(1_000_000)
	status, env := api.do(http.MethodPost, "/transactions", spendBody(allocation.ID, 300_000))
	require.Equal(t, http.StatusCreated, status)
	id := decode[appfunding.TransactionResult](t, env).Transaction.ID
	path := "/transactions/" + id.String()

	status, env = api.do(http.MethodPost, path+"/approve", gin.H{})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ERR_VALIDATION", env.Error.Code)

	status, env = api.do(http.MethodPost, path+"/approve", gin.H{"approved_by": "Treasurer"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Treasurer", decode[appfunding.TransactionResult](t, env).Transaction.ApprovedBy)

	status, env = api.do(http.MethodPut, path, gin.H{"amount": 1})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "TRANSACTION_APPROVED", env.Error.Code)

	status, env = api.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "TRANSACTION_APPROVED", env.Error.Code)
}

func TestTransactionHandler_DeleteCreditsBack(t *testing.T) {
	api := newAPIClient(t)
	allocation := api.disburse(1_000_000)
	status, env := api.do(http.MethodPost, "/transactions", spendBody(allocation.ID, 1_000_000))
	require.Equal(t, http.StatusCreated, status)
	created := decode[appfunding.TransactionResult](t, env)
	assert.Equal(t, "FULLY_SPENT", created.Allocation.Status)

	status, env = api.do(http.MethodDelete, "/transactions/"+created.Transaction.ID.String(), nil)

	require.Equal(t, http.StatusOK, status)
	result := decode[appfunding.TransactionResult](t, env)
	assert.Nil(t, result.Transaction)
	assert.Equal(t, int64(1_000_000), result.Allocation.RemainingAmount)
	assert.Equal(t, "ACTIVE", result.Allocation.Status)

	status, _ = api.do(http.MethodGet, "/transactions/"+created.Transaction.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTransactionHandler_ListByAllocation(t *testing.T) {
	api := newAPIClient(t)
	first := api.disburse(1_000_000)
	second := api.disburse(1_000_000)
	for _, amount := range []int64{100_000, 200_000} {
		status, _ := api.do(http.MethodPost, "/transactions", spendBody(first.ID, amount))
		require.Equal(t, http.StatusCreated, status)
	}
	status, _ := api.do(http.MethodPost, "/transactions", spendBody(second.ID, 50_000))
	require.Equal(t, http.StatusCreated, status)

	status, env := api.do(http.MethodGet, "/transactions?allocation_id="+first.ID.String(), nil)

	require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	items := decode[[]appfunding.TransactionResponse](t, env)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), env.Meta.Total)
}
