package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-service/internal/models"
	"draw-service/internal/services"
	"draw-service/internal/testutil"
	"draw-service/pkg/errorx"
)

func TestLedgerCreditDebit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 0)

	trx, err := e.ledger.Credit(ctx, "u1", 500, models.TrxManualCredit, services.TrxMeta{Description: "top up"})
	require.NoError(t, err)
	assert.Equal(t, models.TrxCompleted, trx.Status)
	assert.NotNil(t, trx.SettledAt)
	assert.Equal(t, int64(500), e.balance(t, "u1"))

	trx, err = e.ledger.Debit(ctx, "u1", 200, models.TrxManualDebit, services.TrxMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(-200), trx.Amount)
	assert.Equal(t, int64(300), e.balance(t, "u1"))

	_, err = e.ledger.Debit(ctx, "u1", 301, models.TrxManualDebit, services.TrxMeta{})
	require.ErrorIs(t, err, errorx.ErrInsufficientFunds)
	assert.Equal(t, int64(300), e.balance(t, "u1"))

	e.requireConsistent(t)
}

func TestLedgerValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 100)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"zero credit", func() error {
			_, err := e.ledger.Credit(ctx, "u1", 0, models.TrxManualCredit, services.TrxMeta{})
			return err
		}, errorx.ErrValidation},
		{"negative debit", func() error {
			_, err := e.ledger.Debit(ctx, "u1", -5, models.TrxManualDebit, services.TrxMeta{})
			return err
		}, errorx.ErrValidation},
		{"zero pending", func() error {
			_, err := e.ledger.RecordPending(ctx, "u1", 0, models.TrxDeposit, services.TrxMeta{})
			return err
		}, errorx.ErrValidation},
		{"unknown user", func() error {
			_, err := e.ledger.Credit(ctx, "ghost", 10, models.TrxManualCredit, services.TrxMeta{})
			return err
		}, errorx.ErrNotFound},
		{"zero adjust", func() error {
			_, err := e.ledger.ManualAdjust(ctx, "u1", 0, "admin", "")
			return err
		}, errorx.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), tt.want)
		})
	}
}

func TestLedgerSettle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 0)

	pending, err := e.ledger.RecordPending(ctx, "u1", 1000, models.TrxDeposit, services.TrxMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.TrxPending, pending.Status)
	assert.Equal(t, int64(0), e.balance(t, "u1"))

	settled, err := e.ledger.Settle(ctx, services.SettleDTO{TransactionID: pending.ID, Status: models.TrxCompleted, AdminID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, models.TrxCompleted, settled.Status)
	assert.Equal(t, "admin", settled.ApprovedBy)
	assert.Equal(t, int64(1000), e.balance(t, "u1"))

	_, err = e.ledger.Settle(ctx, services.SettleDTO{TransactionID: pending.ID, Status: models.TrxCompleted, AdminID: "admin"})
	require.ErrorIs(t, err, errorx.ErrAlreadyClaimed)
	assert.Equal(t, int64(1000), e.balance(t, "u1"))

	other, err := e.ledger.RecordPending(ctx, "u1", 50, models.TrxDeposit, services.TrxMeta{})
	require.NoError(t, err)
	_, err = e.ledger.Settle(ctx, services.SettleDTO{TransactionID: other.ID, Status: models.TrxRejected, AdminID: "admin"})
	require.ErrorIs(t, err, errorx.ErrValidation)

	rejected, err := e.ledger.Settle(ctx, services.SettleDTO{TransactionID: other.ID, Status: models.TrxRejected, Reason: "no receipt", AdminID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "no receipt", rejected.RejectionReason)
	assert.Equal(t, int64(1000), e.balance(t, "u1"))

	_, err = e.ledger.Settle(ctx, services.SettleDTO{TransactionID: 12345, Status: models.TrxCompleted})
	require.ErrorIs(t, err, errorx.ErrNotFound)

	e.requireConsistent(t)
}

func TestLedgerSettleNegativeRechecksBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 300)

	pending, err := e.ledger.RecordPending(ctx, "u1", -250, models.TrxWithdrawal, services.TrxMeta{})
	require.NoError(t, err)

	_, err = e.ledger.Debit(ctx, "u1", 100, models.TrxManualDebit, services.TrxMeta{})
	require.NoError(t, err)

	_, err = e.ledger.Settle(ctx, services.SettleDTO{TransactionID: pending.ID, Status: models.TrxCompleted})
	require.ErrorIs(t, err, errorx.ErrInsufficientFunds)
	assert.Equal(t, int64(200), e.balance(t, "u1"))

	var stored models.Transaction
	require.NoError(t, e.db.First(&stored, "id = ?", pending.ID).Error)
	assert.Equal(t, models.TrxPending, stored.Status)
}

func TestLedgerManualAdjust(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 100)

	trx, err := e.ledger.ManualAdjust(ctx, "u1", 50, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, models.TrxManualCredit, trx.Type)
	assert.Equal(t, "admin", trx.ApprovedBy)

	trx, err = e.ledger.ManualAdjust(ctx, "u1", -150, "admin", "chargeback")
	require.NoError(t, err)
	assert.Equal(t, models.TrxManualDebit, trx.Type)
	assert.Equal(t, "chargeback", trx.Description)
	assert.Equal(t, int64(0), e.balance(t, "u1"))

	_, err = e.ledger.ManualAdjust(ctx, "u1", -1, "admin", "")
	require.ErrorIs(t, err, errorx.ErrInsufficientFunds)
}

func TestLedgerAuditDetectsDrift(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 100)
	testutil.CreateUser(t, e.db, "u2", 100)
	e.requireConsistent(t)

	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", "u2").UpdateColumn("balance", 999).Error)

	mismatches, err := e.ledger.Audit(ctx)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "u2", mismatches[0].UserID)
	assert.Equal(t, int64(999), mismatches[0].Balance)
	assert.Equal(t, int64(100), mismatches[0].Replayed)
}

func TestLedgerTransactionsPaginated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.db, "u1", 0)

	for i := 0; i < 5; i++ {
		_, err := e.ledger.Credit(ctx, "u1", 10, models.TrxManualCredit, services.TrxMeta{})
		require.NoError(t, err)
	}

	page, err := e.ledger.Transactions(ctx, "u1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.NextPage)
	assert.Equal(t, 3, page.LastPage)
	assert.Len(t, page.Data, 2)
}

func TestLedgerRowsAreAppendOnly(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "u1", 100)

	var trx models.Transaction
	require.NoError(t, e.db.First(&trx, "user_id = ?", "u1").Error)
	require.ErrorIs(t, e.db.Delete(&trx).Error, models.ErrLedgerAppendOnly)

	var count int64
	require.NoError(t, e.db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
