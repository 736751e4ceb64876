package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"draw-service/internal/logger"
	"draw-service/internal/models"
	"draw-service/pkg/common"
	"draw-service/pkg/errorx"
)

var defaultNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	defaultNode = node
}

// DefaultLedgerNode is the shared id generator for single-instance setups.
// Every LedgerService in one process must use the same node.
func DefaultLedgerNode() *snowflake.Node {
	return defaultNode
}

type LedgerService struct {
	DB    *gorm.DB
	Locks Locker
	Node  *snowflake.Node
	Rules Rules
}

func NewLedgerService(db *gorm.DB, locks Locker, node *snowflake.Node) *LedgerService {
	return &LedgerService{DB: db, Locks: locks, Node: node, Rules: DefaultRules()}
}

// TrxMeta carries the optional references stamped on a ledger row.
type TrxMeta struct {
	Description string
	DrawID      string
	TicketID    string
	TaskDate    string
	ApprovedBy  string
}

type BalanceMismatch struct {
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Replayed int64  `json:"replayed"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// LockUser takes the per-user lock. It must be taken before opening the DB
// transaction that touches the user's balance.
func (s *LedgerService) LockUser(ctx context.Context, userID string) (func(), error) {
	return s.Locks.Acquire(ctx, userLockKey(userID), s.Rules.LockWait)
}

// LoadUserTx reads the user row, locking it where the dialect supports it.
func (s *LedgerService) LoadUserTx(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// applyBalanceTx moves the cached balance by amount. Negative amounts only
// succeed while the balance covers them.
func applyBalanceTx(tx *gorm.DB, userID string, amount int64) error {
	q := tx.Model(&models.User{}).Where("id = ?", userID)
	if amount < 0 {
		q = q.Where("balance >= ?", -amount)
	}

	// Atomic update
	res := q.UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("update balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if count == 0 {
			return errorx.New(errorx.NotFound, "user %s", userID)
		}
		return errorx.New(errorx.InsufficientFunds, "need %d", -amount)
	}
	return nil
}

// PostTx appends a ledger row inside tx. Completed rows move the balance in the
// same transaction; pending rows leave it untouched.
func (s *LedgerService) PostTx(tx *gorm.DB, userID string, amount int64, typ models.TransactionType, status models.TransactionStatus, meta TrxMeta) (*models.Transaction, error) {
	trx := models.Transaction{
		ID:          s.Node.Generate().Int64(),
		UserID:      userID,
		Type:        typ,
		Amount:      amount,
		Status:      status,
		Description: meta.Description,
		DrawID:      optional(meta.DrawID),
		TicketID:    optional(meta.TicketID),
		TaskDate:    optional(meta.TaskDate),
		ApprovedBy:  meta.ApprovedBy,
	}

	if status == models.TrxCompleted {
		if err := applyBalanceTx(tx, userID, amount); err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		trx.SettledAt = &now
	}

	if err := tx.Create(&trx).Error; err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &trx, nil
}

type SettleDTO struct {
	TransactionID int64
	Status        models.TransactionStatus
	Reason        string
	AdminID       string
}

// SettleTx moves a pending row to completed or rejected. Only a completed
// row's amount reaches the balance, so approval never double counts.
func (s *LedgerService) SettleTx(tx *gorm.DB, data SettleDTO) (*models.Transaction, error) {
	switch data.Status {
	case models.TrxCompleted:
	case models.TrxRejected:
		if data.Reason == "" {
			return nil, errorx.New(errorx.ValidationError, "rejection reason is required")
		}
	default:
		return nil, errorx.New(errorx.ValidationError, "cannot settle to %q", data.Status)
	}

	var trx models.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trx, "id = ?", data.TransactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "transaction %d", data.TransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if trx.Status != models.TrxPending {
		return nil, errorx.New(errorx.AlreadyClaimed, "transaction %d is %s", trx.ID, trx.Status)
	}

	if data.Status == models.TrxCompleted {
		if err := applyBalanceTx(tx, trx.UserID, trx.Amount); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      data.Status,
		"approved_by": data.AdminID,
		"settled_at":  now,
	}
	if data.Status == models.TrxRejected {
		updates["rejection_reason"] = data.Reason
	}
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", trx.ID, models.TrxPending).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("settle transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errorx.New(errorx.AlreadyClaimed, "transaction %d", trx.ID)
	}

	trx.Status = data.Status
	trx.ApprovedBy = data.AdminID
	trx.SettledAt = &now
	if data.Status == models.TrxRejected {
		trx.RejectionReason = data.Reason
	}
	return &trx, nil
}

func (s *LedgerService) post(ctx context.Context, userID string, amount int64, typ models.TransactionType, status models.TransactionStatus, meta TrxMeta) (*models.Transaction, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	release, err := s.LockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	var trx *models.Transaction
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.LoadUserTx(tx, userID); err != nil {
			return err
		}
		var err error
		trx, err = s.PostTx(tx, userID, amount, typ, status, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// Credit records a completed positive transaction.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, typ models.TransactionType, meta TrxMeta) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, errorx.New(errorx.ValidationError, "amount must be positive")
	}
	return s.post(ctx, userID, amount, typ, models.TrxCompleted, meta)
}

// Debit records a completed negative transaction or fails with InsufficientFunds.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount int64, typ models.TransactionType, meta TrxMeta) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, errorx.New(errorx.ValidationError, "amount must be positive")
	}
	return s.post(ctx, userID, -amount, typ, models.TrxCompleted, meta)
}

// RecordPending appends a pending row. amount is signed; withdrawals are negative.
func (s *LedgerService) RecordPending(ctx context.Context, userID string, amount int64, typ models.TransactionType, meta TrxMeta) (*models.Transaction, error) {
	if amount == 0 {
		return nil, errorx.New(errorx.ValidationError, "amount must not be zero")
	}
	return s.post(ctx, userID, amount, typ, models.TrxPending, meta)
}

func (s *LedgerService) Settle(ctx context.Context, data SettleDTO) (*models.Transaction, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	var trx models.Transaction
	err := s.DB.WithContext(ctx).First(&trx, "id = ?", data.TransactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "transaction %d", data.TransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	release, err := s.LockUser(ctx, trx.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	var settled *models.Transaction
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		settled, err = s.SettleTx(tx, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// ManualAdjust posts an admin correction. Positive amounts credit, negative
// amounts debit and never overdraw.
func (s *LedgerService) ManualAdjust(ctx context.Context, userID string, amount int64, adminID, note string) (*models.Transaction, error) {
	meta := TrxMeta{Description: note, ApprovedBy: adminID}
	if meta.Description == "" {
		meta.Description = "Manual balance adjustment"
	}
	switch {
	case amount > 0:
		return s.Credit(ctx, userID, amount, models.TrxManualCredit, meta)
	case amount < 0:
		return s.Debit(ctx, userID, -amount, models.TrxManualDebit, meta)
	}
	return nil, errorx.New(errorx.ValidationError, "amount must not be zero")
}

func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).Select("balance").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errorx.New(errorx.NotFound, "user %s", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return user.Balance, nil
}

func (s *LedgerService) Transactions(ctx context.Context, userID string, page, limit int) (common.PaginationResult, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	page, limit, offset := common.NormalizePage(page, limit, 20)

	query := s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("count transactions: %w", err)
	}

	var rows []models.Transaction
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("list transactions: %w", err)
	}
	return common.PaginateResponse(rows, total, page, limit, "Transactions fetched"), nil
}

// Audit replays every user's completed transactions and returns the users
// whose cached balance disagrees with the replay.
func (s *LedgerService) Audit(ctx context.Context) ([]BalanceMismatch, error) {
	var rows []BalanceMismatch
	err := s.DB.WithContext(ctx).Raw(`
		SELECT u.id AS user_id, u.balance AS balance, COALESCE(SUM(t.amount), 0) AS replayed
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id AND t.status = ?
		GROUP BY u.id, u.balance
		HAVING u.balance <> COALESCE(SUM(t.amount), 0)`, models.TrxCompleted).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit ledger: %w", err)
	}
	for _, m := range rows {
		logger.Warningf("ledger mismatch for user %s: balance %d, replayed %d", m.UserID, m.Balance, m.Replayed)
	}
	return rows, nil
}
