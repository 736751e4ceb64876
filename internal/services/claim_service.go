package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"draw-service/internal/logger"
	"draw-service/internal/models"
	"draw-service/pkg/common"
	"draw-service/pkg/errorx"
)

const dateLayout = "2006-01-02"

type ClaimService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Dispatcher Dispatcher
	Rules      Rules
}

func NewClaimService(db *gorm.DB, ledger *LedgerService, dispatcher Dispatcher, rules Rules) *ClaimService {
	return &ClaimService{DB: db, Ledger: ledger, Dispatcher: dispatcher, Rules: rules}
}

type DepositDTO struct {
	UserID        string `json:"-" validate:"required"`
	Amount        int64  `json:"amount" validate:"gt=0"`
	Method        string `json:"method" validate:"required,max=50"`
	ExternalTxnID string `json:"external_txn_id" validate:"required,max=100"`
	SenderName    string `json:"sender_name" validate:"required,max=150"`
	SenderNumber  string `json:"sender_number" validate:"max=50"`
	ReceiptRef    string `json:"receipt_ref" validate:"max=255"`
}

type WithdrawalDTO struct {
	UserID        string `json:"-" validate:"required"`
	Amount        int64  `json:"amount" validate:"gt=0"`
	Method        string `json:"method" validate:"required,max=50"`
	AccountName   string `json:"account_name" validate:"required,max=150"`
	AccountNumber string `json:"account_number" validate:"required,max=50"`
	BankName      string `json:"bank_name" validate:"max=150"`
}

type ClaimView struct {
	models.Transaction
	Transfer *models.TransferDetail `json:"transfer,omitempty"`
}

// withUser runs fn in one DB transaction under the user's lock.
func (s *ClaimService) withUser(ctx context.Context, userID string, fn func(tx *gorm.DB) error) error {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	release, err := s.Ledger.LockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	return s.DB.WithContext(ctx).Transaction(fn)
}

// SubmitPrizeClaim opens a pending prize-claim for a winning ticket. The
// returned transaction id is the claim id.
func (s *ClaimService) SubmitPrizeClaim(ctx context.Context, userID, drawID, ticketID string) (*models.Transaction, error) {
	var trx *models.Transaction
	err := s.withUser(ctx, userID, func(tx *gorm.DB) error {
		var winner models.Winner
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("draw_id = ? AND user_id = ? AND ticket_id = ?", drawID, userID, ticketID).
			First(&winner).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotAWinner, "ticket %s", ticketID)
		}
		if err != nil {
			return fmt.Errorf("load winner: %w", err)
		}
		if winner.Claimed || winner.Rejected {
			return errorx.New(errorx.AlreadyClaimed, "ticket %s", ticketID)
		}

		trx, err = s.Ledger.PostTx(tx, userID, winner.Prize, models.TrxPrizeClaim, models.TrxPending, TrxMeta{
			Description: fmt.Sprintf("Prize claim for place %d", winner.Place),
			DrawID:      drawID,
			TicketID:    ticketID,
		})
		if err != nil {
			return err
		}

		res := tx.Model(&models.Winner{}).
			Where("id = ? AND claimed = ?", winner.ID, false).
			UpdateColumns(map[string]interface{}{
				"claimed":              true,
				"claim_timestamp":      time.Now().UTC(),
				"claim_transaction_id": trx.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("mark claimed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errorx.New(errorx.AlreadyClaimed, "ticket %s", ticketID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Prize claim %d submitted by %s", trx.ID, userID)
	return trx, nil
}

// SubmitTaskReward opens a pending task-reward once every enabled task of the
// day is complete.
func (s *ClaimService) SubmitTaskReward(ctx context.Context, userID, date string) (*models.Transaction, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, errorx.New(errorx.ValidationError, "date must be YYYY-MM-DD")
	}

	var trx *models.Transaction
	err := s.withUser(ctx, userID, func(tx *gorm.DB) error {
		var progress models.DailyTaskProgress
		err := tx.First(&progress, "id = ?", models.ProgressID(userID, date)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.TasksIncomplete, "no tasks completed on %s", date)
		}
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		if progress.RewardClaimed {
			return errorx.New(errorx.AlreadyClaimed, "reward for %s", date)
		}

		var tasks []models.TaskDefinition
		if err := tx.Where("enabled = ?", true).Find(&tasks).Error; err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		if len(tasks) == 0 {
			return errorx.New(errorx.TasksIncomplete, "no tasks available")
		}
		done := 0
		for _, t := range tasks {
			if progress.CompletedTasks[t.ID] {
				done++
			}
		}
		if done < len(tasks) {
			return errorx.New(errorx.TasksIncomplete, "%d of %d tasks done", done, len(tasks))
		}

		trx, err = s.Ledger.PostTx(tx, userID, s.Rules.TaskReward, models.TrxTaskReward, models.TrxPending, TrxMeta{
			Description: "Daily tasks reward",
			TaskDate:    date,
		})
		if err != nil {
			return err
		}

		res := tx.Model(&models.DailyTaskProgress{}).
			Where("id = ? AND reward_claimed = ?", progress.ID, false).
			UpdateColumns(map[string]interface{}{
				"reward_claimed":  true,
				"reward_claim_id": trx.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("mark reward claimed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errorx.New(errorx.AlreadyClaimed, "reward for %s", date)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// SubmitDeposit records a human-reconciled deposit with its proof of payment.
func (s *ClaimService) SubmitDeposit(ctx context.Context, data DepositDTO) (*models.Transaction, error) {
	if err := validateDTO(data); err != nil {
		return nil, err
	}

	var trx *models.Transaction
	err := s.withUser(ctx, data.UserID, func(tx *gorm.DB) error {
		if _, err := s.Ledger.LoadUserTx(tx, data.UserID); err != nil {
			return err
		}
		var err error
		trx, err = s.Ledger.PostTx(tx, data.UserID, data.Amount, models.TrxDeposit, models.TrxPending, TrxMeta{
			Description: fmt.Sprintf("Deposit via %s", data.Method),
		})
		if err != nil {
			return err
		}
		detail := models.TransferDetail{
			TransactionID: trx.ID,
			Method:        data.Method,
			ExternalTxnID: data.ExternalTxnID,
			SenderName:    data.SenderName,
			SenderNumber:  data.SenderNumber,
			ReceiptRef:    data.ReceiptRef,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return fmt.Errorf("save transfer detail: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

// RequestWithdrawal records a pending payout. Funds already promised to other
// pending withdrawals are not available.
func (s *ClaimService) RequestWithdrawal(ctx context.Context, data WithdrawalDTO) (*models.Transaction, error) {
	if err := validateDTO(data); err != nil {
		return nil, err
	}

	var trx *models.Transaction
	err := s.withUser(ctx, data.UserID, func(tx *gorm.DB) error {
		user, err := s.Ledger.LoadUserTx(tx, data.UserID)
		if err != nil {
			return err
		}
		if user.Status != models.UserStatusActive {
			return errorx.New(errorx.UserInactive, "user %s", data.UserID)
		}

		var reserved int64
		err = tx.Model(&models.Transaction{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("user_id = ? AND type = ? AND status = ?", data.UserID, models.TrxWithdrawal, models.TrxPending).
			Scan(&reserved).Error
		if err != nil {
			return fmt.Errorf("sum pending withdrawals: %w", err)
		}
		if user.Balance+reserved < data.Amount {
			return errorx.New(errorx.InsufficientFunds, "available %d", user.Balance+reserved)
		}

		trx, err = s.Ledger.PostTx(tx, data.UserID, -data.Amount, models.TrxWithdrawal, models.TrxPending, TrxMeta{
			Description: fmt.Sprintf("Withdrawal via %s", data.Method),
		})
		if err != nil {
			return err
		}
		detail := models.TransferDetail{
			TransactionID: trx.ID,
			Method:        data.Method,
			AccountName:   data.AccountName,
			AccountNumber: data.AccountNumber,
			BankName:      data.BankName,
		}
		if err := tx.Create(&detail).Error; err != nil {
			return fmt.Errorf("save transfer detail: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trx, nil
}

func (s *ClaimService) ApproveClaim(ctx context.Context, claimID int64, adminID string) (*models.Transaction, error) {
	return s.settle(ctx, SettleDTO{TransactionID: claimID, Status: models.TrxCompleted, AdminID: adminID})
}

func (s *ClaimService) RejectClaim(ctx context.Context, claimID int64, adminID, reason string) (*models.Transaction, error) {
	if reason == "" {
		return nil, errorx.New(errorx.ValidationError, "rejection reason is required")
	}
	return s.settle(ctx, SettleDTO{TransactionID: claimID, Status: models.TrxRejected, Reason: reason, AdminID: adminID})
}

func (s *ClaimService) settle(ctx context.Context, data SettleDTO) (*models.Transaction, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	var claim models.Transaction
	err := s.DB.WithContext(ctx).First(&claim, "id = ?", data.TransactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "claim %d", data.TransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}
	if !claim.Type.Claimable() {
		return nil, errorx.New(errorx.ValidationError, "transaction %d is not a claim", claim.ID)
	}

	approved := data.Status == models.TrxCompleted
	var settled *models.Transaction
	err = s.withUser(ctx, claim.UserID, func(tx *gorm.DB) error {
		var err error
		settled, err = s.Ledger.SettleTx(tx, data)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch settled.Type {
		case models.TrxPrizeClaim:
			updates := map[string]interface{}{"rejected": true}
			if approved {
				updates = map[string]interface{}{"approved": true, "approved_at": now, "approved_by": data.AdminID}
			}
			err = tx.Model(&models.Winner{}).Where("claim_transaction_id = ?", settled.ID).UpdateColumns(updates).Error
		case models.TrxTaskReward:
			column := "reward_rejected"
			if approved {
				column = "reward_approved"
			}
			err = tx.Model(&models.DailyTaskProgress{}).Where("reward_claim_id = ?", settled.ID).UpdateColumn(column, true).Error
		}
		if err != nil {
			return fmt.Errorf("update claim source: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := NotificationEvent{
		Kind:    EventClaimSettled,
		UserID:  settled.UserID,
		ClaimID: settled.ID,
		Status:  string(settled.Status),
		Message: fmt.Sprintf("Your %s of %d was %s", settled.Type, abs(settled.Amount), settled.Status),
	}
	if settled.DrawID != nil {
		ev.DrawID = *settled.DrawID
	}
	if err := s.Dispatcher.Notify(ctx, ev); err != nil {
		logger.Warningf("notify claim %d: %v", settled.ID, err)
	}
	logger.Infof("Claim %d %s by %s", settled.ID, settled.Status, data.AdminID)
	return settled, nil
}

// PendingClaims is the admin review queue, oldest first.
func (s *ClaimService) PendingClaims(ctx context.Context, typ models.TransactionType, page, limit int) (common.PaginationResult, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	page, limit, offset := common.NormalizePage(page, limit, 20)

	db := s.DB.WithContext(ctx)
	query := db.Model(&models.Transaction{}).Where("status = ?", models.TrxPending)
	if typ != "" {
		if !typ.Claimable() {
			return common.PaginationResult{}, errorx.New(errorx.ValidationError, "%s is not a claim type", typ)
		}
		query = query.Where("type = ?", typ)
	} else {
		query = query.Where("type IN ?", []models.TransactionType{models.TrxPrizeClaim, models.TrxTaskReward, models.TrxDeposit, models.TrxWithdrawal})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("count claims: %w", err)
	}
	var rows []models.Transaction
	if err := query.Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("list claims: %w", err)
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	details := make(map[int64]*models.TransferDetail)
	if len(ids) > 0 {
		var found []models.TransferDetail
		if err := db.Where("transaction_id IN ?", ids).Find(&found).Error; err != nil {
			return common.PaginationResult{}, fmt.Errorf("load transfer details: %w", err)
		}
		for i := range found {
			details[found[i].TransactionID] = &found[i]
		}
	}

	views := make([]ClaimView, len(rows))
	for i, r := range rows {
		views[i] = ClaimView{Transaction: r, Transfer: details[r.ID]}
	}
	return common.PaginateResponse(views, total, page, limit, "Pending claims fetched"), nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
