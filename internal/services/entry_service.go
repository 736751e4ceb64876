package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"draw-service/internal/logger"
	"draw-service/internal/models"
	"draw-service/pkg/common"
	"draw-service/pkg/errorx"
)

const ticketAttempts = 5

type EntryService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Dispatcher Dispatcher
	Rules      Rules
}

func NewEntryService(db *gorm.DB, ledger *LedgerService, dispatcher Dispatcher, rules Rules) *EntryService {
	return &EntryService{DB: db, Ledger: ledger, Dispatcher: dispatcher, Rules: rules}
}

type PurchaseResult struct {
	Entry      models.Entry `json:"entry"`
	TicketID   string       `json:"ticket_id"`
	NewBalance int64        `json:"new_balance"`
}

func uniqueTicketTx(tx *gorm.DB, drawID string) (string, error) {
	for i := 0; i < ticketAttempts; i++ {
		ticketID := common.GenerateTicketID()
		var count int64
		if err := tx.Model(&models.Entry{}).Where("draw_id = ? AND ticket_id = ?", drawID, ticketID).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check ticket: %w", err)
		}
		if count == 0 {
			return ticketID, nil
		}
	}
	return "", errorx.New(errorx.ConcurrentModification, "could not allocate a ticket id")
}

// PurchaseEntry debits the entry fee and records one ticket in a single DB
// transaction. The draw counter only moves while the draw is open and below
// the threshold, so the draw can never exceed it.
func (s *EntryService) PurchaseEntry(ctx context.Context, userID, drawID string) (*PurchaseResult, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	release, err := s.Ledger.LockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	threshold := s.Rules.CompletionThreshold
	var result PurchaseResult
	var reached bool

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.Ledger.LoadUserTx(tx, userID)
		if err != nil {
			return err
		}
		if user.Status != models.UserStatusActive {
			return errorx.New(errorx.UserInactive, "user %s", userID)
		}

		var draw models.Draw
		err = tx.First(&draw, "id = ?", drawID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "draw %s", drawID)
		}
		if err != nil {
			return fmt.Errorf("load draw: %w", err)
		}
		if !draw.AcceptsEntries() || draw.Entries >= threshold {
			return errorx.New(errorx.DrawNotActive, "draw #%d is %s", draw.DrawNumber, draw.Status)
		}
		if user.Balance < s.Rules.EntryFee {
			return errorx.New(errorx.InsufficientFunds, "need %d", s.Rules.EntryFee)
		}

		ticketID, err := uniqueTicketTx(tx, drawID)
		if err != nil {
			return err
		}

		_, err = s.Ledger.PostTx(tx, userID, -s.Rules.EntryFee, models.TrxDrawEntry, models.TrxCompleted, TrxMeta{
			Description: fmt.Sprintf("Entry for draw #%d", draw.DrawNumber),
			DrawID:      drawID,
			TicketID:    ticketID,
		})
		if err != nil {
			return err
		}

		entry := models.Entry{
			ID:       uuid.NewString(),
			UserID:   userID,
			DrawID:   drawID,
			TicketID: ticketID,
			EntryFee: s.Rules.EntryFee,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}

		res := tx.Model(&models.Draw{}).
			Where("id = ? AND status = ? AND selection_started_at IS NULL AND winners_selected = ? AND entries < ?",
				drawID, models.DrawActive, false, threshold).
			UpdateColumns(map[string]interface{}{
				"entries":      gorm.Expr("entries + ?", 1),
				"participants": gorm.Expr("participants + ?", 1),
			})
		if res.Error != nil {
			return fmt.Errorf("count entry: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errorx.New(errorx.DrawNotActive, "draw #%d closed", draw.DrawNumber)
		}

		var counted models.Draw
		if err := tx.Select("entries").First(&counted, "id = ?", drawID).Error; err != nil {
			return fmt.Errorf("reload draw: %w", err)
		}
		var balance models.User
		if err := tx.Select("balance").First(&balance, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("reload balance: %w", err)
		}

		reached = counted.Entries >= threshold
		result = PurchaseResult{Entry: entry, TicketID: ticketID, NewBalance: balance.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reached {
		sig := CloseSignal{DrawID: drawID, Trigger: TriggerThreshold}
		if err := s.Dispatcher.EnqueueDrawClose(ctx, sig); err != nil {
			logger.Warningf("enqueue close for draw %s: %v", drawID, err)
		}
	}
	return &result, nil
}

func (s *EntryService) UserEntries(ctx context.Context, userID, drawID string) ([]models.Entry, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	var entries []models.Entry
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if drawID != "" {
		q = q.Where("draw_id = ?", drawID)
	}
	if err := q.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// DrawEntries returns a draw's entries in insertion order.
func (s *EntryService) DrawEntries(ctx context.Context, drawID string) ([]models.Entry, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	return drawEntries(s.DB.WithContext(ctx), drawID)
}

func drawEntries(db *gorm.DB, drawID string) ([]models.Entry, error) {
	var entries []models.Entry
	if err := db.Where("draw_id = ?", drawID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list draw entries: %w", err)
	}
	return entries, nil
}
