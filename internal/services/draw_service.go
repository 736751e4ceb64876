package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"draw-service/internal/logger"
	"draw-service/internal/models"
	"draw-service/pkg/errorx"
)

var selectableStatuses = []models.DrawStatus{models.DrawActive, models.DrawClosing, models.DrawCompleting}

type DrawService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Locks      Locker
	Dispatcher Dispatcher
	Rules      Rules
	// NewRandom returns the source for one selection attempt.
	NewRandom func() RandomSource
}

func NewDrawService(db *gorm.DB, ledger *LedgerService, locks Locker, dispatcher Dispatcher, rules Rules) *DrawService {
	return &DrawService{
		DB:         db,
		Ledger:     ledger,
		Locks:      locks,
		Dispatcher: dispatcher,
		Rules:      rules,
		NewRandom:  CryptoSource,
	}
}

type CreateDrawDTO struct {
	DrawNumber  int        `json:"draw_number" validate:"required,gt=0"`
	DrawTime    time.Time  `json:"draw_time" validate:"required"`
	EndTime     *time.Time `json:"end_time"`
	Description string     `json:"description" validate:"max=500"`
}

type DrawSummary struct {
	models.Draw
	UniqueParticipants int `json:"unique_participants"`
}

func (s *DrawService) loadDraw(db *gorm.DB, drawID string) (*models.Draw, error) {
	var draw models.Draw
	err := db.First(&draw, "id = ?", drawID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "draw %s", drawID)
	}
	if err != nil {
		return nil, fmt.Errorf("load draw: %w", err)
	}
	return &draw, nil
}

func (s *DrawService) CreateDraw(ctx context.Context, data CreateDrawDTO) (*models.Draw, error) {
	if err := validateDTO(data); err != nil {
		return nil, err
	}

	drawTime := data.DrawTime.UTC()
	endTime := drawTime.Add(s.Rules.DefaultCloseAfter)
	if data.EndTime != nil {
		endTime = data.EndTime.UTC()
	}
	if !endTime.After(drawTime) {
		return nil, errorx.New(errorx.ValidationError, "end time must be after draw time")
	}

	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Unscoped().Model(&models.Draw{}).Where("draw_number = ?", data.DrawNumber).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check draw number: %w", err)
	}
	if count > 0 {
		return nil, errorx.New(errorx.ValidationError, "draw #%d already exists", data.DrawNumber)
	}

	draw := models.Draw{
		ID:                 uuid.NewString(),
		DrawNumber:         data.DrawNumber,
		Description:        data.Description,
		DrawTime:           drawTime,
		EndTime:            endTime,
		Status:             models.DrawActive,
		AutoClosingEnabled: true,
	}
	if err := db.Create(&draw).Error; err != nil {
		return nil, fmt.Errorf("create draw: %w", err)
	}
	logger.Infof("Draw #%d created, closes at %s", draw.DrawNumber, draw.EndTime.Format(time.RFC3339))
	return &draw, nil
}

func (s *DrawService) GetDraw(ctx context.Context, drawID string) (*models.Draw, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	var draw models.Draw
	err := s.DB.WithContext(ctx).
		Preload("Winners", func(db *gorm.DB) *gorm.DB { return db.Order("place ASC") }).
		First(&draw, "id = ?", drawID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "draw %s", drawID)
	}
	if err != nil {
		return nil, fmt.Errorf("load draw: %w", err)
	}
	return &draw, nil
}

// GetActiveDraw returns the earliest active draw by draw time.
func (s *DrawService) GetActiveDraw(ctx context.Context) (*models.Draw, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	var draw models.Draw
	err := s.DB.WithContext(ctx).
		Where("status = ?", models.DrawActive).
		Order("draw_time ASC").
		First(&draw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "no active draw")
	}
	if err != nil {
		return nil, fmt.Errorf("load active draw: %w", err)
	}
	return &draw, nil
}

// PreviousDraws lists completed draws, newest first.
func (s *DrawService) PreviousDraws(ctx context.Context, limit int) ([]DrawSummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	db := s.DB.WithContext(ctx)

	var draws []models.Draw
	err := db.Where("status = ?", models.DrawCompleted).
		Preload("Winners", func(db *gorm.DB) *gorm.DB { return db.Order("place ASC") }).
		Order("draw_number DESC").
		Limit(limit).
		Find(&draws).Error
	if err != nil {
		return nil, fmt.Errorf("list previous draws: %w", err)
	}
	if len(draws) == 0 {
		return []DrawSummary{}, nil
	}

	ids := make([]string, len(draws))
	for i, d := range draws {
		ids[i] = d.ID
	}
	var counts []struct {
		DrawID string
		Users  int
	}
	err = db.Model(&models.Entry{}).
		Select("draw_id, COUNT(DISTINCT user_id) AS users").
		Where("draw_id IN ?", ids).
		Group("draw_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	unique := make(map[string]int, len(counts))
	for _, c := range counts {
		unique[c.DrawID] = c.Users
	}

	out := make([]DrawSummary, len(draws))
	for i, d := range draws {
		out[i] = DrawSummary{Draw: d, UniqueParticipants: unique[d.ID]}
	}
	return out, nil
}

// notEligible explains why a conditional draw update matched no row.
func (s *DrawService) notEligible(db *gorm.DB, drawID string) error {
	draw, err := s.loadDraw(db, drawID)
	if err != nil {
		return err
	}
	return errorx.New(errorx.DrawNotActive, "draw #%d is %s", draw.DrawNumber, draw.Status)
}

func (s *DrawService) PauseDraw(ctx context.Context, drawID string) error {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Draw{}).
		Where("id = ? AND status = ? AND selection_started_at IS NULL", drawID, models.DrawActive).
		UpdateColumn("status", models.DrawPaused)
	if res.Error != nil {
		return fmt.Errorf("pause draw: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.notEligible(db, drawID)
	}
	logger.Infof("Draw %s paused", drawID)
	return nil
}

// ResumeDraw reactivates a paused draw, or clears the recorded selection
// failure of an active one so the scanner picks it up again.
func (s *DrawService) ResumeDraw(ctx context.Context, drawID string) error {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Draw{}).
		Where("id = ? AND (status = ? OR (status = ? AND selection_error <> ''))", drawID, models.DrawPaused, models.DrawActive).
		UpdateColumns(map[string]interface{}{
			"status":          models.DrawActive,
			"selection_error": "",
		})
	if res.Error != nil {
		return fmt.Errorf("resume draw: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.notEligible(db, drawID)
	}
	logger.Infof("Draw %s resumed", drawID)
	return nil
}

func (s *DrawService) SetAutoClosing(ctx context.Context, drawID string, enabled bool) error {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	db := s.DB.WithContext(ctx)
	if _, err := s.loadDraw(db, drawID); err != nil {
		return err
	}
	if err := db.Model(&models.Draw{}).Where("id = ?", drawID).UpdateColumn("auto_closing_enabled", enabled).Error; err != nil {
		return fmt.Errorf("set auto closing: %w", err)
	}
	return nil
}

// DeleteDraw soft-deletes an active or paused draw. A draw with entries needs
// force, and then every entry fee is refunded in the same DB transaction.
func (s *DrawService) DeleteDraw(ctx context.Context, drawID string, force bool) (int, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	release, err := s.Locks.Acquire(ctx, drawLockKey(drawID), s.Rules.LockWait)
	if err != nil {
		return 0, err
	}
	defer release()

	refunded := 0
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if force {
			if err := lockEntrantsTx(tx, drawID); err != nil {
				return err
			}
		}
		draw, err := s.loadDraw(tx.Clauses(clause.Locking{Strength: "UPDATE"}), drawID)
		if err != nil {
			return err
		}
		if draw.Status != models.DrawActive && draw.Status != models.DrawPaused {
			return errorx.New(errorx.DrawNotActive, "draw #%d is %s", draw.DrawNumber, draw.Status)
		}
		if draw.SelectionStartedAt != nil {
			return errorx.New(errorx.ConcurrentModification, "winner selection running for draw #%d", draw.DrawNumber)
		}

		entries, err := drawEntries(tx, drawID)
		if err != nil {
			return err
		}
		if len(entries) > 0 && !force {
			return errorx.New(errorx.ValidationError, "draw #%d has %d entries, force required", draw.DrawNumber, len(entries))
		}

		// credits only add, so refunds skip the per-user lock
		for _, e := range entries {
			_, err := s.Ledger.PostTx(tx, e.UserID, e.EntryFee, models.TrxRefund, models.TrxCompleted, TrxMeta{
				Description: fmt.Sprintf("Refund for deleted draw #%d", draw.DrawNumber),
				DrawID:      drawID,
				TicketID:    e.TicketID,
			})
			if err != nil {
				return err
			}
		}
		refunded = len(entries)

		if err := tx.Delete(&models.Draw{}, "id = ?", drawID).Error; err != nil {
			return fmt.Errorf("delete draw: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Infof("Draw %s deleted, %d entries refunded", drawID, refunded)
	return refunded, nil
}

// lockEntrantsTx row-locks every entrant of the draw in id order. Users are
// locked before the draw row, the same order PurchaseEntry takes them in.
func lockEntrantsTx(tx *gorm.DB, drawID string) error {
	var userIDs []string
	err := tx.Model(&models.Entry{}).
		Where("draw_id = ?", drawID).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return fmt.Errorf("list entrants: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}
	var users []models.User
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", userIDs).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return fmt.Errorf("lock entrants: %w", err)
	}
	return nil
}

// closeConditionMet reports whether trigger applies to draw at now. A draw
// left in closing or completing without a running selection qualifies again.
func (s *DrawService) closeConditionMet(draw *models.Draw, trigger CloseTrigger, now time.Time) bool {
	if draw.WinnersSelected || draw.SelectionStartedAt != nil || draw.SelectionError != "" {
		return false
	}
	switch draw.Status {
	case models.DrawActive:
	case models.DrawCompleting:
		return trigger == TriggerThreshold
	case models.DrawClosing:
		return trigger == TriggerDeadline
	default:
		return false
	}
	switch trigger {
	case TriggerThreshold:
		return draw.Entries >= s.Rules.CompletionThreshold
	case TriggerDeadline:
		return draw.AutoClosingEnabled && now.After(draw.EndTime)
	}
	return false
}

// DueForClose lists the close signals the current state of open draws calls for.
func (s *DrawService) DueForClose(ctx context.Context, now time.Time) ([]CloseSignal, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	var draws []models.Draw
	err := s.DB.WithContext(ctx).
		Where("status IN ? AND selection_started_at IS NULL AND winners_selected = ?", selectableStatuses, false).
		Order("draw_time ASC").
		Find(&draws).Error
	if err != nil {
		return nil, fmt.Errorf("list open draws: %w", err)
	}

	var due []CloseSignal
	for i := range draws {
		d := &draws[i]
		switch {
		case s.closeConditionMet(d, TriggerThreshold, now):
			due = append(due, CloseSignal{DrawID: d.ID, Trigger: TriggerThreshold})
		case s.closeConditionMet(d, TriggerDeadline, now):
			due = append(due, CloseSignal{DrawID: d.ID, Trigger: TriggerDeadline})
		}
	}
	return due, nil
}

// HandleCloseSignal closes a draw and runs winner selection. Signals for draws
// that no longer qualify are dropped without error.
func (s *DrawService) HandleCloseSignal(ctx context.Context, sig CloseSignal) ([]models.Winner, error) {
	if !sig.Trigger.Valid() {
		return nil, errorx.New(errorx.ValidationError, "unknown trigger %q", sig.Trigger)
	}

	ctx, cancel := s.Rules.selectionContext(ctx)
	defer cancel()

	release, err := s.Locks.Acquire(ctx, drawLockKey(sig.DrawID), s.Rules.LockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	db := s.DB.WithContext(ctx)
	draw, err := s.loadDraw(db, sig.DrawID)
	if errorx.KindOf(err) == errorx.NotFound {
		logger.Infof("close signal for missing draw %s ignored", sig.DrawID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.closeConditionMet(draw, sig.Trigger, time.Now().UTC()) {
		logger.Debugf("close signal %s for draw #%d ignored", sig.Trigger, draw.DrawNumber)
		return nil, nil
	}

	if draw.Status == models.DrawActive {
		target := models.DrawClosing
		if sig.Trigger == TriggerThreshold {
			target = models.DrawCompleting
		}
		res := db.Model(&models.Draw{}).
			Where("id = ? AND status = ? AND selection_started_at IS NULL AND winners_selected = ?", draw.ID, models.DrawActive, false).
			UpdateColumn("status", target)
		if res.Error != nil {
			return nil, fmt.Errorf("close draw: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		logger.Infof("Draw #%d moved to %s (%s)", draw.DrawNumber, target, sig.Trigger)
	}

	return s.selectLocked(ctx, draw.ID, selectableStatuses, nil, selectionOpts{})
}

// SelectWinners runs random selection on demand.
func (s *DrawService) SelectWinners(ctx context.Context, drawID string) ([]models.Winner, error) {
	return s.runSelection(ctx, drawID, selectableStatuses, nil, selectionOpts{})
}

// ForceComplete completes an active draw immediately. With payDirect every
// prize is credited as a completed winning instead of waiting for a claim.
func (s *DrawService) ForceComplete(ctx context.Context, drawID, adminID string, payDirect bool) ([]models.Winner, error) {
	return s.runSelection(ctx, drawID, []models.DrawStatus{models.DrawActive}, nil, selectionOpts{payDirect: payDirect, adminID: adminID})
}

// SaveManualWinners persists admin-chosen winners after checking them.
func (s *DrawService) SaveManualWinners(ctx context.Context, drawID, adminID string, picks []ManualPick) ([]models.Winner, error) {
	for _, p := range picks {
		if err := validateDTO(p); err != nil {
			return nil, err
		}
	}
	choose := func(entries []models.Entry, history PlaceHistory) ([]models.Winner, error) {
		return ValidateManualWinners(entries, history, picks)
	}
	return s.runSelection(ctx, drawID, selectableStatuses, choose, selectionOpts{adminID: adminID})
}

type selectionOpts struct {
	payDirect bool
	adminID   string
}

type chooser func(entries []models.Entry, history PlaceHistory) ([]models.Winner, error)

func (s *DrawService) runSelection(ctx context.Context, drawID string, allowed []models.DrawStatus, choose chooser, opts selectionOpts) ([]models.Winner, error) {
	ctx, cancel := s.Rules.selectionContext(ctx)
	defer cancel()

	release, err := s.Locks.Acquire(ctx, drawLockKey(drawID), s.Rules.LockWait)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.selectLocked(ctx, drawID, allowed, choose, opts)
}

// selectLocked is the single writer of a draw's winners. The caller holds the
// draw lock; the selection_started_at marker keeps other instances out.
func (s *DrawService) selectLocked(ctx context.Context, drawID string, allowed []models.DrawStatus, choose chooser, opts selectionOpts) ([]models.Winner, error) {
	db := s.DB.WithContext(ctx)
	res := db.Model(&models.Draw{}).
		Where("id = ? AND selection_started_at IS NULL AND winners_selected = ? AND status IN ?", drawID, false, allowed).
		UpdateColumn("selection_started_at", time.Now().UTC())
	if res.Error != nil {
		return nil, fmt.Errorf("mark selection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.notEligible(db, drawID)
	}

	winners, err := s.selectAndPersist(ctx, drawID, choose, opts)
	if err != nil {
		s.failSelection(drawID, err)
		return nil, err
	}

	for _, w := range winners {
		ev := NotificationEvent{
			Kind:    EventWinnerSelected,
			UserID:  w.UserID,
			DrawID:  drawID,
			Place:   w.Place,
			Prize:   w.Prize,
			Message: fmt.Sprintf("You won place %d with ticket %s", w.Place, w.TicketID),
		}
		if err := s.Dispatcher.Notify(ctx, ev); err != nil {
			logger.Warningf("notify winner %s of draw %s: %v", w.UserID, drawID, err)
		}
	}
	logger.Infof("Draw %s completed with %d winners", drawID, len(winners))
	return winners, nil
}

func (s *DrawService) placeHistory(db *gorm.DB, drawID string) (PlaceHistory, error) {
	var rows []models.Winner
	err := db.Select("user_id", "place").
		Where("draw_id <> ? AND place <= ?", drawID, ProtectedPlaces).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load previous winners: %w", err)
	}
	history := make(PlaceHistory)
	for _, w := range rows {
		history.Add(w.Place, w.UserID)
	}
	return history, nil
}

func (s *DrawService) selectAndPersist(ctx context.Context, drawID string, choose chooser, opts selectionOpts) ([]models.Winner, error) {
	db := s.DB.WithContext(ctx)
	entries, err := drawEntries(db, drawID)
	if err != nil {
		return nil, err
	}
	history, err := s.placeHistory(db, drawID)
	if err != nil {
		return nil, err
	}

	if choose == nil {
		choose = func(entries []models.Entry, history PlaceHistory) ([]models.Winner, error) {
			return Select(entries, history, s.NewRandom())
		}
	}

	attempts := s.Rules.SelectionAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		winners, err := choose(entries, history)
		if err != nil {
			return nil, err
		}
		if err := s.persistWinners(db, drawID, winners, opts); err != nil {
			var typed *errorx.Error
			if errors.As(err, &typed) {
				return nil, err
			}
			lastErr = err
			logger.Warningf("persist winners for draw %s (attempt %d/%d): %v", drawID, attempt, attempts, err)
			continue
		}
		return winners, nil
	}
	return nil, lastErr
}

func (s *DrawService) persistWinners(db *gorm.DB, drawID string, winners []models.Winner, opts selectionOpts) error {
	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i := range winners {
			w := &winners[i]
			w.ID = 0
			w.DrawID = drawID
			if !opts.payDirect {
				continue
			}
			trx, err := s.Ledger.PostTx(tx, w.UserID, w.Prize, models.TrxWinning, models.TrxCompleted, TrxMeta{
				Description: fmt.Sprintf("Prize for place %d", w.Place),
				DrawID:      drawID,
				TicketID:    w.TicketID,
				ApprovedBy:  opts.adminID,
			})
			if err != nil {
				return err
			}
			w.Claimed = true
			w.Approved = true
			w.ClaimTimestamp = &now
			w.ApprovedAt = &now
			w.ApprovedBy = opts.adminID
			w.ClaimTransactionID = &trx.ID
		}

		if len(winners) > 0 {
			if err := tx.Create(&winners).Error; err != nil {
				return fmt.Errorf("insert winners: %w", err)
			}
		}

		res := tx.Model(&models.Draw{}).
			Where("id = ? AND winners_selected = ? AND selection_started_at IS NOT NULL", drawID, false).
			UpdateColumns(map[string]interface{}{
				"status":           models.DrawCompleted,
				"winners_selected": true,
				"completed_at":     now,
				"selection_error":  "",
			})
		if res.Error != nil {
			return fmt.Errorf("complete draw: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errorx.New(errorx.ConcurrentModification, "draw %s changed during selection", drawID)
		}
		return nil
	})
}

// failSelection reverts the draw to active and records the failure so the
// scanner leaves it alone until an operator steps in.
func (s *DrawService) failSelection(drawID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.DB.WithContext(ctx).Model(&models.Draw{}).
		Where("id = ? AND winners_selected = ?", drawID, false).
		UpdateColumns(map[string]interface{}{
			"status":               models.DrawActive,
			"selection_started_at": nil,
			"selection_error":      cause.Error(),
		}).Error
	if err != nil {
		logger.Errorf("revert draw %s after failed selection: %v", drawID, err)
		return
	}
	logger.Errorf("winner selection for draw %s failed: %v", drawID, cause)
}
