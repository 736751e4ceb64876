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

const referralCodeAttempts = 10

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

type RegisterUserDTO struct {
	ID           string `json:"-" validate:"omitempty,max=36"`
	DisplayName  string `json:"display_name" validate:"required,max=255"`
	ReferralCode string `json:"referral_code" validate:"omitempty,len=8"`
}

func (s *UserService) uniqueReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code := common.GenerateReferralCode()
		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errorx.New(errorx.ConcurrentModification, "could not allocate a referral code")
}

// RegisterUser creates a user with a fresh referral code. A referral code of
// an existing user links the new user to them.
func (s *UserService) RegisterUser(ctx context.Context, data RegisterUserDTO) (*models.User, error) {
	if err := validateDTO(data); err != nil {
		return nil, err
	}
	if data.ReferralCode != "" && !common.IsCode(data.ReferralCode) {
		return nil, errorx.New(errorx.ValidationError, "malformed referral code")
	}
	if data.ID == "" {
		data.ID = uuid.NewString()
	}

	var user models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", data.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if count > 0 {
			return errorx.New(errorx.ValidationError, "user %s already registered", data.ID)
		}

		var referrer *models.User
		if data.ReferralCode != "" {
			var r models.User
			err := tx.Where("referral_code = ?", data.ReferralCode).First(&r).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errorx.New(errorx.ValidationError, "unknown referral code %s", data.ReferralCode)
			}
			if err != nil {
				return fmt.Errorf("load referrer: %w", err)
			}
			referrer = &r
		}

		code, err := s.uniqueReferralCode(tx)
		if err != nil {
			return err
		}

		user = models.User{
			ID:           data.ID,
			DisplayName:  data.DisplayName,
			Status:       models.UserStatusActive,
			Role:         models.RoleUser,
			ReferralCode: code,
		}
		if referrer != nil {
			user.ReferredBy = &referrer.ID
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		if referrer != nil {
			err := tx.Model(&models.User{}).Where("id = ?", referrer.ID).
				UpdateColumn("referral_count", gorm.Expr("referral_count + ?", 1)).Error
			if err != nil {
				return fmt.Errorf("count referral: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("User %s registered", user.ID)
	return &user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.New(errorx.NotFound, "user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) update(ctx context.Context, userID, column string, value interface{}) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).UpdateColumn(column, value)
	if res.Error != nil {
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	if status != models.UserStatusActive && status != models.UserStatusInactive {
		return errorx.New(errorx.ValidationError, "unknown status %q", status)
	}
	return s.update(ctx, userID, "status", status)
}

func (s *UserService) SetRole(ctx context.Context, userID string, role models.UserRole) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return errorx.New(errorx.ValidationError, "unknown role %q", role)
	}
	return s.update(ctx, userID, "role", role)
}
