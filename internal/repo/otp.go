package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOTP(ctx context.Context, otp *models.OTP) error {
	return translate(r.DB.WithContext(ctx).Create(otp).Error)
}

// FindOTPs returns every stored row for the email/code pair, newest first.
// Expiry is left to the caller.
func (r *GormRepo) FindOTPs(ctx context.Context, email, code string) ([]models.OTP, error) {
	var otps []models.OTP
	if err := r.DB.WithContext(ctx).
		Where("email = ? AND code = ?", email, code).
		Order("id DESC").
		Find(&otps).Error; err != nil {
		return nil, err
	}
	return otps, nil
}

// DeleteOTP removes the row and reports whether this call was the one that removed it.
func (r *GormRepo) DeleteOTP(ctx context.Context, id uint) (bool, error) {
	res := r.DB.WithContext(ctx).Delete(&models.OTP{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
