// file: internals/features/finance/installments/service/registrations.go
package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

// GormRegistrations membaca registrasi + program (tabel milik modul lain).
type GormRegistrations struct {
	DB *gorm.DB
}

func NewGormRegistrations(db *gorm.DB) *GormRegistrations {
	return &GormRegistrations{DB: db}
}

func (r *GormRegistrations) FindRegistration(ctx context.Context, registrationID uuid.UUID) (model.RegistrationInfo, error) {
	type row struct {
		RegistrationID uuid.UUID    `gorm:"column:registration_id"`
		UserID         *uuid.UUID   `gorm:"column:registration_user_id"`
		TotalAmount    money.Amount `gorm:"column:program_total_amount_minor"`
		Plan           int          `gorm:"column:program_installment_plan"`
		FullName       string       `gorm:"column:registration_full_name"`
		Email          string       `gorm:"column:registration_email"`
		Phone          string       `gorm:"column:registration_phone"`
	}

	var out []row
	if err := r.DB.WithContext(ctx).
		Table("internship_registrations r").
		Select(`r.registration_id, r.registration_user_id, p.program_total_amount_minor, p.program_installment_plan,
			r.registration_full_name, r.registration_email, r.registration_phone`).
		Joins("JOIN internship_programs p ON p.program_id = r.registration_program_id").
		Where("r.registration_id = ?", registrationID).
		Limit(1).
		Scan(&out).Error; err != nil {
		return model.RegistrationInfo{}, err
	}
	if len(out) == 0 {
		return model.RegistrationInfo{}, &NotFoundError{Entity: "registration", ID: registrationID.String()}
	}

	x := out[0]
	return model.RegistrationInfo{
		RegistrationID: x.RegistrationID,
		UserID:         x.UserID,
		TotalAmount:    x.TotalAmount,
		Plan:           x.Plan,
		FullName:       x.FullName,
		Email:          x.Email,
		Phone:          x.Phone,
	}, nil
}
