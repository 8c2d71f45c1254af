// file: internals/features/finance/installments/model/registration_model.go
package model

import (
	"github.com/google/uuid"

	"magangku_backend/internals/features/finance/installments/money"
)

/*
  Tabel milik modul registrasi/katalog program.
  Modul cicilan hanya membaca (read-only).
*/

type InternshipProgram struct {
	ProgramID          uuid.UUID    `gorm:"column:program_id;type:uuid;default:gen_random_uuid();primaryKey" json:"program_id"`
	ProgramName        string       `gorm:"column:program_name;not null" json:"program_name"`
	ProgramTotalAmount money.Amount `gorm:"column:program_total_amount_minor;type:bigint;not null" json:"program_total_amount_minor"`
	ProgramPlan        int          `gorm:"column:program_installment_plan;type:smallint;not null" json:"program_installment_plan"`
}

func (InternshipProgram) TableName() string { return "internship_programs" }

type InternshipRegistration struct {
	RegistrationID        uuid.UUID  `gorm:"column:registration_id;type:uuid;default:gen_random_uuid();primaryKey" json:"registration_id"`
	RegistrationProgramID uuid.UUID  `gorm:"column:registration_program_id;type:uuid;not null" json:"registration_program_id"`
	RegistrationUserID    *uuid.UUID `gorm:"column:registration_user_id;type:uuid;index" json:"registration_user_id,omitempty"`
	RegistrationFullName  string     `gorm:"column:registration_full_name" json:"registration_full_name"`
	RegistrationEmail     string     `gorm:"column:registration_email" json:"registration_email"`
	RegistrationPhone     string     `gorm:"column:registration_phone" json:"registration_phone"`
}

func (InternshipRegistration) TableName() string { return "internship_registrations" }

// RegistrationInfo = hasil join registrasi + program yang dibutuhkan modul cicilan.
type RegistrationInfo struct {
	RegistrationID uuid.UUID
	UserID         *uuid.UUID // pemilik registrasi (nil = belum terhubung ke akun)
	TotalAmount    money.Amount
	Plan           int
	FullName       string
	Email          string
	Phone          string
}
