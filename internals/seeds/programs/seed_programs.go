package programs

import (
	"fmt"
	"log"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"magangku_backend/internals/features/finance/installments/model"
	"magangku_backend/internals/features/finance/installments/money"
)

type ProgramSeed struct {
	ProgramID   uuid.UUID       `json:"program_id"`
	ProgramName string          `json:"program_name"`
	TotalAmount decimal.Decimal `json:"program_total_amount"`
	Plan        int             `json:"program_installment_plan"`
}

type RegistrationSeed struct {
	RegistrationID uuid.UUID  `json:"registration_id"`
	ProgramID      uuid.UUID  `json:"registration_program_id"`
	UserID         *uuid.UUID `json:"registration_user_id,omitempty"`
	FullName       string     `json:"registration_full_name"`
	Email          string     `json:"registration_email"`
	Phone          string     `json:"registration_phone"`
}

type SeedFile struct {
	Programs      []ProgramSeed      `json:"programs"`
	Registrations []RegistrationSeed `json:"registrations"`
}

func ReadSeedFile(filePath string) (SeedFile, error) {
	log.Println("📥 Membaca file:", filePath)
	var out SeedFile
	content, err := os.ReadFile(filePath)
	if err != nil {
		return out, err
	}
	if err := sonic.Unmarshal(content, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return out, nil
}

// RegistrationInfos: join registrasi + program dari file seed (dipakai mode memory store).
func (f SeedFile) RegistrationInfos() ([]model.RegistrationInfo, error) {
	programs := make(map[uuid.UUID]ProgramSeed, len(f.Programs))
	for _, p := range f.Programs {
		programs[p.ProgramID] = p
	}
	out := make([]model.RegistrationInfo, 0, len(f.Registrations))
	for _, r := range f.Registrations {
		p, ok := programs[r.ProgramID]
		if !ok {
			return nil, fmt.Errorf("registration %s: unknown program %s", r.RegistrationID, r.ProgramID)
		}
		total, err := money.FromDecimal(p.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", p.ProgramID, err)
		}
		out = append(out, model.RegistrationInfo{
			RegistrationID: r.RegistrationID,
			UserID:         r.UserID,
			TotalAmount:    total,
			Plan:           p.Plan,
			FullName:       r.FullName,
			Email:          r.Email,
			Phone:          r.Phone,
		})
	}
	return out, nil
}

// SeedProgramsFromJSON: insert program & registrasi demo, row yang sudah ada dilewati.
func SeedProgramsFromJSON(db *gorm.DB, filePath string) {
	f, err := ReadSeedFile(filePath)
	if err != nil {
		log.Fatalf("❌ Gagal baca seed: %v", err)
	}

	for _, p := range f.Programs {
		total, err := money.FromDecimal(p.TotalAmount)
		if err != nil {
			log.Printf("❌ Program %s: %v", p.ProgramName, err)
			continue
		}
		row := model.InternshipProgram{
			ProgramID:          p.ProgramID,
			ProgramName:        p.ProgramName,
			ProgramTotalAmount: total,
			ProgramPlan:        p.Plan,
		}
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		switch {
		case res.Error != nil:
			log.Printf("❌ Gagal insert program %s: %v", p.ProgramName, res.Error)
		case res.RowsAffected == 0:
			log.Printf("ℹ️ Program %s sudah ada, lewati...", p.ProgramName)
		default:
			log.Printf("✅ Berhasil insert program %s", p.ProgramName)
		}
	}

	for _, r := range f.Registrations {
		row := model.InternshipRegistration{
			RegistrationID:        r.RegistrationID,
			RegistrationProgramID: r.ProgramID,
			RegistrationUserID:    r.UserID,
			RegistrationFullName:  r.FullName,
			RegistrationEmail:     r.Email,
			RegistrationPhone:     r.Phone,
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			log.Printf("❌ Gagal insert registrasi %s: %v", r.FullName, err)
		}
	}
}
