package seeds

import (
	"gorm.io/gorm"

	"magangku_backend/internals/seeds/programs"
)

const ProgramsSeedPath = "internals/seeds/programs/data_programs.json"

func RunAllSeeds(db *gorm.DB) {
	//* Program & registrasi demo
	programs.SeedProgramsFromJSON(db, ProgramsSeedPath)
}
