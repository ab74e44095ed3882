package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkingHours is the agenda configuration for one weekday (day_of_week
// 0=Sunday .. 6=Saturday). Time fields are *string (e.g. "07:00" or
// "07:00:00"); PostgreSQL TIME is returned as string by the driver.
type WorkingHours struct {
	PsychologistID              uuid.UUID `gorm:"primaryKey;type:uuid"`
	DayOfWeek                   int       `gorm:"primaryKey"`
	Enabled                     bool      `gorm:"default:true"`
	StartTime                   *string   `gorm:"type:time"`
	EndTime                     *string   `gorm:"type:time"`
	ConsultationDurationMinutes int       `gorm:"default:50"`
}

// TableName overrides GORM table name.
func (WorkingHours) TableName() string { return "psychologist_working_hours" }

func ListWorkingHours(ctx context.Context, db *gorm.DB, psychologistID uuid.UUID) ([]WorkingHours, error) {
	var list []WorkingHours
	err := db.WithContext(ctx).Where("psychologist_id = ?", psychologistID).Order("day_of_week").Find(&list).Error
	return list, err
}

// UpsertWorkingHours cria ou atualiza a configuração do dia (FirstOrCreate + Assign = upsert no GORM).
func UpsertWorkingHours(ctx context.Context, db *gorm.DB, w *WorkingHours) error {
	return db.WithContext(ctx).
		Where("psychologist_id = ? AND day_of_week = ?", w.PsychologistID, w.DayOfWeek).
		Assign(w).
		FirstOrCreate(w).Error
}

// DeleteWorkingHoursDay remove a configuração de um dia (quando o profissional desmarca o dia).
func DeleteWorkingHoursDay(ctx context.Context, db *gorm.DB, psychologistID uuid.UUID, dayOfWeek int) error {
	return db.WithContext(ctx).
		Where("psychologist_id = ? AND day_of_week = ?", psychologistID, dayOfWeek).
		Delete(&WorkingHours{}).Error
}
