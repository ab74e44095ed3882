package seed

import (
	"context"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pucciNatan/AmpliarProject/internal/auth"
)

// Run cria dois psicólogos de desenvolvimento (dois tenants) com alguns
// pacientes quando o banco está vazio. Em banco já populado é no-op.
func Run(ctx context.Context, db *gorm.DB) error {
	var n int
	if err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM psychologists").Scan(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		log.Printf("seed: psicólogos existem, nada a fazer")
		return nil
	}

	hash, err := auth.HashPassword("ChangeMe123!")
	if err != nil {
		return err
	}
	p1, p2 := uuid.New(), uuid.New()
	if err := db.WithContext(ctx).Exec(`
		INSERT INTO psychologists (id, email, password_hash, full_name, phone)
		VALUES (?, 'dra.ana@ampliar.local', ?, 'Dra. Ana Souza', '11988880001'),
		       (?, 'dr.bruno@ampliar.local', ?, 'Dr. Bruno Lima', '11988880002')
	`, p1, hash, p2, hash).Error; err != nil {
		return err
	}

	for _, owner := range []uuid.UUID{p1, p2} {
		names := [][2]string{
			{"Paciente Um", "2010-03-14"},
			{"Paciente Dois", "1995-07-02"},
		}
		for _, nm := range names {
			if err := db.WithContext(ctx).Exec(`
				INSERT INTO patients (id, psychologist_id, full_name, phone, birth_date)
				VALUES (?, ?, ?, '11977770000', ?::date)
			`, uuid.New(), owner, nm[0], nm[1]).Error; err != nil {
				return err
			}
		}
	}
	log.Printf("seed: dados de desenvolvimento criados (2 psicólogos, 4 pacientes)")
	return nil
}
