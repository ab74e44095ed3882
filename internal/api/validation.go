package api

import (
	"regexp"
	"strings"
	"time"

	"github.com/pucciNatan/AmpliarProject/internal/crypto"
	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

// emailRegex valida formato de e-mail (uma @ e domínio com ponto).
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// amountRegex aceita decimais com até duas casas, ex.: "150", "150.5", "150.00".
var amountRegex = regexp.MustCompile(`^\d{1,8}(\.\d{1,2})?$`)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return repo.Validationf("nome é obrigatório")
	}
	if len(name) > 200 {
		return repo.Validationf("nome muito longo")
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !emailRegex.MatchString(email) {
		return repo.Validationf("e-mail inválido")
	}
	return nil
}

// ValidatePhone exige telefone brasileiro com 10 ou 11 dígitos (DDD + número).
func ValidatePhone(phone string) error {
	digits := onlyDigits(phone)
	if len(digits) < 10 || len(digits) > 11 {
		return repo.Validationf("telefone deve ter 10 ou 11 dígitos")
	}
	return nil
}

func ValidateCPF(cpf string) error {
	if !crypto.ValidCPF(cpf) {
		return repo.Validationf("CPF inválido")
	}
	return nil
}

// ValidateBirthDate exige data YYYY-MM-DD não futura e idade plausível.
func ValidateBirthDate(iso string) error {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return repo.Validationf("data de nascimento inválida (use YYYY-MM-DD)")
	}
	now := time.Now()
	if t.After(now) {
		return repo.Validationf("data de nascimento não pode ser futura")
	}
	if t.Before(now.AddDate(-130, 0, 0)) {
		return repo.Validationf("data de nascimento inválida")
	}
	return nil
}

// ValidatePaymentDate exige data YYYY-MM-DD não futura.
func ValidatePaymentDate(iso string) error {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return repo.Validationf("data inválida (use YYYY-MM-DD)")
	}
	if d.After(time.Now()) {
		return repo.Validationf("data do pagamento não pode estar no futuro")
	}
	return nil
}

func ValidateAmount(amount string) error {
	amount = strings.TrimSpace(amount)
	if !amountRegex.MatchString(amount) || strings.Trim(amount, "0.") == "" {
		return repo.Validationf("valor do pagamento deve ser maior que zero")
	}
	return nil
}

var validStatuses = map[string]bool{
	repo.StatusScheduled: true,
	repo.StatusCompleted: true,
	repo.StatusCancelled: true,
	repo.StatusNoShow:    true,
}

func ValidateStatus(status string) error {
	if !validStatuses[status] {
		return repo.Validationf("status inválido")
	}
	return nil
}

func ValidateAppointmentType(t string) error {
	if strings.TrimSpace(t) == "" {
		return repo.Validationf("tipo do atendimento é obrigatório")
	}
	if len([]rune(t)) > 100 {
		return repo.Validationf("tipo do atendimento deve ter no máximo 100 caracteres")
	}
	return nil
}

func ValidateNotes(notes *string) error {
	if notes != nil && len([]rune(*notes)) > 2000 {
		return repo.Validationf("observações devem ter no máximo 2000 caracteres")
	}
	return nil
}

// ValidateAppointmentTimes exige início e, se presente, fim não anterior ao início.
func ValidateAppointmentTimes(startAt time.Time, endAt *time.Time) error {
	if startAt.IsZero() {
		return repo.Validationf("horário de início é obrigatório")
	}
	if endAt != nil && endAt.Before(startAt) {
		return repo.Validationf("horário de término não pode ser anterior ao início")
	}
	return nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
