package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/pucciNatan/AmpliarProject/internal/auth"
	"github.com/pucciNatan/AmpliarProject/internal/cache"
	"github.com/pucciNatan/AmpliarProject/internal/config"
	"github.com/pucciNatan/AmpliarProject/internal/crypto"
	"github.com/pucciNatan/AmpliarProject/internal/repo"
)

type Handler struct {
	Pool  *pgxpool.Pool
	DB    *gorm.DB
	Cfg   *config.Config
	Cache *cache.TTL
	Keys  map[string][]byte

	hashPassword           func(string) (string, error)
	sendPasswordResetEmail func(to, token string) error
}

func (h *Handler) SetHashPassword(fn func(string) (string, error)) { h.hashPassword = fn }
func (h *Handler) SetSendPasswordResetEmail(fn func(to, token string) error) {
	h.sendPasswordResetEmail = fn
}

type RegisterRequest struct {
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Phone     string  `json:"phone"`
	CPF       string  `json:"cpf"`
	CRPNumber *string `json:"crp_number,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Register cria a conta do psicólogo. O e-mail é único (case-insensitive)
// e o CPF, quando enviado, é validado e cifrado antes de persistir.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ValidateName(req.FullName); err != nil {
		writeRepoError(w, err)
		return
	}
	if err := ValidateEmail(req.Email); err != nil {
		writeRepoError(w, err)
		return
	}
	if len(req.Password) < 8 {
		writeJSONError(w, http.StatusBadRequest, "senha deve ter ao menos 8 caracteres")
		return
	}
	if err := ValidatePhone(req.Phone); err != nil {
		writeRepoError(w, err)
		return
	}
	cpfData := &repo.CPFData{}
	if strings.TrimSpace(req.CPF) != "" {
		var err error
		cpfData, err = h.encryptCPF(req.CPF)
		if err != nil {
			writeRepoError(w, err)
			return
		}
	}

	hashFn := h.hashPassword
	if hashFn == nil {
		hashFn = auth.HashPassword
	}
	hash, err := hashFn(req.Password)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}

	p := &repo.Psychologist{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        onlyDigits(req.Phone),
		CRPNumber:    req.CRPNumber,
		Specialty:    req.Specialty,
		CPF:          *cpfData,
	}
	if err := repo.CreatePsychologist(r.Context(), h.Pool, p); err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserInfo{
		ID:       p.ID.String(),
		Email:    p.Email,
		FullName: p.FullName,
		Role:     auth.RolePsychologist,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "e-mail e senha são obrigatórios")
		return
	}
	p, err := repo.PsychologistByEmail(r.Context(), h.Pool, req.Email)
	if err != nil {
		genericLoginError(w)
		return
	}
	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		genericLoginError(w)
		return
	}
	tok, err := auth.BuildJWT(h.Cfg.JWTSecret, p.ID, p.Email, auth.TokenDuration)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tok,
		ExpiresAt: time.Now().Add(auth.TokenDuration),
		User: UserInfo{
			ID:       p.ID.String(),
			Email:    p.Email,
			FullName: p.FullName,
			Role:     auth.RolePsychologist,
		},
	})
}

// Me devolve o perfil do psicólogo autenticado, com o CPF decifrado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	type meResp struct {
		ID        string  `json:"id"`
		FullName  string  `json:"full_name"`
		Email     string  `json:"email"`
		Phone     string  `json:"phone"`
		CPF       *string `json:"cpf,omitempty"`
		CRPNumber *string `json:"crp_number,omitempty"`
		Specialty *string `json:"specialty,omitempty"`
	}
	writeJSON(w, http.StatusOK, meResp{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		CPF:       h.decryptCPF(&p.CPF),
		CRPNumber: p.CRPNumber,
		Specialty: p.Specialty,
	})
}

type UpdateMeRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	CPF       *string `json:"cpf,omitempty"`
	CRPNumber *string `json:"crp_number,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	fullName := p.FullName
	if req.FullName != nil {
		if err := ValidateName(*req.FullName); err != nil {
			writeRepoError(w, err)
			return
		}
		fullName = strings.TrimSpace(*req.FullName)
	}
	phone := p.Phone
	if req.Phone != nil {
		if err := ValidatePhone(*req.Phone); err != nil {
			writeRepoError(w, err)
			return
		}
		phone = onlyDigits(*req.Phone)
	}
	var cpfData *repo.CPFData
	if req.CPF != nil {
		cpfData, err = h.encryptCPF(*req.CPF)
		if err != nil {
			writeRepoError(w, err)
			return
		}
	}
	crp := p.CRPNumber
	if req.CRPNumber != nil {
		crp = req.CRPNumber
	}
	specialty := p.Specialty
	if req.Specialty != nil {
		specialty = req.Specialty
	}
	if err := repo.UpdatePsychologistProfile(r.Context(), h.Pool, p.ID, fullName, phone, crp, specialty, cpfData); err != nil {
		writeRepoError(w, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Delete(psychCacheKey(p.Email))
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe desativa a conta do psicólogo. Os registros do tenant permanecem
// no banco, mas deixam de ser alcançáveis por novos logins.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	if err := repo.SoftDeletePsychologist(r.Context(), h.Pool, p.ID); err != nil {
		writeRepoError(w, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Delete(psychCacheKey(p.Email))
	}
	w.WriteHeader(http.StatusNoContent)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := h.currentPsychologist(r)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "payload inválido")
		return
	}
	if !auth.CheckPassword(p.PasswordHash, req.CurrentPassword) {
		writeJSONError(w, http.StatusBadRequest, "senha atual incorreta")
		return
	}
	if len(req.NewPassword) < 8 {
		writeJSONError(w, http.StatusBadRequest, "senha deve ter ao menos 8 caracteres")
		return
	}
	hashFn := h.hashPassword
	if hashFn == nil {
		hashFn = auth.HashPassword
	}
	hash, err := hashFn(req.NewPassword)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}
	if err := repo.UpdatePsychologistPassword(r.Context(), h.Pool, p.ID, hash); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func genericLoginError(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "credenciais inválidas")
}

func psychCacheKey(email string) string { return "psych:" + email }

// currentPsychologist resolve o tenant a partir do e-mail do token. O id é
// cacheado por alguns minutos; a conta é recarregada do banco para garantir
// que não foi removida desde a emissão do token.
func (h *Handler) currentPsychologist(r *http.Request) (*repo.Psychologist, error) {
	email := auth.EmailFrom(r.Context())
	if email == "" {
		return nil, repo.ErrNotFound
	}
	if h.Cache != nil {
		if b := h.Cache.Get(psychCacheKey(email)); b != nil {
			if id, err := uuid.Parse(string(b)); err == nil {
				if p, err := repo.PsychologistByID(r.Context(), h.Pool, id); err == nil {
					return p, nil
				}
			}
		}
	}
	p, err := repo.PsychologistByEmail(r.Context(), h.Pool, email)
	if err != nil {
		return nil, err
	}
	if h.Cache != nil {
		h.Cache.Set(psychCacheKey(email), []byte(p.ID.String()))
	}
	return p, nil
}

// encryptCPF normaliza, valida e cifra o CPF com a chave corrente.
func (h *Handler) encryptCPF(cpf string) (*repo.CPFData, error) {
	norm := crypto.NormalizeCPF(cpf)
	if !crypto.ValidCPF(norm) {
		return nil, repo.Validationf("CPF inválido")
	}
	ct, nonce, err := crypto.Encrypt([]byte(norm), h.Cfg.CurrentDataKeyVer, h.Keys)
	if err != nil {
		return nil, err
	}
	ver := h.Cfg.CurrentDataKeyVer
	hash := crypto.CPFHash(norm)
	return &repo.CPFData{Encrypted: ct, Nonce: nonce, KeyVersion: &ver, Hash: &hash}, nil
}

// decryptCPF devolve o CPF em claro para exibição ao dono do registro;
// retorna nil quando não há CPF gravado ou a chave não está disponível.
func (h *Handler) decryptCPF(c *repo.CPFData) *string {
	if c == nil || len(c.Encrypted) == 0 || c.KeyVersion == nil {
		return nil
	}
	plain, err := crypto.Decrypt(c.Encrypted, c.Nonce, *c.KeyVersion, h.Keys)
	if err != nil {
		return nil
	}
	s := string(plain)
	return &s
}
