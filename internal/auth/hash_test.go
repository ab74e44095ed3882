package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Senha123!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Senha123!" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "Senha123!") {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword(hash, "senha123!") {
		t.Error("CheckPassword should reject a different password")
	}
}
