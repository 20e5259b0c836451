package core

import "keyvault-backend-go/internal/crypto"

// encryptionService adapts the crypto package to the EncryptionService
// interface so services can take the cipher as a dependency and tests can
// substitute a fake.
type encryptionService struct{}

// NewEncryptionService creates a new EncryptionService instance.
func NewEncryptionService() EncryptionService {
	return &encryptionService{}
}

func (s *encryptionService) Encrypt(plainText string, key []byte) (string, error) {
	return crypto.Encrypt(plainText, key)
}

func (s *encryptionService) Decrypt(cipherTextBase64 string, key []byte) (string, error) {
	return crypto.Decrypt(cipherTextBase64, key)
}
