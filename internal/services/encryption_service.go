package services

import (
	"booknook/internal/crypto"
	"booknook/internal/models"
)

// EncryptionService wraps the cipher with entry-specific methods: review
// text and private notes are encrypted at rest, everything else is stored
// in the clear.
type EncryptionService struct {
	cipher *crypto.Cipher
}

// NewEncryptionService creates a new encryption service. key must be 32
// bytes.
func NewEncryptionService(key []byte) (*EncryptionService, error) {
	c, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{cipher: c}, nil
}

// EncryptEntry seals the sensitive fields of an entry before storage.
func (s *EncryptionService) EncryptEntry(entry *models.ReadingListEntry) error {
	if entry.ReviewText != nil {
		sealed, err := s.cipher.Seal(*entry.ReviewText)
		if err != nil {
			return err
		}
		entry.ReviewText = &sealed
	}
	if entry.Notes != nil {
		sealed, err := s.cipher.Seal(*entry.Notes)
		if err != nil {
			return err
		}
		entry.Notes = &sealed
	}
	return nil
}

// DecryptEntry opens the sensitive fields of an entry after retrieval.
func (s *EncryptionService) DecryptEntry(entry *models.ReadingListEntry) error {
	if entry.ReviewText != nil {
		opened, err := s.cipher.Open(*entry.ReviewText)
		if err != nil {
			return err
		}
		entry.ReviewText = &opened
	}
	if entry.Notes != nil {
		opened, err := s.cipher.Open(*entry.Notes)
		if err != nil {
			return err
		}
		entry.Notes = &opened
	}
	return nil
}

// EncryptText seals a single field value.
func (s *EncryptionService) EncryptText(text string) (string, error) {
	return s.cipher.Seal(text)
}
