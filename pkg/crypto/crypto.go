package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrInvalidKeySize   = errors.New("encryption key must be 32 bytes")
	ErrMalformedPayload = errors.New("malformed encrypted payload")
	ErrInvalidPadding   = errors.New("invalid padding")
)

// Encryptor encrypts sensitive values (bank account numbers) with
// AES-256-CBC. The output format is "<iv hex>:<ciphertext hex>".
type Encryptor struct {
	key []byte
}

func NewEncryptor(key string) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	return &Encryptor{key: []byte(key)}, nil
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

func (e *Encryptor) Decrypt(payload string) (string, error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		return "", ErrMalformedPayload
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedPayload
	}
	encrypted, err := hex.DecodeString(parts[1])
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", ErrMalformedPayload
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	unpadded, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padding], nil
}

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
// Used by the bank simulator to sign outbound webhooks.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
// A missing signature never verifies.
func VerifySignature(secret, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateReference produces a customer-facing transaction reference,
// e.g. ZING-1743180000000-9f86d081. Uniqueness is probabilistic; there is
// no check against storage.
func GenerateReference() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("ZING-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// GenerateBankReference produces the bank-side reference, e.g. BANK-1743180000000.
func GenerateBankReference() string {
	return fmt.Sprintf("BANK-%d", time.Now().UnixMilli())
}

// GenerateReceiptNumber produces a receipt number, e.g. RCP-1743180000000-417.
func GenerateReceiptNumber() string {
	return fmt.Sprintf("RCP-%d-%d", time.Now().UnixMilli(), mrand.Intn(1000))
}
