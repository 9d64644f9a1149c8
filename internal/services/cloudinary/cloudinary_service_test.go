package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/skilltrade-api/internal/config"
)

func newTestService(secret string) *CloudinaryService {
	return &CloudinaryService{
		cfg: &config.Config{
			CloudinaryConfig: config.CloudinaryConfig{APISecret: secret},
		},
	}
}

func TestGenerateSignature(t *testing.T) {
	s := newTestService("secret")

	// Параметры подписываются в алфавитном порядке ключей
	signature := s.GenerateSignature(map[string]string{
		"timestamp": "1700000000",
		"folder":    "deliverables",
	})

	h := sha1.New()
	h.Write([]byte("folder=deliverables&timestamp=1700000000secret"))
	expected := hex.EncodeToString(h.Sum(nil))

	assert.Equal(t, expected, signature)
}

func TestGenerateSignatureDependsOnSecret(t *testing.T) {
	params := map[string]string{"timestamp": "1700000000"}

	first := newTestService("secret-one").GenerateSignature(params)
	second := newTestService("secret-two").GenerateSignature(params)

	assert.NotEqual(t, first, second)
}
