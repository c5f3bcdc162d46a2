package signeddownload_test

import (
	"testing"
	"time"

	"github.com/eric2788/webmrec/pkg/signeddownload"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestGenerateAndParseDownloadToken(t *testing.T) {
	client := signeddownload.NewClient([]byte("my_secret_key"))

	token, err := client.GenerateDownloadToken("abc123", "recorded.webm", time.Now().Add(time.Hour))
	assert.NoError(t, err, "Generating download token should not produce an error")

	claims, err := client.ParseDownloadToken(token)
	assert.NoError(t, err, "Parsing download token should not produce an error")
	assert.Equal(t, "abc123", claims.LinkID)
	assert.Equal(t, "recorded.webm", claims.FileName)
}

func TestExpiredDownloadToken(t *testing.T) {
	client := signeddownload.NewClient([]byte("my_secret_key"))

	token, err := client.GenerateDownloadToken("abc123", "recorded.webm", time.Now().Add(-time.Minute))
	assert.NoError(t, err)

	_, err = client.ParseDownloadToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestForeignSecretRejected(t *testing.T) {
	token, err := signeddownload.NewClient([]byte("a")).GenerateDownloadToken("id", "f.webm", time.Now().Add(time.Hour))
	assert.NoError(t, err)

	_, err = signeddownload.NewClient([]byte("b")).ParseDownloadToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}
