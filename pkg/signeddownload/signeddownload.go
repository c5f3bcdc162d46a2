package signeddownload

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultExpireAfter = 30 * time.Minute

type Client struct {
	jwtSecret []byte
}

type DownloadTokenClaims struct {
	LinkID   string `json:"lid"`
	FileName string `json:"file"`
	jwt.RegisteredClaims
}

func NewClient(secret []byte) *Client {
	return &Client{
		jwtSecret: secret,
	}
}

func (s *Client) GenerateDownloadToken(linkID, fileName string, expiresAt time.Time) (string, error) {
	claims := DownloadTokenClaims{
		LinkID:   linkID,
		FileName: fileName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "webmrec",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Client) ParseDownloadToken(tokenString string) (*DownloadTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DownloadTokenClaims{}, func(token *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*DownloadTokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
