package utils

import (
	"errors"
	"fmt"
	"time"

	"sales-arena/shared/config"
	"sales-arena/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "sales-arena"

type Claims struct {
	SellerID uuid.UUID   `json:"seller_id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT signs an access token for the seller and returns it with its expiry.
func GenerateJWT(seller *models.Seller, cfg *config.Config) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.JWT.ExpiryHours) * time.Hour)

	claims := &Claims{
		SellerID: seller.ID,
		Email:    seller.Email,
		Role:     seller.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   seller.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ValidateJWT(tokenString string, cfg *config.Config) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
