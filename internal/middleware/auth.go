package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "finledger/internal/errors"
)

const (
	actorKey     = "actor"
	localActor   = "local"
	tokenIssuer  = "finledger-api"
	deviceTokens = "device"
)

// JWTClaims represents the claims in a device token
type JWTClaims struct {
	DeviceID  string `json:"device_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateDeviceToken issues a token that lets one of the owner's devices use
// the API.
func GenerateDeviceToken(secret []byte, deviceID string, ttl time.Duration) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("device id is required")
	}
	now := time.Now()
	claims := &JWTClaims{
		DeviceID:  deviceID,
		TokenType: deviceTokens,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   deviceID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseDeviceToken validates a device token and returns its claims.
func ParseDeviceToken(secret []byte, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid device token")
	}
	if claims.TokenType != deviceTokens {
		return nil, fmt.Errorf("token is not a device token")
	}
	return claims, nil
}

// AuthMiddleware verifies the bearer device token and records the device as
// the request's actor.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		claims, err := ParseDeviceToken(secret, parts[1])
		if err != nil {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(actorKey, claims.DeviceID)
		c.Next()
	}
}

// Actor returns who is making the request: the authenticated device, or
// "local" when auth is disabled.
func Actor(c *gin.Context) string {
	if actor := c.GetString(actorKey); actor != "" {
		return actor
	}
	return localActor
}
