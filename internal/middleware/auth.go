package middleware

import (
	"errors"
	"net/url"
	"strings"

	"arqueo-backend/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const UserIDKey = "user_id"

// AuthMiddleware verifies the hosted-auth HS256 access token and stores the
// caller's id (the "sub" claim) under UserIDKey.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortAuth(c, "missing authorization header")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortAuth(c, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortAuth(c, "empty token")
			return
		}

		// Some clients URL-encode the token
		if decoded, err := url.QueryUnescape(tokenString); err == nil {
			tokenString = decoded
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			if jwtSecret == "" {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				abortAuth(c, "token has expired")
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				abortAuth(c, "token signature is invalid")
			default:
				abortAuth(c, "invalid token")
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			abortAuth(c, "invalid token claims")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			abortAuth(c, "missing user id in token")
			return
		}
		if _, err := uuid.Parse(sub); err != nil {
			abortAuth(c, "invalid user id in token")
			return
		}

		c.Set(UserIDKey, sub)
		c.Next()
	}
}

func abortAuth(c *gin.Context, msg string) {
	_ = c.Error(apperr.Auth(msg))
	c.Abort()
}

// UserID returns the authenticated caller set by AuthMiddleware.
func UserID(c *gin.Context) (string, error) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", apperr.Auth("user id not found")
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", apperr.Auth("user id not found")
	}
	return id, nil
}
