package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	apiTokenScope      = "content:write"
	apiTokenContextKey = "apiTokenName"
)

// createAPIToken signs a write token. A zero expiresIn yields a token without
// expiry.
func createAPIToken(secret, name string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   name,
		"scope": apiTokenScope,
		"iat":   now.Unix(),
	}
	if expiresIn > 0 {
		claims["exp"] = now.Add(expiresIn).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (a *App) createAPIToken(name string, expiresIn time.Duration) (string, error) {
	return createAPIToken(a.cfg.AppSigningSecret, name, expiresIn)
}

func (a *App) verifyAPIToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(a.cfg.AppSigningSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	if scope, _ := claims["scope"].(string); scope != apiTokenScope {
		return "", fmt.Errorf("missing scope")
	}
	name, ok := claims["sub"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("missing subject")
	}
	return name, nil
}

func (a *App) requireAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.cfg.PublicWrites {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope(http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials"))
			return
		}

		name, err := a.verifyAPIToken(strings.TrimSpace(tokenString))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope(http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials"))
			return
		}
		c.Set(apiTokenContextKey, name)
		c.Next()
	}
}
