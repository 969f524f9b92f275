package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"
)

func main() {
	name := pflag.String("name", "editor", "token subject shown in request logs")
	ttl := pflag.Duration("ttl", 0, "token lifetime, 0 for no expiry")
	pflag.Parse()

	signingSecret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
	if len(signingSecret) < 16 {
		fmt.Fprintln(os.Stderr, "APP_SIGNING_SECRET must be set to at least 16 characters")
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   *name,
		"scope": "content:write",
		"iat":   now.Unix(),
	}
	if *ttl > 0 {
		claims["exp"] = now.Add(*ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(signingSecret))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(signedToken)
}
