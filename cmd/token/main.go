// Command token mints a bearer token for local development.
//
//	ROOMMATES_JWT_SECRET=dev go run ./cmd/token -user alice
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmynk/roommates/internal/auth"
	"github.com/mmynk/roommates/internal/config"
	"github.com/mmynk/roommates/pkg/logging"
)

func main() {
	logging.Setup()

	user := flag.String("user", "", "user ID to put in the token (required)")
	email := flag.String("email", "", "optional email claim")
	flag.Parse()

	if *user == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL).Generate(*user, *email)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
