// Package main mints an API token for an existing user, for scripting and
// local testing against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/narvanalabs/boardroom/internal/auth"
	pgstore "github.com/narvanalabs/boardroom/internal/store/postgres"
	"github.com/narvanalabs/boardroom/pkg/config"
	"github.com/narvanalabs/boardroom/pkg/logger"
)

func main() {
	cfg := config.LoadWithDefaults()
	login := flag.String("login", "", "Username or email of the user the token is for")
	dsn := flag.String("dsn", cfg.DatabaseDSN, "Database URL (or set DATABASE_URL env var)")
	expiry := flag.Duration("expiry", cfg.JWTExpiry, "Token expiry duration")
	flag.Parse()

	if *login == "" {
		fmt.Fprintln(os.Stderr, "Error: -login is required")
		os.Exit(2)
	}
	if os.Getenv("JWT_SECRET") == "" {
		fmt.Fprintln(os.Stderr, "Error: set JWT_SECRET to the secret the API runs with")
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: logger.ParseLevel("warn")})
	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(*dsn), log.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := st.Users().GetByLogin(ctx, *login)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up %q: %v\n", *login, err)
		os.Exit(1)
	}

	svc := auth.NewService(&auth.Config{JWTSecret: []byte(cfg.JWTSecret), TokenExpiry: *expiry}, nil, log.Logger)
	token, err := svc.GenerateToken(user.ID, user.Email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
