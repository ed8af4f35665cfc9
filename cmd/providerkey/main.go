package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/infra"
	"server/internal/infra/credentials"
)

func main() {
	var (
		configFlag string
		secretFlag string
	)
	flag.StringVar(&configFlag, "provider-config-id", "", "Provider configuration to attach the secret to")
	flag.StringVar(&secretFlag, "secret", "", "API secret (falls back to PROVIDER_API_SECRET)")
	flag.Parse()

	configID := strings.TrimSpace(configFlag)
	if configID == "" {
		fmt.Fprintln(os.Stderr, "-provider-config-id is required")
		os.Exit(1)
	}

	secret := strings.TrimSpace(secretFlag)
	if secret == "" {
		secret = strings.TrimSpace(os.Getenv("PROVIDER_API_SECRET"))
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "API secret is required via -secret or PROVIDER_API_SECRET")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.Set(ctxExec, configID, secret); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist secret: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("secret stored for provider config %s\n", configID)
}
