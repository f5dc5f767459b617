// Package main provides an operator tool to inspect and toggle accounts in
// the account store. Usage:
//
//	cli --db-url=... <show|enable|disable> <email>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/db/storage"
	"github.com/apiplans/checkout-backend/internal"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/dvote/log"
)

func main() {
	_ = godotenv.Load()
	// Define command-line flags
	flag.StringP("db-driver", "D", db.DriverPostgres, "account store driver (postgres, sqlite, mongo)")
	flag.StringP("db-url", "u", "", "account store DSN or connection URI")
	flag.String("db-password", "", "account store password, overrides the one in a postgres DSN")
	flag.StringP("db-name", "d", storage.DefaultDatabase, "database name (mongo only)")
	flag.BoolP("show-key", "k", false, "print the API key instead of masking it")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <show|enable|disable> <email>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize Viper for environment variable support
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		log.Fatalf("could not bind flags: %v", err)
	}
	for key, env := range map[string]string{
		"db-driver":   "DATABASE_DRIVER",
		"db-url":      "DATABASE_URL",
		"db-password": "DATABASE_PASSWORD",
		"db-name":     "DATABASE_NAME",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("could not bind env: %v", err)
		}
	}
	log.Init("warn", "stderr", nil)

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	command, email := flag.Arg(0), strings.TrimSpace(flag.Arg(1))
	if !internal.ValidEmail(email) {
		log.Fatalf("invalid email %q", email)
	}

	store, err := storage.New(&db.Config{
		Driver:   viper.GetString("db-driver"),
		URL:      viper.GetString("db-url"),
		Password: viper.GetString("db-password"),
		Database: viper.GetString("db-name"),
	})
	if err != nil {
		log.Fatalf("could not open the account store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	switch command {
	case "show":
	case "enable", "disable":
		if err := store.SetAccountEnabledByEmail(ctx, email, command == "enable"); err != nil {
			log.Fatalf("could not %s account: %v", command, err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	account, err := store.AccountByEmail(ctx, email)
	if err != nil {
		log.Fatalf("could not get account: %v", err)
	}
	if !viper.GetBool("show-key") {
		account.APIKey = maskKey(account.APIKey)
	}
	out, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		log.Fatalf("could not encode account: %v", err)
	}
	fmt.Println(string(out))
}

// maskKey keeps the first and last four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
