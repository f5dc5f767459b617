package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apiplans/checkout-backend/api"
	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/db/storage"
	"github.com/apiplans/checkout-backend/notifications"
	"github.com/apiplans/checkout-backend/notifications/sendgrid"
	"github.com/apiplans/checkout-backend/notifications/smtp"
	"github.com/apiplans/checkout-backend/stripe"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/dvote/log"
)

const (
	lockCleanupInterval = 10 * time.Minute
	shutdownTimeout     = 15 * time.Second
)

func main() {
	// a .env file is optional, real environment variables take precedence
	_ = godotenv.Load()
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 3000, "listen port")
	flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.String("web-dir", "", "optional directory with the static pricing site")
	flag.String("stripe-secret-key", "", "Stripe secret key")
	flag.String("stripe-webhook-secret", "", "Stripe webhook signing secret")
	flag.String("stripe-price-starter", "", "Stripe price ID of the starter plan")
	flag.String("stripe-price-professional", "", "Stripe price ID of the professional plan")
	flag.String("stripe-price-enterprise", "", "Stripe price ID of the enterprise plan")
	flag.String("db-driver", db.DriverPostgres, "account store driver (postgres, sqlite, mongo)")
	flag.String("db-url", "", "account store DSN or connection URI")
	flag.String("db-password", "", "account store password, overrides the one in a postgres DSN")
	flag.String("db-name", storage.DefaultDatabase, "database name (mongo only)")
	flag.String("sendgrid-api-key", "", "SendGrid API key, takes precedence over SMTP for welcome emails")
	flag.String("smtp-server", "", "SMTP server, welcome emails are disabled when empty")
	flag.Int("smtp-port", 587, "SMTP port")
	flag.String("smtp-username", "", "SMTP username")
	flag.String("smtp-password", "", "SMTP password")
	flag.String("mail-from-address", "", "sender address of the welcome emails")
	flag.String("mail-from-name", "API Plans", "sender name of the welcome emails")
	// parse flags
	flag.Parse()
	// initialize Viper
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// the store settings keep the names used by the hosting platform
	for key, env := range map[string]string{
		"db-driver":   "DATABASE_DRIVER",
		"db-url":      "DATABASE_URL",
		"db-password": "DATABASE_PASSWORD",
		"db-name":     "DATABASE_NAME",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
	log.Init(viper.GetString("log-level"), "stdout", nil)

	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	stripeConf := &stripe.Config{
		APIKey:        viper.GetString("stripe-secret-key"),
		WebhookSecret: viper.GetString("stripe-webhook-secret"),
		Prices: map[stripe.Plan]string{
			stripe.PlanStarter:      viper.GetString("stripe-price-starter"),
			stripe.PlanProfessional: viper.GetString("stripe-price-professional"),
			stripe.PlanEnterprise:   viper.GetString("stripe-price-enterprise"),
		},
	}
	if stripeConf.APIKey == "" {
		log.Warn("stripe secret key not set, checkout sessions will fail")
	}
	if stripeConf.WebhookSecret == "" {
		log.Warn("stripe webhook secret not set, every webhook will be rejected")
	}

	// initialize the account store
	store, err := storage.New(&db.Config{
		Driver:   viper.GetString("db-driver"),
		URL:      viper.GetString("db-url"),
		Password: viper.GetString("db-password"),
		Database: viper.GetString("db-name"),
	})
	if err != nil {
		log.Fatalf("could not open the account store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnw("could not close the account store", "error", err)
		}
	}()

	// welcome emails are optional
	var mailService notifications.NotificationService
	switch {
	case viper.GetString("sendgrid-api-key") != "":
		mail := new(sendgrid.Email)
		if err := mail.Init(&sendgrid.Config{
			FromName:    viper.GetString("mail-from-name"),
			FromAddress: viper.GetString("mail-from-address"),
			APIKey:      viper.GetString("sendgrid-api-key"),
		}); err != nil {
			log.Fatalf("could not create the email service: %v", err)
		}
		mailService = mail
		log.Infow("email service created", "provider", "sendgrid")
	case viper.GetString("smtp-server") != "":
		mail := new(smtp.Email)
		if err := mail.Init(&smtp.Config{
			FromName:     viper.GetString("mail-from-name"),
			FromAddress:  viper.GetString("mail-from-address"),
			SMTPUsername: viper.GetString("smtp-username"),
			SMTPPassword: viper.GetString("smtp-password"),
			SMTPServer:   viper.GetString("smtp-server"),
			SMTPPort:     viper.GetInt("smtp-port"),
		}); err != nil {
			log.Fatalf("could not create the email service: %v", err)
		}
		mailService = mail
		log.Infow("email service created", "provider", "smtp", "server", viper.GetString("smtp-server"))
	default:
		log.Infow("no email service configured, welcome emails are disabled")
	}

	catalog := stripe.NewCatalog(stripeConf.Prices)
	log.Infow("plan catalog loaded", "plans", catalog.Plans())
	service, err := stripe.NewService(stripe.NewClient(stripeConf, nil), store, catalog, mailService)
	if err != nil {
		log.Fatalf("could not create the stripe service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartLockCleanup(ctx, lockCleanupInterval)

	// create the local API server
	server := api.New(&api.Config{
		Host:    host,
		Port:    port,
		Service: service,
		WebDir:  viper.GetString("web-dir"),
	})
	server.Start()
	log.Infow("server started", "host", host, "port", port)

	// wait for a termination signal, as the server is running in a goroutine
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("server shutdown failed", "error", err)
	}
}
