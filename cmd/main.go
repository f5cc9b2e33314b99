package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/artistlab-studio/campus-registration/api"
	"github.com/artistlab-studio/campus-registration/dynamo"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a local dev convenience; in deployed environments the real
	// environment wins.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()

	env := getEnvironment()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Error("failed to load aws config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db := dynamo.NewDB(awsdynamodb.NewFromConfig(awsCfg), mustEnv(logger, "DYNAMO_TABLE_NAME"))

	stripeManager := payments.NewStripeManager(
		mustEnv(logger, "STRIPE_SECRET_KEY"),
		mustEnv(logger, "STRIPE_WEBHOOK_SECRET"),
	)

	notifier, err := createNotifier(ctx, logger, env)
	if err != nil {
		logger.Error("failed to create notifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	apiCfg := api.Config{
		PriceID:     mustEnv(logger, "STRIPE_PRICE_ID"),
		SuccessURL:  mustEnv(logger, "CHECKOUT_SUCCESS_URL"),
		CancelURL:   mustEnv(logger, "CHECKOUT_CANCEL_URL"),
		FromAddress: getEnvOrDefault("EMAIL_FROM_ADDRESS", "Artist Lab CAMPUS <noreply@artistlab.studio>"),
		AllowedOrigins: []string{
			getEnvOrDefault("ALLOWED_ORIGIN", "https://campus.artistlab.studio"),
		},
	}

	a := api.NewAPI(db, logger, env, stripeManager, notifier, apiCfg)

	serverSettings := getServerSettingsFromEnv()
	s := &http.Server{
		Handler: a.Handler(),
		Addr:    net.JoinHostPort(serverSettings.Host, serverSettings.Port),
	}

	logger.Info("starting server", slog.String("addr", s.Addr))
	if err := s.ListenAndServe(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type ServerSettings struct {
	Host string
	Port string
}

func getServerSettingsFromEnv() ServerSettings {
	return ServerSettings{
		Host: getEnvOrDefault("HOST", "0.0.0.0"),
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func getEnvironment() api.Environment {
	if getEnvOrDefault("ENV", "local") == "prod" {
		return api.PROD
	}
	return api.LOCAL
}

func getEnvOrDefault(key string, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return defaultVal
}

// mustEnv fails fast: a missing required variable is a configuration error,
// not something to limp along without.
func mustEnv(logger *slog.Logger, key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Error(fmt.Sprintf("required environment variable %s is not set", key))
		os.Exit(1)
	}

	return v
}
