package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artistlab-studio/campus-registration/api"
	"github.com/artistlab-studio/campus-registration/notify"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

// createNotifier picks the one email backend this deployment uses. LOCAL
// just logs the mail instead of sending it.
func createNotifier(ctx context.Context, logger *slog.Logger, env api.Environment) (notify.Sender, error) {
	if env == api.LOCAL {
		return notify.NewLogSender(logger), nil
	}

	switch backend := getEnvOrDefault("EMAIL_BACKEND", "mailgun"); backend {
	case "mailgun":
		return notify.NewMailgunSender(
			mustEnv(logger, "MAILGUN_DOMAIN"),
			mustEnv(logger, "MAILGUN_API_KEY"),
		), nil
	case "ses":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get aws config: %w", err)
		}

		return notify.NewSESSender(sesv2.NewFromConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown email backend %q", backend)
	}
}
