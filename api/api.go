package api

import (
	"log/slog"
	"net/http"

	"github.com/artistlab-studio/campus-registration/account"
	"github.com/artistlab-studio/campus-registration/notify"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/registration"
	"github.com/go-playground/validator/v10"
)

type DB interface {
	registration.Repository
	account.Repository
}

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

// Config is the request-handling configuration the API needs beyond its
// collaborators: the product being sold and where checkout redirects land.
type Config struct {
	PriceID     string
	SuccessURL  string
	CancelURL   string
	FromAddress string
	// AllowedOrigins restricts CORS in PROD; LOCAL allows everything.
	AllowedOrigins []string
}

type API struct {
	db       DB
	logger   *slog.Logger
	env      Environment
	payments payments.Provider
	notifier notify.Sender
	cfg      Config
	validate *validator.Validate
}

func NewAPI(db DB, logger *slog.Logger, env Environment, paymentsProvider payments.Provider, notifier notify.Sender, cfg Config) *API {
	return &API{
		db:       db,
		logger:   logger,
		env:      env,
		payments: paymentsProvider,
		notifier: notifier,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler builds the full HTTP surface with the middleware chain applied.
func (a *API) Handler() http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("POST /registrations", a.handleCreateRegistration)
	r.HandleFunc("POST /webhooks/stripe", a.handleStripeWebhook)

	return useMiddlewares(r,
		a.requestLoggerMiddleware(),
		a.loggingMiddleware(),
		a.corsMiddleware(),
	)
}
