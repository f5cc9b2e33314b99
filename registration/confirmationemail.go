package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/artistlab-studio/campus-registration/notify"
	"github.com/artistlab-studio/campus-registration/payments"
	"github.com/artistlab-studio/campus-registration/sessions"
)

//go:embed templates
var templates embed.FS

type confirmationData struct {
	FirstName        string
	LastName         string
	Location         string
	Date             string
	Amount           string
	PaymentReference string
	PaymentDate      string
}

// SendPaymentConfirmationEmail notifies the payer that their payment went
// through and their spot is reserved. Language follows the session's locale.
func SendPaymentConfirmationEmail(ctx context.Context, sender notify.Sender, fromAddress string, reg Registration, outcome payments.CheckoutOutcome) error {
	session, ok := sessions.Get(reg.Session)
	if !ok {
		return NewUnknownSessionError(string(reg.Session))
	}

	amount := money.New(outcome.AmountReceived, strings.ToUpper(outcome.Currency))

	data := confirmationData{
		FirstName:        reg.FirstName,
		LastName:         reg.LastName,
		Location:         session.Location(),
		Date:             session.Date(),
		Amount:           amount.Display(),
		PaymentReference: outcome.PaymentReference,
		PaymentDate:      time.Now().UTC().Format("02/01/2006 15:04"),
	}

	locale := string(session.Locale)

	htmlBody, err := makeConfirmationHTMLBody(locale, data)
	if err != nil {
		return err
	}

	textBody, err := makeConfirmationTextBody(locale, data)
	if err != nil {
		return err
	}

	subject := "🎉 Paiement confirmé - Formation Cinéma & IA - Artist Lab CAMPUS"
	if session.Locale == sessions.EN {
		subject = "🎉 Payment confirmed - Cinema & AI Training - Artist Lab CAMPUS"
	}

	return sender.Send(ctx, notify.Message{
		FromAddress: fromAddress,
		ToAddress:   reg.Email,
		ReplyTo:     "info@artistlab.studio",
		Subject:     subject,
		HTMLBody:    htmlBody,
		TextBody:    textBody,
		Tags: []string{
			"payment_confirmation",
			fmt.Sprintf("training_location_%s", reg.Session),
		},
	})
}

func makeConfirmationHTMLBody(locale string, data confirmationData) (string, error) {
	name := fmt.Sprintf("payment-confirmation-%s.tmpl", locale)
	tmpl, err := template.ParseFS(templates, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

func makeConfirmationTextBody(locale string, data confirmationData) (string, error) {
	name := fmt.Sprintf("payment-confirmation-%s-textonly.tmpl", locale)
	tmpl, err := texttemplate.ParseFS(templates, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}
