package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-settlement/internal/domain"
)

// NotificationHandler turns order.placed events into a customer confirmation
// and an operator alert. Neither mail is retried.
type NotificationHandler struct {
	emailServiceURL string
	adminEmail      string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL, adminEmail string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		adminEmail:      adminEmail,
		httpClient:      client,
		logger:          logger,
	}
}

type emailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle only fails on a payload it cannot decode. Delivery failures are
// logged and swallowed.
func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.InfoContext(ctx, "processing order placed event",
		"order_id", event.OrderID, "order_number", event.OrderNumber)

	if event.CustomerEmail == "" {
		h.logger.WarnContext(ctx, "order has no customer email, skipping confirmation", "order_id", event.OrderID)
	} else if err := h.sendEmail(ctx, confirmationEmail(event)); err != nil {
		h.logger.ErrorContext(ctx, "failed to send confirmation email", "error", err, "order_id", event.OrderID)
	}

	if h.adminEmail != "" {
		if err := h.sendEmail(ctx, adminAlert(event, h.adminEmail)); err != nil {
			h.logger.ErrorContext(ctx, "failed to send admin alert", "error", err, "order_id", event.OrderID)
		}
	}

	return nil
}

func confirmationEmail(event domain.OrderPlacedEvent) emailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", event.CustomerName)
	fmt.Fprintf(&b, "Thank you for your order %s.\n\n", event.OrderNumber)
	writeItems(&b, event.Items)
	fmt.Fprintf(&b, "\nTotal: %s\n", event.Total.StringFixed(2))

	switch event.PaymentMethod {
	case domain.PaymentMethodBankTransfer:
		b.WriteString("\nPlease transfer the total to the account below, quoting your order number.\n")
		if bank := event.BankDetails; bank != nil {
			fmt.Fprintf(&b, "Bank: %s\nAccount holder: %s\nIBAN: %s\n", bank.BankName, bank.AccountHolder, bank.IBAN)
		}
	case domain.PaymentMethodDeferredAccount:
		b.WriteString("\nThe total has been charged to your current account.\n")
	case domain.PaymentMethodCard:
		b.WriteString("\nYour order will be processed once the card payment is confirmed.\n")
	}

	return emailMessage{
		To:      event.CustomerEmail,
		Subject: "Order confirmation " + event.OrderNumber,
		Body:    b.String(),
	}
}

func adminAlert(event domain.OrderPlacedEvent, to string) emailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s from %s <%s>\n", event.OrderNumber, event.CustomerName, event.CustomerEmail)
	fmt.Fprintf(&b, "Payment: %s\n\n", event.PaymentMethod)
	writeItems(&b, event.Items)
	fmt.Fprintf(&b, "\nTotal: %s\n", event.Total.StringFixed(2))

	return emailMessage{
		To:      to,
		Subject: "New order " + event.OrderNumber,
		Body:    b.String(),
	}
}

func writeItems(b *strings.Builder, items []domain.PricedLine) {
	for _, item := range items {
		name := item.ProductName
		if item.VariantInfo != "" {
			name += " (" + item.VariantInfo + ")"
		}
		fmt.Fprintf(b, "%d x %s @ %s = %s\n", item.Quantity, name, item.UnitPrice.StringFixed(2), item.LineTotal.StringFixed(2))
	}
}

func (h *NotificationHandler) sendEmail(ctx context.Context, msg emailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
