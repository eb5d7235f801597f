// Package notifier delivers signed deposit notifications to a webhook.
//
// Each notification is POSTed as a form. The HMAC header holds the
// HMAC-SHA512 of the canonical form of the same fields, and the receiver
// acknowledges by answering with the body "ok" in any case.
package notifier

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"github.com/hashicorp/go-retryablehttp"
)

// Form field names.
const (
	FieldTransactionHash    = "transactionHash"
	FieldToAddress          = "toAddress"
	FieldCurrency           = "currency"
	FieldAPIKey             = "apiKey"
	FieldGatewayKey         = "gatewayKey"
	FieldAmount             = "amount"
	FieldAmountBigInt       = "amountBigInt"
	FieldBlockConfirmations = "blockConfirmations"
	FieldIsConfirmed        = "isConfirmed"
	FieldNonce              = "nonce"
)

// ackBody is the case-insensitive body of an acknowledged delivery.
const ackBody = "ok"

// maxResponseBody bounds how much of the response is read.
const maxResponseBody = 64 << 10

// Notification describes one transfer in one confirmation state.
type Notification struct {
	TxHash             string
	Recipient          string
	Currency           string
	Amount             string
	AmountSmallestUnit *big.Int
	Confirmations      int64
	Confirmed          bool
}

// Sender delivers notifications. Send reports whether the receiver
// acknowledged; it never fails in any other way.
type Sender interface {
	Send(ctx context.Context, n Notification) bool
}

// Config holds the webhook endpoint and credentials.
type Config struct {
	CallbackURL string `validate:"required,http_url"`
	APIKey      string `validate:"required"`
	APISecret   string `validate:"required"`
}

type webhook struct {
	cfg    Config
	client *retryablehttp.Client
	now    func() time.Time
}

var _ Sender = (*webhook)(nil)

// NewWebhook validates cfg and returns a Sender posting with client.
func NewWebhook(cfg Config, client *retryablehttp.Client) (*webhook, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, err
	}

	return &webhook{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}, nil
}

// GatewayKey is the stable per-recipient key receivers can deduplicate on.
func GatewayKey(apiKey, recipient string) string {
	return apiKey + "-" + strings.ToLower(recipient)
}

// formatBool renders booleans as "True" and "False", which is what existing
// receivers compare against.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Fields returns the form fields of n. nonce is the send time.
func Fields(n Notification, apiKey string, nonce time.Time) map[string]string {
	amountBigInt := "0"
	if n.AmountSmallestUnit != nil {
		amountBigInt = n.AmountSmallestUnit.String()
	}

	return map[string]string{
		FieldTransactionHash:    n.TxHash,
		FieldToAddress:          n.Recipient,
		FieldCurrency:           n.Currency,
		FieldAPIKey:             apiKey,
		FieldGatewayKey:         GatewayKey(apiKey, n.Recipient),
		FieldAmount:             n.Amount,
		FieldAmountBigInt:       amountBigInt,
		FieldBlockConfirmations: strconv.FormatInt(n.Confirmations, 10),
		FieldIsConfirmed:        formatBool(n.Confirmed),
		FieldNonce:              nonce.UTC().Format(http.TimeFormat),
	}
}

// Send posts n and reports whether the receiver answered with a 2xx status
// and an "ok" body. Failures are logged.
func (w *webhook) Send(ctx context.Context, n Notification) bool {
	ctx = logger.Derive(ctx,
		"tx_hash", n.TxHash,
		"to", n.Recipient,
		"amount", n.Amount,
		"confirmed", n.Confirmed,
	)

	fields := Fields(n, w.cfg.APIKey, w.now())

	form := make(url.Values, len(fields))
	for k, v := range fields {
		form.Set(k, v)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.cfg.CallbackURL, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Error(ctx, "failed to build notification request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, Sign(w.cfg.APISecret, Canonical(fields)))

	res, err := w.client.Do(req)
	if err != nil {
		logger.Error(ctx, "notification delivery failed", "error", err)
		return false
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		logger.Error(ctx, "failed to read notification response", "status", res.StatusCode, "error", err)
		return false
	}

	if res.StatusCode < 200 || res.StatusCode > 299 || !strings.EqualFold(string(body), ackBody) {
		logger.Error(ctx, "notification rejected", "status", res.StatusCode, "body", string(body))
		return false
	}

	logger.Info(ctx, "notification acknowledged")
	return true
}
