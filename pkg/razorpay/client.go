package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpaysdk "github.com/razorpay/razorpay-go"

	"github.com/freshkart/freshkart-backend/pkg/config"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

var (
	errKeyIDRequired  = errors.New("razorpay key id is required")
	errSecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired = errors.New("razorpay logger is required")
)

// OrderParams describes a gateway order request. Notes travel with the remote
// order and are the only durable record available to the asynchronous
// verification callback, so they must carry the pricing breakdown.
type OrderParams struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]any
}

// OrderResult is the subset of the gateway response the checkout flow needs.
type OrderResult struct {
	OrderID     string
	AmountPaise int64
	Currency    string
	KeyID       string
}

// Client wraps the Razorpay SDK with centralized auth, logging, timeouts, and
// error mapping.
type Client struct {
	sdk       *razorpaysdk.Client
	keyID     string
	keySecret string
	logger    *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errSecretRequired
	}

	sdk := razorpaysdk.NewClient(keyID, keySecret)
	if cfg.RequestTimeout > 0 {
		sdk.SetTimeout(int16(cfg.RequestTimeout.Seconds()))
	}

	c := &Client{
		sdk:       sdk,
		keyID:     keyID,
		keySecret: keySecret,
		logger:    logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key identifier handed to gateway-facing clients.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrder registers a payment intent with the gateway. A transport or
// timeout failure surfaces as CodeDependency so the caller can roll back the
// local order it just created.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*OrderResult, error) {
	if params.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway amount must be positive")
	}
	currency := params.Currency
	if currency == "" {
		currency = "INR"
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"amount_paise": params.AmountPaise,
		"currency":     currency,
		"receipt":      params.Receipt,
	})

	data := map[string]any{
		"amount":   params.AmountPaise,
		"currency": currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	body, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order failed")
	}

	orderID, _ := body["id"].(string)
	if orderID == "" {
		c.log(ctx, "error", "create_order", map[string]any{"error": "missing order id in response"})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay response missing order id")
	}

	c.log(ctx, "response", "create_order", map[string]any{"gateway_order_id": orderID})
	return &OrderResult{
		OrderID:     orderID,
		AmountPaise: params.AmountPaise,
		Currency:    currency,
		KeyID:       c.keyID,
	}, nil
}

// VerifySignature recomputes the expected payment signature from the gateway
// order and payment identifiers and compares it in constant time.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}
