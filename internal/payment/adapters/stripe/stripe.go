package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"

	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret, ok := readString(cfg.Config, "webhook_secret")
	if !ok {
		return nil, paymentdomain.ErrInvalidConfig
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	adapter := &Adapter{webhookSecret: secret}

	if apiKey, ok := readString(cfg.Config, "secret_key"); ok {
		apiKey = strings.TrimSpace(apiKey)
		if apiKey != "" {
			sc := &client.API{}
			sc.Init(apiKey, nil)
			adapter.api = sc
		}
	}

	return adapter, nil
}

type Adapter struct {
	webhookSecret string
	api           *client.API
}

// signatureTolerance bounds the age of the signed timestamp so a captured
// header cannot be replayed later.
const signatureTolerance = 5 * time.Minute

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedAt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := time.Since(time.Unix(signedAt, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

// ListLineItems retrieves the session's line items with the product expanded
// so its metadata is available for catalog resolution.
func (a *Adapter) ListLineItems(ctx context.Context, sessionID string) ([]paymentdomain.LineItem, error) {
	if a.api == nil {
		return nil, paymentdomain.ErrInvalidConfig
	}

	params := &stripeapi.CheckoutSessionListLineItemsParams{
		Session: stripeapi.String(sessionID),
	}
	params.Context = ctx
	params.AddExpand("data.price.product")

	items := []paymentdomain.LineItem{}
	iter := a.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		if li == nil {
			continue
		}
		items = append(items, paymentdomain.LineItem{
			ProductID:  resolveProductID(li),
			Name:       lineItemName(li),
			Quantity:   li.Quantity,
			UnitAmount: lineItemUnitAmount(li),
			Amount:     li.AmountTotal,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                string                 `json:"id"`
	ClientReferenceID string                 `json:"client_reference_id"`
	AmountTotal       int64                  `json:"amount_total"`
	Currency          string                 `json:"currency"`
	Created           int64                  `json:"created"`
	CustomerDetails   stripeCustomerDetails  `json:"customer_details"`
	Metadata          map[string]interface{} `json:"metadata"`
}

type stripeCustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.CheckoutEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	occurredAt := timestamp(session.Created, event.Created)
	return &paymentdomain.CheckoutEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCheckoutCompleted,
		SessionID:       session.ID,
		UserRef:         strings.TrimSpace(session.ClientReferenceID),
		CustomerEmail:   strings.TrimSpace(session.CustomerDetails.Email),
		CustomerName:    strings.TrimSpace(session.CustomerDetails.Name),
		AmountTotal:     session.AmountTotal,
		Currency:        strings.ToLower(strings.TrimSpace(session.Currency)),
		OccurredAt:      occurredAt,
		RawPayload:      payload,
	}, nil
}

func resolveProductID(li *stripeapi.LineItem) string {
	if li.Price == nil || li.Price.Product == nil {
		return ""
	}
	product := li.Price.Product
	if product.Deleted {
		return ""
	}
	if product.Metadata != nil {
		if id := strings.TrimSpace(product.Metadata["product_id"]); id != "" {
			return id
		}
	}
	return ""
}

func lineItemName(li *stripeapi.LineItem) string {
	if name := strings.TrimSpace(li.Description); name != "" {
		return name
	}
	if li.Price != nil && li.Price.Product != nil {
		return strings.TrimSpace(li.Price.Product.Name)
	}
	return ""
}

func lineItemUnitAmount(li *stripeapi.LineItem) int64 {
	if li.Price != nil && li.Price.UnitAmount > 0 {
		return li.Price.UnitAmount
	}
	if li.Quantity > 0 {
		return li.AmountTotal / li.Quantity
	}
	return li.AmountTotal
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	switch cast := value.(type) {
	case string:
		return cast, true
	default:
		return "", false
	}
}
