package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Stable domain error codes. Callers branch on these with errors.Is instead
// of matching message strings.
var (
	ErrCheckoutSessionCreation   = errors.New("CHECKOUT_SESSION_CREATION_FAILED")
	ErrSubscriptionCreation      = errors.New("SUBSCRIPTION_CREATION_FAILED")
	ErrSubscriptionCancellation  = errors.New("SUBSCRIPTION_CANCELLATION_FAILED")
	ErrSubscriptionReactivation  = errors.New("SUBSCRIPTION_REACTIVATION_FAILED")
	ErrSubscriptionRetrieval     = errors.New("SUBSCRIPTION_RETRIEVAL_FAILED")
	ErrCustomerCreation          = errors.New("CUSTOMER_CREATION_FAILED")
	ErrPaymentIntentCreation     = errors.New("PAYMENT_INTENT_CREATION_FAILED")
	ErrPaymentIntentRetrieval    = errors.New("PAYMENT_INTENT_RETRIEVAL_FAILED")
	ErrPaymentIntentCancellation = errors.New("PAYMENT_INTENT_CANCELLATION_FAILED")
	ErrPixQRCodeNotGenerated     = errors.New("PIX_QR_CODE_NOT_GENERATED")
)

type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	http          *http.Client
}

func NewClient(apiKey, webhookSecret string) *Client {
	return &Client{
		baseURL:       "https://api.stripe.com/v1",
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// ToCents converts a decimal amount to minor currency units the way the
// gateway expects, with standard rounding. This is the only place amounts
// are rounded.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateCheckoutSession opens a subscription-mode checkout, card only.
func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (CheckoutSessionOutput, error) {
	customer, err := c.GetOrCreateCustomer(ctx, input.StudentEmail, input.StudentID)
	if err != nil {
		return CheckoutSessionOutput{}, err
	}

	form := url.Values{}
	form.Set("customer", customer.ID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", input.SuccessURL)
	form.Set("cancel_url", input.CancelURL)
	setLineItem(form, input, true)
	form.Set("metadata[studentId]", input.StudentID)
	form.Set("metadata[planId]", input.PlanID)
	form.Set("subscription_data[metadata][studentId]", input.StudentID)
	form.Set("subscription_data[metadata][planId]", input.PlanID)

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		log.Printf("[stripe] checkout session creation failed student=%s plan=%s err=%v", input.StudentID, input.PlanID, err)
		return CheckoutSessionOutput{}, fmt.Errorf("%w: %v", ErrCheckoutSessionCreation, err)
	}
	return CheckoutSessionOutput{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// CreateCheckoutWithPaymentOptions chooses payment mode (one-off, supports
// installments) when the method is card with more than one installment, else
// subscription mode. The session metadata is tagged so the webhook handler
// can tell a one-off-that-represents-a-subscription-payment from a true
// one-off purchase.
func (c *Client) CreateCheckoutWithPaymentOptions(ctx context.Context, input CheckoutSessionInput) (CheckoutSessionOutput, error) {
	customer, err := c.GetOrCreateCustomer(ctx, input.StudentEmail, input.StudentID)
	if err != nil {
		return CheckoutSessionOutput{}, err
	}

	paymentMode := input.PaymentMethod == "card" && input.Installments > 1

	form := url.Values{}
	form.Set("customer", customer.ID)
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", input.SuccessURL)
	form.Set("cancel_url", input.CancelURL)
	form.Set("metadata[studentId]", input.StudentID)
	form.Set("metadata[planId]", input.PlanID)
	form.Set("metadata[paymentMethod]", input.PaymentMethod)
	form.Set("metadata[installments]", strconv.Itoa(input.Installments))

	if paymentMode {
		form.Set("mode", "payment")
		form.Set("metadata[isSubscriptionPayment]", "true")
		form.Set("payment_method_options[card][installments][enabled]", "true")
		setLineItem(form, input, false)
	} else {
		form.Set("mode", "subscription")
		form.Set("subscription_data[metadata][studentId]", input.StudentID)
		form.Set("subscription_data[metadata][planId]", input.PlanID)
		setLineItem(form, input, true)
	}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		log.Printf("[stripe] payment-options checkout failed student=%s plan=%s installments=%d err=%v",
			input.StudentID, input.PlanID, input.Installments, err)
		return CheckoutSessionOutput{}, fmt.Errorf("%w: %v", ErrCheckoutSessionCreation, err)
	}
	return CheckoutSessionOutput{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

func setLineItem(form url.Values, input CheckoutSessionInput, recurring bool) {
	form.Set("line_items[0][price_data][currency]", strings.ToLower(input.Currency))
	form.Set("line_items[0][price_data][product_data][name]", input.PlanName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(ToCents(input.PlanPrice), 10))
	if recurring {
		form.Set("line_items[0][price_data][recurring][interval]", "month")
	}
	form.Set("line_items[0][quantity]", "1")
}

// GetOrCreateCustomer looks up an existing gateway customer by email before
// creating one, so repeated checkout attempts do not pile up duplicates.
func (c *Client) GetOrCreateCustomer(ctx context.Context, email, studentID string) (*Customer, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("limit", "1")

	var list customerList
	if err := c.do(ctx, http.MethodGet, "/customers?"+q.Encode(), nil, &list); err != nil {
		log.Printf("[stripe] customer lookup failed email=%s err=%v", email, err)
		return nil, fmt.Errorf("%w: %v", ErrCustomerCreation, err)
	}
	if len(list.Data) > 0 {
		return &list.Data[0], nil
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[studentId]", studentID)

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &customer); err != nil {
		log.Printf("[stripe] customer creation failed email=%s err=%v", email, err)
		return nil, fmt.Errorf("%w: %v", ErrCustomerCreation, err)
	}
	return &customer, nil
}

// CreatePixIntent requests a PIX-capable payment intent and extracts the QR
// payload from its next_action.
func (c *Client) CreatePixIntent(ctx context.Context, input PixIntentInput) (*PixIntentOutput, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(ToCents(input.FinalAmount), 10))
	form.Set("currency", "brl")
	form.Set("payment_method_types[0]", "pix")
	form.Set("description", input.Description)
	form.Set("metadata[studentId]", input.StudentID)
	form.Set("metadata[planId]", input.PlanID)
	form.Set("metadata[originalAmount]", strconv.FormatFloat(input.OriginalAmount, 'f', -1, 64))
	form.Set("metadata[discount]", strconv.FormatFloat(input.Discount, 'f', -1, 64))
	form.Set("metadata[finalAmount]", strconv.FormatFloat(input.FinalAmount, 'f', -1, 64))

	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payment_intents", form, &intent); err != nil {
		log.Printf("[stripe] pix intent creation failed student=%s plan=%s err=%v", input.StudentID, input.PlanID, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentIntentCreation, err)
	}

	if intent.NextAction == nil || intent.NextAction.PixDisplayQRCode == nil || intent.NextAction.PixDisplayQRCode.Data == "" {
		return nil, ErrPixQRCodeNotGenerated
	}
	qr := intent.NextAction.PixDisplayQRCode
	return &PixIntentOutput{Intent: &intent, QRCode: qr.Data, QRCodeBase64: qr.ImageURLPNG}, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+id, nil, &intent); err != nil {
		log.Printf("[stripe] payment intent retrieval failed id=%s err=%v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentIntentRetrieval, err)
	}
	return &intent, nil
}

func (c *Client) CancelPaymentIntent(ctx context.Context, id string) error {
	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/payment_intents/"+id+"/cancel", url.Values{}, &intent); err != nil {
		log.Printf("[stripe] payment intent cancellation failed id=%s err=%v", id, err)
		return fmt.Errorf("%w: %v", ErrPaymentIntentCancellation, err)
	}
	return nil
}

func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (SubscriptionResult, error) {
	form := url.Values{}
	form.Set("customer", input.CustomerID)
	form.Set("items[0][price]", input.PriceID)
	for k, v := range input.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", form, &sub); err != nil {
		log.Printf("[stripe] subscription creation failed customer=%s err=%v", input.CustomerID, err)
		return SubscriptionResult{}, fmt.Errorf("%w: %v", ErrSubscriptionCreation, err)
	}
	return subscriptionResult(&sub), nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	var sub Subscription
	if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		log.Printf("[stripe] subscription cancellation failed id=%s err=%v", subscriptionID, err)
		return fmt.Errorf("%w: %v", ErrSubscriptionCancellation, err)
	}
	return nil
}

func (c *Client) ReactivateSubscription(ctx context.Context, subscriptionID string) error {
	form := url.Values{}
	form.Set("cancel_at_period_end", "false")

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions/"+subscriptionID, form, &sub); err != nil {
		log.Printf("[stripe] subscription reactivation failed id=%s err=%v", subscriptionID, err)
		return fmt.Errorf("%w: %v", ErrSubscriptionReactivation, err)
	}
	return nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (SubscriptionResult, error) {
	var sub Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &sub); err != nil {
		log.Printf("[stripe] subscription retrieval failed id=%s err=%v", subscriptionID, err)
		return SubscriptionResult{}, fmt.Errorf("%w: %v", ErrSubscriptionRetrieval, err)
	}
	return subscriptionResult(&sub), nil
}

func subscriptionResult(sub *Subscription) SubscriptionResult {
	return SubscriptionResult{
		SubscriptionID:     sub.ID,
		Status:             sub.Status,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	}
}

// do runs one form-encoded request against the gateway and decodes the JSON
// response. No retries here; retry policy belongs to the caller.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("stripe rejected (status %d): %s", resp.StatusCode, truncate(raw, 512))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("stripe response decode: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
