package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	sessionPath    = "/gwprocess/v4/api.php"
	validationPath = "/validator/api/validationserverAPI.php"

	Currency     = "BDT"
	defaultPhone = "01700000000"
)

var tracer = otel.Tracer("github.com/anjiri1684/skillhat/payments")

// SSLCommerz is a client for the hosted checkout and validation APIs.
type SSLCommerz struct {
	storeID       string
	storePassword string
	baseURL       string
	httpClient    *http.Client
}

func NewSSLCommerz(storeID, storePassword, baseURL string, timeout time.Duration) *SSLCommerz {
	return &SSLCommerz{
		storeID:       storeID,
		storePassword: storePassword,
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type SessionRequest struct {
	Amount        float64
	TransactionID string

	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string

	ProductName string
	BookingID   string
	PaymentID   string
}

type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`

	Raw string `json:"-"`
}

func (r *SessionResponse) Accepted() bool {
	return r.Status == "SUCCESS" && r.GatewayPageURL != ""
}

type ValidationResponse struct {
	Status     string      `json:"status"`
	TranID     string      `json:"tran_id"`
	ValID      string      `json:"val_id"`
	Amount     Amount      `json:"amount"`
	Currency   string      `json:"currency"`
	BankTranID string      `json:"bank_tran_id"`
	CardType   string      `json:"card_type"`
	CardBrand  string      `json:"card_brand"`

	Raw string `json:"-"`
}

func (r *ValidationResponse) IsValid() bool {
	return r.Status == "VALID" || r.Status == "VALIDATED"
}

// Amount accepts the gateway's amount as a JSON string, number or null.
// Rejection bodies carry it as "".
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// AmountValue returns the validated amount, or false when the gateway did not
// report one.
func (r *ValidationResponse) AmountValue() (float64, bool) {
	if r.Amount == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(r.Amount), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *SSLCommerz) sessionForm(req SessionRequest) url.Values {
	ipnURL := req.IPNURL
	if ipnURL == "" {
		ipnURL = req.SuccessURL
	}
	phone := req.CustomerPhone
	if phone == "" {
		phone = defaultPhone
	}

	form := url.Values{}
	form.Set("store_id", s.storeID)
	form.Set("store_passwd", s.storePassword)
	form.Set("total_amount", fmt.Sprintf("%.2f", req.Amount))
	form.Set("currency", Currency)
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", ipnURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("cus_phone", phone)
	form.Set("cus_add1", req.CustomerAddress)
	form.Set("cus_city", "Dhaka")
	form.Set("cus_country", "Bangladesh")
	form.Set("shipping_method", "NO")
	form.Set("num_of_item", "1")
	form.Set("product_name", req.ProductName)
	form.Set("product_category", "Service")
	form.Set("product_profile", "general")
	form.Set("emi_option", "0")
	form.Set("value_a", req.BookingID)
	form.Set("value_b", req.PaymentID)
	return form
}

// CreateSession opens a hosted checkout session. A rejection by the gateway
// is returned as a response with Accepted() == false, not as an error.
func (s *SSLCommerz) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	ctx, span := tracer.Start(ctx, "sslcommerz.CreateSession")
	defer span.End()
	span.SetAttributes(attribute.String("payment.tran_id", req.TransactionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+sessionPath,
		strings.NewReader(s.sessionForm(req).Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session request failed")
		return nil, err
	}

	var resp SessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	resp.Raw = string(body)
	span.SetAttributes(attribute.String("payment.gateway_status", resp.Status))
	return &resp, nil
}

// Validate asks the gateway for the authoritative outcome of val_id.
func (s *SSLCommerz) Validate(ctx context.Context, valID string) (*ValidationResponse, error) {
	ctx, span := tracer.Start(ctx, "sslcommerz.Validate")
	defer span.End()

	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", s.storeID)
	q.Set("store_passwd", s.storePassword)
	q.Set("format", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+validationPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.New("build validation request")
	}

	body, err := s.do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation request failed")
		return nil, err
	}

	var resp ValidationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode validation response: %w", err)
	}
	resp.Raw = string(body)
	span.SetAttributes(attribute.String("payment.validation_status", resp.Status))
	return &resp, nil
}

// do sends the request and strips the URL from transport errors, since the
// validation URL carries the store password.
func (s *SSLCommerz) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("sslcommerz %s: %w", urlErr.Op, urlErr.Err)
		}
		return nil, fmt.Errorf("sslcommerz: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sslcommerz response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("sslcommerz returned %s", resp.Status)
	}
	return body, nil
}

var paymentMethods = []struct {
	key    string
	method string
}{
	{"bkash", "bkash"},
	{"nagad", "nagad"},
	{"rocket", "rocket"},
	{"upay", "upay"},
	{"visa", "visa"},
	{"master", "master"},
	{"amex", "amex"},
	{"bank", "bank"},
}

// PaymentMethod normalises the gateway's card_type into a wallet or card label.
func PaymentMethod(cardType string) string {
	lower := strings.ToLower(cardType)
	for _, m := range paymentMethods {
		if strings.Contains(lower, m.key) {
			return m.method
		}
	}
	return "sslcommerz"
}
