package gateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Service talks to the hosted-checkout payment processor that mints coins.
// The processor reports results back through the signed webhook handled in
// internal/handlers.
type Service struct {
	Client       *http.Client
	APIKey       string
	PrivateKey   string
	MerchantCode string
	BaseURL      string
}

func NewService() *Service {
	baseURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "https://gateway.sandbox.example.com/api"
	}

	return &Service{
		Client:       &http.Client{Timeout: 15 * time.Second},
		APIKey:       os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		PrivateKey:   os.Getenv("PAYMENT_GATEWAY_PRIVATE_KEY"),
		MerchantCode: os.Getenv("PAYMENT_GATEWAY_MERCHANT_CODE"),
		BaseURL:      baseURL,
	}
}

type CheckoutRequest struct {
	MerchantRef   string `json:"merchant_ref"`
	Amount        int64  `json:"amount"`
	ItemName      string `json:"item_name"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CallbackURL   string `json:"callback_url"`
	ReturnURL     string `json:"return_url"`
	ExpiredTime   int64  `json:"expired_time"`
	Signature     string `json:"signature"`
}

type CheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Reference   string `json:"reference"`
		MerchantRef string `json:"merchant_ref"`
		CheckoutURL string `json:"checkout_url"`
		Amount      int64  `json:"amount"`
	} `json:"data"`
}

// CreateCheckout opens a hosted checkout for a coin pack purchase. The
// request is signed with HMAC-SHA256(merchant_code + merchant_ref + amount).
func (s *Service) CreateCheckout(merchantRef string, amount int64, itemName, customerName, customerEmail string) (*CheckoutResponse, error) {
	sigData := fmt.Sprintf("%s%s%d", s.MerchantCode, merchantRef, amount)
	signature := s.Sign(sigData)

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	frontendURL := os.Getenv("FRONTEND_BASE_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	reqBody := CheckoutRequest{
		MerchantRef:   merchantRef,
		Amount:        amount,
		ItemName:      itemName,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		CallbackURL:   baseURL + "/api/payments/webhook",
		ReturnURL:     frontendURL + "/buyer/payments",
		ExpiredTime:   time.Now().Add(24 * time.Hour).Unix(),
		Signature:     signature,
	}

	jsonBody, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", s.BaseURL+"/transaction/create", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	var apiResp CheckoutResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %v", err)
	}
	if !apiResp.Success {
		return nil, fmt.Errorf("gateway error: %s", apiResp.Message)
	}

	return &apiResp, nil
}

func (s *Service) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(s.PrivateKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateSignature checks a webhook body against its header signature:
// HMAC-SHA256(raw_json_body, private_key).
func (s *Service) ValidateSignature(incomingSig, jsonBody string) bool {
	h := hmac.New(sha256.New, []byte(s.PrivateKey))
	h.Write([]byte(jsonBody))
	calculated := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(calculated), []byte(incomingSig))
}
