package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Paystack is the REST client for api.paystack.co. Amounts go over the wire
// in kobo, which is exactly the engine's internal minor unit, so no
// conversion happens here.
type Paystack struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystack(secretKey, baseURL string, timeout time.Duration) *Paystack {
	return &Paystack{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: bad response body", ErrGateway)
	}
	if !envelope.Status {
		return fmt.Errorf("%w: %s", ErrGateway, envelope.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: bad response data", ErrGateway)
		}
	}
	return nil
}

func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
		"metadata":  req.Metadata,
	}
	if req.SubaccountCode != "" {
		payload["subaccount"] = req.SubaccountCode
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := p.do(ctx, http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return nil, err
	}
	return &InitializeResult{
		OK:               true,
		AuthorizationURL: data.AuthorizationURL,
		Reference:        data.Reference,
		AccessCode:       data.AccessCode,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var data struct {
		ID      int64  `json:"id"`
		Status  string `json:"status"`
		Amount  int64  `json:"amount"`
		Fees    int64  `json:"fees"`
		Channel string `json:"channel"`
		PaidAt  string `json:"paid_at"`
		Authztn *struct {
			CardType string `json:"card_type"`
			Last4    string `json:"last4"`
			Bank     string `json:"bank"`
		} `json:"authorization"`
		Subaccount *struct {
			SubaccountCode string `json:"subaccount_code"`
		} `json:"subaccount"`
		Split *struct {
			ShareAmount int64 `json:"share_amount"`
		} `json:"split"`
	}
	if err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}

	result := &VerifyResult{
		OK:            data.Status == "success",
		Status:        data.Status,
		AmountMinor:   data.Amount,
		Fees:          data.Fees,
		Channel:       data.Channel,
		TransactionID: fmt.Sprintf("%d", data.ID),
	}
	if data.PaidAt != "" {
		if ts, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			result.PaidAt = &ts
		}
	}
	if data.Authztn != nil {
		result.Authorization = &CardAuthorization{
			CardType: data.Authztn.CardType,
			Last4:    data.Authztn.Last4,
			Bank:     data.Authztn.Bank,
		}
	}
	if data.Subaccount != nil {
		share := &SubaccountShare{Code: data.Subaccount.SubaccountCode}
		if data.Split != nil {
			share.SharedAmount = data.Split.ShareAmount
		}
		result.Subaccount = share
	}
	return result, nil
}

func (p *Paystack) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	payload := map[string]any{
		"transaction": req.TransactionReference,
		"amount":      req.AmountMinor,
	}
	var data struct {
		ID int64 `json:"id"`
	}
	if err := p.do(ctx, http.MethodPost, "/refund", payload, &data); err != nil {
		return nil, err
	}
	return &RefundResult{OK: true, GatewayRefundID: fmt.Sprintf("%d", data.ID)}, nil
}

func (p *Paystack) CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*CreateSubaccountResult, error) {
	payload := map[string]any{
		"business_name":     req.BusinessName,
		"settlement_bank":   req.BankCode,
		"account_number":    req.AccountNumber,
		"percentage_charge": req.PercentageCharge,
	}
	var data struct {
		SubaccountCode string `json:"subaccount_code"`
	}
	if err := p.do(ctx, http.MethodPost, "/subaccount", payload, &data); err != nil {
		return nil, err
	}
	return &CreateSubaccountResult{OK: true, SubaccountCode: data.SubaccountCode}, nil
}

// VerifySignature checks the x-paystack-signature header: hex HMAC-SHA512
// of the raw body, compared in constant time. An empty secret disables
// webhooks entirely.
func (p *Paystack) VerifySignature(rawBody []byte, signature string) bool {
	if p.secretKey == "" {
		log.Warn("webhook signature check with empty secret key, rejecting")
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
