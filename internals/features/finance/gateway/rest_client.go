package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const ProviderRest = "rest"

/*
RestClient bicara dengan gateway JSON generik:

	POST {base}/initialize      {email, amount, currency, reference, callback_url, metadata}
	                            → {authorization_url, reference, access_code}
	GET  {base}/verify/{ref}    → {status, amount, currency, ...}

Respons boleh flat atau dibungkus {"status": true, "data": {...}}.
Transport memakai client fasthttp bawaan Fiber dengan timeout terbatas.
*/
type RestClient struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

func NewRestClient(baseURL, secretKey, callbackURL string, timeout time.Duration) *RestClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RestClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		SecretKey:   secretKey,
		CallbackURL: callbackURL,
		Timeout:     timeout,
	}
}

func (c *RestClient) Name() string { return ProviderRest }

type restInitRequest struct {
	Email       string            `json:"email"`
	Amount      json.Number       `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type restInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type restInitResponse struct {
	restInitData
	Message string        `json:"message"`
	Data    *restInitData `json:"data"`
}

type restVerifyData struct {
	Status          json.RawMessage `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reference       string          `json:"reference"`
	GatewayResponse string          `json:"gateway_response"`
}

type restVerifyResponse struct {
	restVerifyData
	Message string          `json:"message"`
	Data    *restVerifyData `json:"data"`
}

func (c *RestClient) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	if err := ctx.Err(); err != nil {
		return InitializeResult{}, unavailable(ProviderRest, "initialize", 0, "", err)
	}
	if !req.Amount.IsPositive() {
		return InitializeResult{}, rejected(ProviderRest, "initialize", 0, "amount harus > 0")
	}

	meta := map[string]string{
		"course_id": req.CourseID.String(),
		"user_id":   req.UserID.String(),
	}
	for k, v := range req.Metadata {
		meta[k] = v
	}

	body := restInitRequest{
		Email:       req.PayerEmail,
		Amount:      json.Number(req.Amount.String()),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: c.CallbackURL,
		Metadata:    meta,
	}

	a := fiber.Post(c.BaseURL + "/initialize")
	a.Set(fiber.HeaderAuthorization, "Bearer "+c.SecretKey)
	a.JSON(body)
	a.Timeout(c.timeoutFor(ctx))

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return InitializeResult{}, unavailable(ProviderRest, "initialize", 0, "", errors.Join(errs...))
	}
	if code >= 500 {
		return InitializeResult{}, unavailable(ProviderRest, "initialize", code, messageOf(raw), nil)
	}
	if code >= 400 {
		return InitializeResult{}, rejected(ProviderRest, "initialize", code, messageOf(raw))
	}

	var resp restInitResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return InitializeResult{}, unavailable(ProviderRest, "initialize", code, "respons tidak valid", err)
	}
	data := resp.restInitData
	if resp.Data != nil {
		data = *resp.Data
	}
	if strings.TrimSpace(data.AuthorizationURL) == "" {
		return InitializeResult{}, rejected(ProviderRest, "initialize", code, "authorization_url kosong")
	}
	if data.Reference != "" && data.Reference != req.Reference {
		log.Printf("[WARN] gateway rest mengembalikan reference %q untuk %q, tetap pakai reference lokal", data.Reference, req.Reference)
	}

	return InitializeResult{
		RedirectURL: data.AuthorizationURL,
		Reference:   req.Reference,
		AccessCode:  data.AccessCode,
		RawPayload:  raw,
	}, nil
}

func (c *RestClient) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return VerifyResult{}, unavailable(ProviderRest, "verify", 0, "", err)
	}

	a := fiber.Get(c.BaseURL + "/verify/" + url.PathEscape(reference))
	a.Set(fiber.HeaderAuthorization, "Bearer "+c.SecretKey)
	a.Timeout(c.timeoutFor(ctx))

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return VerifyResult{}, unavailable(ProviderRest, "verify", 0, "", errors.Join(errs...))
	}
	// reference belum dikenal gateway: payer belum sampai ke halaman bayar
	if code == fiber.StatusNotFound {
		return VerifyResult{Outcome: OutcomeStillPending, RawPayload: raw, ProviderStatus: "not_found"}, nil
	}
	if code >= 400 {
		return VerifyResult{}, unavailable(ProviderRest, "verify", code, messageOf(raw), nil)
	}

	var resp restVerifyResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return VerifyResult{}, unavailable(ProviderRest, "verify", code, "respons tidak valid", err)
	}
	data := resp.restVerifyData
	if resp.Data != nil {
		data = *resp.Data
	}

	status := statusString(data.Status)
	return VerifyResult{
		Outcome:        mapRestStatus(status),
		Amount:         data.Amount,
		Currency:       strings.ToUpper(data.Currency),
		RawPayload:     raw,
		ProviderStatus: status,
	}, nil
}

// timeoutFor: pakai deadline context kalau lebih pendek dari timeout client.
func (c *RestClient) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func mapRestStatus(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "successful", "paid", "completed", "settlement":
		return OutcomeSuccess
	case "failed", "failure", "declined", "reversed", "cancelled", "canceled", "expired":
		return OutcomeFailed
	case "pending", "ongoing", "processing", "queued", "abandoned", "":
		return OutcomeStillPending
	}
	log.Printf("[WARN] status gateway rest tidak dikenal: %q (dianggap pending)", s)
	return OutcomeStillPending
}

// statusString: "status" bisa string (status charge) atau bool (envelope).
func statusString(raw json.RawMessage) string {
	var s string
	if err := sonic.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func messageOf(raw []byte) string {
	var m struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(raw, &m); err == nil && m.Message != "" {
		return m.Message
	}
	s := strings.TrimSpace(string(raw))
	return truncate(s, 200)
}

var _ Client = (*RestClient)(nil)
