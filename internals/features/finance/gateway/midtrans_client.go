package gateway

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

const ProviderMidtrans = "midtrans"

/* =========================================================
   Midtrans Client
   - Initialize → Snap CreateTransaction (order_id = reference)
   - Verify     → Core API CheckTransaction
========================================================= */

type MidtransClient struct {
	ServerKey string
	Timeout   time.Duration
	snap      snap.Client
	core      coreapi.Client
}

const defaultMidtransTimeout = 15 * time.Second

// NewMidtransClient: useProduction=true untuk Production, false untuk Sandbox.
// timeout membatasi tiap request HTTP (default client midtrans-go 80 detik).
func NewMidtransClient(serverKey string, useProduction bool, timeout time.Duration) *MidtransClient {
	env := midtrans.Sandbox
	if useProduction {
		env = midtrans.Production
	}
	if timeout <= 0 {
		timeout = defaultMidtransTimeout
	}
	c := &MidtransClient{ServerKey: serverKey, Timeout: timeout}
	c.snap.New(serverKey, env)
	c.core.New(serverKey, env)
	c.useHTTPClient(&http.Client{Timeout: timeout})
	return c
}

// useHTTPClient mengganti http.Client yang dipakai Snap & Core API.
func (c *MidtransClient) useHTTPClient(hc *http.Client) {
	impl := &midtrans.HttpClientImplementation{
		HttpClient: hc,
		Logger:     &midtrans.LoggerImplementation{LogLevel: midtrans.LogError},
	}
	c.snap.HttpClient = impl
	c.core.HttpClient = impl
}

func (c *MidtransClient) Name() string { return ProviderMidtrans }

func (c *MidtransClient) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	if err := ctx.Err(); err != nil {
		return InitializeResult{}, unavailable(ProviderMidtrans, "initialize", 0, "", err)
	}
	// Midtrans hanya menerima gross amount bulat (IDR)
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Truncate(0)) {
		return InitializeResult{}, rejected(ProviderMidtrans, "initialize", 0, "gross amount harus bilangan bulat > 0")
	}
	if strings.TrimSpace(req.Reference) == "" {
		return InitializeResult{}, rejected(ProviderMidtrans, "initialize", 0, "reference wajib (dipakai sebagai order_id)")
	}

	gross := req.Amount.IntPart()
	itemName := defaultString(req.ItemName, "Course")

	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.PayerName,
			Email: req.PayerEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       req.CourseID.String(),
				Price:    gross,
				Qty:      1,
				Name:     truncate(itemName, 50),
				Category: "COURSE",
			},
		},
		CustomField1: req.CourseID.String(),
		CustomField2: req.UserID.String(),
	}

	resp, merr, cerr := callWithContext(ctx, func() (*snap.Response, *midtrans.Error) {
		return c.snap.CreateTransaction(sreq)
	})
	if cerr != nil {
		return InitializeResult{}, unavailable(ProviderMidtrans, "initialize", 0, "", cerr)
	}
	if merr != nil {
		return InitializeResult{}, classifyMidtransError("initialize", merr, true)
	}
	if resp == nil || resp.RedirectURL == "" {
		return InitializeResult{}, rejected(ProviderMidtrans, "initialize", 0, "redirect_url kosong")
	}

	raw, _ := sonic.Marshal(resp)
	return InitializeResult{
		RedirectURL: resp.RedirectURL,
		Reference:   req.Reference,
		AccessCode:  resp.Token,
		RawPayload:  raw,
	}, nil
}

func (c *MidtransClient) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return VerifyResult{}, unavailable(ProviderMidtrans, "verify", 0, "", err)
	}

	resp, merr, cerr := callWithContext(ctx, func() (*coreapi.TransactionStatusResponse, *midtrans.Error) {
		return c.core.CheckTransaction(reference)
	})
	if cerr != nil {
		return VerifyResult{}, unavailable(ProviderMidtrans, "verify", 0, "", cerr)
	}
	if merr != nil {
		// 404: order_id belum pernah dibayar/dipilih metode bayarnya
		if merr.StatusCode == 404 {
			return VerifyResult{Outcome: OutcomeStillPending, ProviderStatus: "not_found"}, nil
		}
		return VerifyResult{}, classifyMidtransError("verify", merr, false)
	}
	if resp == nil {
		return VerifyResult{}, unavailable(ProviderMidtrans, "verify", 0, "respons kosong", nil)
	}
	if resp.StatusCode == "404" {
		return VerifyResult{Outcome: OutcomeStillPending, ProviderStatus: "not_found"}, nil
	}

	raw, _ := sonic.Marshal(resp)
	amount, err := decimal.NewFromString(strings.TrimSpace(resp.GrossAmount))
	if err != nil {
		amount = decimal.Zero
	}
	return VerifyResult{
		Outcome:        MapMidtransStatus(resp.TransactionStatus, resp.FraudStatus),
		Amount:         amount,
		RawPayload:     raw,
		ProviderStatus: strings.ToLower(resp.TransactionStatus),
	}, nil
}

// MapMidtransStatus mengonversi transaction_status + fraud_status Midtrans.
func MapMidtransStatus(transactionStatus, fraudStatus string) Outcome {
	ts := strings.ToLower(strings.TrimSpace(transactionStatus))
	fraud := strings.ToLower(strings.TrimSpace(fraudStatus))

	switch ts {
	case "capture":
		// kartu kredit: accept → paid, challenge → tunggu review Midtrans
		if fraud == "challenge" {
			return OutcomeStillPending
		}
		if fraud == "deny" {
			return OutcomeFailed
		}
		return OutcomeSuccess
	case "settlement":
		return OutcomeSuccess
	case "pending", "authorize":
		return OutcomeStillPending
	case "deny", "cancel", "expire", "failure":
		return OutcomeFailed
	}
	log.Printf("[WARN] transaction_status Midtrans tidak dikenal: %q (dianggap pending)", transactionStatus)
	return OutcomeStillPending
}

func classifyMidtransError(op string, merr *midtrans.Error, rejectable bool) error {
	status := merr.StatusCode
	msg := merr.Message
	if status == 0 || status >= 500 || status == 408 || status == 429 {
		return unavailable(ProviderMidtrans, op, status, msg, merr.RawError)
	}
	if rejectable {
		return rejected(ProviderMidtrans, op, status, msg)
	}
	return unavailable(ProviderMidtrans, op, status, msg, merr.RawError)
}

/* =========================================================
   Utils
========================================================= */

// callWithContext: midtrans-go mengabaikan context request, jadi panggilan
// ditunggu di goroutine dan dilepas begitu ctx selesai. Goroutine tetap
// dibatasi timeout http.Client.
func callWithContext[T any](ctx context.Context, call func() (T, *midtrans.Error)) (T, *midtrans.Error, error) {
	type result struct {
		v   T
		err *midtrans.Error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := call()
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err, nil
	case <-ctx.Done():
		var zero T
		return zero, nil, ctx.Err()
	}
}

// truncate memotong s menjadi maksimal n rune (bukan byte).
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func defaultString(s string, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var _ Client = (*MidtransClient)(nil)
