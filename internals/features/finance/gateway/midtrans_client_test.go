package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResp(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// midtransWith: client Midtrans dengan transport palsu.
func midtransWith(timeout time.Duration, rt roundTripFunc) *MidtransClient {
	c := NewMidtransClient("SB-Mid-server-test", false, timeout)
	c.useHTTPClient(&http.Client{Transport: rt, Timeout: timeout})
	return c
}

// slowTransport menahan request selama d atau sampai request dibatalkan.
func slowTransport(d time.Duration) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		select {
		case <-time.After(d):
			return jsonResp(200, `{"status_code":"200","transaction_status":"settlement","gross_amount":"3000.00"}`), nil
		case <-r.Context().Done():
			return nil, r.Context().Err()
		}
	}
}

func TestMapMidtransStatus(t *testing.T) {
	cases := []struct {
		status, fraud string
		want          Outcome
	}{
		{"capture", "accept", OutcomeSuccess},
		{"capture", "", OutcomeSuccess},
		{"capture", "challenge", OutcomeStillPending},
		{"capture", "deny", OutcomeFailed},
		{"settlement", "", OutcomeSuccess},
		{"SETTLEMENT", "", OutcomeSuccess},
		{"pending", "", OutcomeStillPending},
		{"deny", "", OutcomeFailed},
		{"cancel", "", OutcomeFailed},
		{"expire", "", OutcomeFailed},
		{"failure", "", OutcomeFailed},
		{"something_new", "", OutcomeStillPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapMidtransStatus(tc.status, tc.fraud), "%s/%s", tc.status, tc.fraud)
	}
}

func TestMidtransInitializeValidatesBeforeNetwork(t *testing.T) {
	c := NewMidtransClient("SB-Mid-server-test", false, time.Second)

	req := initReq()
	req.Amount = decimal.RequireFromString("3000.50")
	_, err := c.Initialize(context.Background(), req)
	assert.ErrorIs(t, err, ErrGatewayRejected)

	req = initReq()
	req.Reference = ""
	_, err = c.Initialize(context.Background(), req)
	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestMidtransHonoursCancelledContext(t *testing.T) {
	c := NewMidtransClient("SB-Mid-server-test", false, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Initialize(ctx, initReq())
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	_, err = c.Verify(ctx, "CRS-REF-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestMidtransRespectsContextDeadline(t *testing.T) {
	c := midtransWith(5*time.Second, slowTransport(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err := c.Initialize(ctx, initReq())
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Less(t, time.Since(started), time.Second)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()
	started = time.Now()
	_, err = c.Verify(ctx2, "CRS-REF-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Less(t, time.Since(started), time.Second)
}

func TestMidtransHTTPClientTimeout(t *testing.T) {
	c := midtransWith(100*time.Millisecond, slowTransport(2*time.Second))

	started := time.Now()
	_, err := c.Verify(context.Background(), "CRS-REF-1")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Less(t, time.Since(started), time.Second)
}

func TestMidtransInitializeSuccess(t *testing.T) {
	var gotPath string
	c := midtransWith(time.Second, func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		return jsonResp(201, `{"token":"tok-1","redirect_url":"https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-1"}`), nil
	})

	res, err := c.Initialize(context.Background(), initReq())
	require.NoError(t, err)
	assert.Equal(t, "/snap/v1/transactions", gotPath)
	assert.Equal(t, "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-1", res.RedirectURL)
	assert.Equal(t, "tok-1", res.AccessCode)
	assert.Equal(t, "CRS-REF-1", res.Reference)
}

func TestMidtransInitializeRejectedAndUnavailable(t *testing.T) {
	c := midtransWith(time.Second, func(*http.Request) (*http.Response, error) {
		return jsonResp(400, `{"error_messages":["transaction_details.order_id sudah dipakai"]}`), nil
	})
	_, err := c.Initialize(context.Background(), initReq())
	assert.ErrorIs(t, err, ErrGatewayRejected)

	c = midtransWith(time.Second, func(*http.Request) (*http.Response, error) {
		return jsonResp(503, `{"error_messages":["maintenance"]}`), nil
	})
	_, err = c.Initialize(context.Background(), initReq())
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestMidtransVerifyClassification(t *testing.T) {
	cases := []struct {
		name        string
		rt          roundTripFunc
		outcome     Outcome
		amount      string
		unavailable bool
	}{
		{
			name: "settlement",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResp(200, `{"status_code":"200","transaction_status":"settlement","gross_amount":"3000.00"}`), nil
			},
			outcome: OutcomeSuccess, amount: "3000",
		},
		{
			name: "belum ada transaksi",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResp(200, `{"status_code":"404","status_message":"Transaction doesn't exist."}`), nil
			},
			outcome: OutcomeStillPending, amount: "0",
		},
		{
			name: "gross amount rusak",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResp(200, `{"status_code":"200","transaction_status":"settlement","gross_amount":"abc"}`), nil
			},
			outcome: OutcomeSuccess, amount: "0",
		},
		{
			name: "server error",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResp(500, `{"status_message":"internal"}`), nil
			},
			unavailable: true,
		},
		{
			name: "network error",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			unavailable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := midtransWith(time.Second, tc.rt)
			vr, err := c.Verify(context.Background(), "CRS-REF-1")
			if tc.unavailable {
				assert.ErrorIs(t, err, ErrGatewayUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, vr.Outcome)
			assert.True(t, vr.Amount.Equal(decimal.RequireFromString(tc.amount)), "amount %s", vr.Amount)
		})
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := strings.Repeat("é", 30)
	got := truncate(s, 25)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 25, utf8.RuneCountInString(got))
	assert.Equal(t, "abc", truncate("abc", 5))
}
