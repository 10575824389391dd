package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/moneycircle/circle/internal/backend"
	"github.com/moneycircle/circle/internal/contract"
	"github.com/moneycircle/circle/internal/metrics"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/types"
)

type fakeRemote struct {
	taken     []types.Rank
	createErr error

	takenCalls int

	pools     []types.PoolTerms
	contracts []types.ContractSubmission
}

func (f *fakeRemote) TakenRanks(ctx context.Context, pool types.PoolID) ([]types.Rank, error) {
	f.takenCalls++
	return f.taken, nil
}

func (f *fakeRemote) CreateContract(ctx context.Context, sub types.ContractSubmission, document []byte) (json.RawMessage, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.contracts = append(f.contracts, sub)
	return json.RawMessage(`{"id":77}`), nil
}

func (f *fakeRemote) CreateCreditPool(ctx context.Context, terms types.PoolTerms) (json.RawMessage, error) {
	f.pools = append(f.pools, terms)
	return json.RawMessage(`"created"`), nil
}

func newTestServer(t *testing.T, remote *fakeRemote) (http.Handler, *metrics.Collector) {
	t.Helper()
	calc, err := pricing.NewCalculator(types.PricingParameters{
		FairnessRate: pricing.DefaultFairnessRate,
		Currency:     "DT",
		TimeUnit:     "month",
	})
	require.NoError(t, err)

	m := metrics.NewCollector()
	signer := contract.NewSigner(calc, remote, contract.WithMetrics(m))
	ws := NewWebServer("", Dependencies{Calculator: calc, Signer: signer, Pools: remote, Metrics: m})
	return ws.Handler(), m
}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func contractForm(t *testing.T, dto string, document []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("dto", dto))
	if document != nil {
		part, err := mw.CreateFormFile("file", backend.SignedContractFilename)
		require.NoError(t, err)
		_, err = part.Write(document)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", body["status"])
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec, _ := serve(h, req)
	require.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	rec, _ := serve(h, httptest.NewRequest(http.MethodOptions, "/api/quote", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreview(t *testing.T) {
	h, m := newTestServer(t, &fakeRemote{})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/preview?final_value=1000&period=6&frequency=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["priceable"])
	require.Equal(t, "500.00", body["base_payment"])
	require.Equal(t, "You will pay 500.00 DT every 3 month(s), over a period of 6 months, to receive 1000 DT.", body["disclosure"])
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("preview", metrics.OutcomeOK)))
}

func TestPreviewWithoutStepsIsNotAnError(t *testing.T) {
	h, m := newTestServer(t, &fakeRemote{})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/preview?final_value=1000&period=5&frequency=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["priceable"])
	require.NotContains(t, body, "disclosure")
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotesTotal.WithLabelValues("preview", metrics.OutcomeNotPriceable)))
}

func TestPreviewRejectsInvalidTerms(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	for _, query := range []string{
		"final_value=abc&period=6&frequency=3",
		"final_value=-5&period=6&frequency=3",
		"final_value=1000&period=0&frequency=3",
		"final_value=1000&frequency=3",
	} {
		rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/preview?"+query, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
		require.Equal(t, "invalid_terms", body["code"], query)
		require.Equal(t, true, body["error"], query)
	}
}

func TestQuote(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/quote?final_value=1000&period=6&frequency=3&rank=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "-5.00", body["adjustment"])
	require.Equal(t, "495.00", body["final_payment"])
	require.Equal(t, "990.00", body["total_amount"])
	require.Equal(t, "DT", body["currency"])
	require.Contains(t, body["disclosure"], "you contribute an additional 5.00 DT")
}

func TestQuoteRejectsRankOutOfRange(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/quote?final_value=1000&period=6&frequency=3&rank=3", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "rank_out_of_range", body["code"])

	rec, body = serve(h, httptest.NewRequest(http.MethodGet, "/api/quote?final_value=1000&period=6&frequency=3&rank=first", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", body["code"])
}

func TestGetRanks(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{taken: []types.Rank{1}})

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/pools/4/ranks?period=6&frequency=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(2), body["steps"])

	options := body["options"].([]interface{})
	require.Len(t, options, 2)
	require.Equal(t, "Random", options[0].(map[string]interface{})["label"])
	require.Equal(t, "Position 2", options[1].(map[string]interface{})["label"])
}

func TestGetRanksRejectsOversizedSchedule(t *testing.T) {
	remote := &fakeRemote{}
	h, _ := newTestServer(t, remote)

	for _, query := range []string{
		"period=1000000000000&frequency=1",
		"period=1201&frequency=1",
		"period=12&frequency=5000",
		"period=0&frequency=1",
	} {
		rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/pools/1/ranks?"+query, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
		require.Equal(t, "invalid_terms", body["code"], query)
	}
	require.Zero(t, remote.takenCalls)

	rec, body := serve(h, httptest.NewRequest(http.MethodGet, "/api/pools/1/ranks?period=1200&frequency=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["options"], 1201)
}

func TestQuoteRejectsOversizedTerms(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	for _, query := range []string{
		"final_value=1000&period=1000000000000000000&frequency=500000000000000000",
		"final_value=10000000000000000000000000000000000000000000000000000000000000000000000000000&period=12&frequency=6",
	} {
		for _, route := range []string{"/api/quote?", "/api/preview?"} {
			rec, body := serve(h, httptest.NewRequest(http.MethodGet, route+query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code, route+query)
			require.Equal(t, "invalid_terms", body["code"], route+query)
		}
	}
}

func TestGetRanksForwardsSessionCookies(t *testing.T) {
	remoteAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value != "jwt" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[3]`))
	}))
	t.Cleanup(remoteAPI.Close)

	client, err := backend.NewClient(remoteAPI.URL, 5*time.Second)
	require.NoError(t, err)
	calc, err := pricing.NewCalculator(types.PricingParameters{FairnessRate: pricing.DefaultFairnessRate, Currency: "DT", TimeUnit: "month"})
	require.NoError(t, err)
	ws := NewWebServer("", Dependencies{Calculator: calc, Signer: contract.NewSigner(calc, client), Pools: client})

	req := httptest.NewRequest(http.MethodGet, "/api/pools/4/ranks?period=12&frequency=3", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "jwt"})
	rec, body := serve(ws.Handler(), req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["options"], 4) // Random, 1, 2, 4

	rec, body = serve(ws.Handler(), httptest.NewRequest(http.MethodGet, "/api/pools/4/ranks?period=12&frequency=3", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "backend_error", body["code"])
}

func TestCreatePool(t *testing.T) {
	remote := &fakeRemote{}
	h, _ := newTestServer(t, remote)

	req := httptest.NewRequest(http.MethodPost, "/api/pools", strings.NewReader(`{"final_value": 700, "period": 7, "frequency": 2}`))
	rec, body := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "created", body["response"])
	require.Len(t, remote.pools, 1)
	require.True(t, remote.pools[0].FinalValue.Equal(sdkmath.LegacyNewDec(700)))

	preview := body["preview"].(map[string]interface{})
	require.Equal(t, "233.33", preview["base_payment"])
}

func TestCreatePoolRequiresAStep(t *testing.T) {
	remote := &fakeRemote{}
	h, _ := newTestServer(t, remote)

	req := httptest.NewRequest(http.MethodPost, "/api/pools", strings.NewReader(`{"final_value": 700, "period": 2, "frequency": 7}`))
	rec, body := serve(h, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "not_priceable", body["code"])
	require.Empty(t, remote.pools)

	rec, body = serve(h, httptest.NewRequest(http.MethodPost, "/api/pools", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "bad_request", body["code"])
}

func TestSubmitContract(t *testing.T) {
	remote := &fakeRemote{}
	h, m := newTestServer(t, remote)

	form, contentType := contractForm(t, `{"creditPoolId": 9, "finalValue": 1000, "period": 6, "frequency": 3, "rank": 2}`, []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/contracts", form)
	req.Header.Set("Content-Type", contentType)

	rec, body := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "990.00", body["amount"])
	require.Len(t, remote.contracts, 1)
	require.Equal(t, types.PoolID(9), remote.contracts[0].CreditPoolID)
	require.Equal(t, 1.0, testutil.ToFloat64(m.ContractSubmissionsTotal.WithLabelValues(metrics.OutcomeOK)))
}

func TestSubmitContractErrors(t *testing.T) {
	tests := []struct {
		name     string
		remote   *fakeRemote
		dto      string
		document []byte
		status   int
		code     string
	}{
		{
			name:   "unsigned",
			remote: &fakeRemote{},
			dto:    `{"creditPoolId": 9, "finalValue": 1000, "period": 6, "frequency": 3}`,
			status: http.StatusBadRequest,
			code:   "unsigned",
		},
		{
			name:     "rank taken",
			remote:   &fakeRemote{taken: []types.Rank{1}},
			dto:      `{"creditPoolId": 9, "finalValue": 1000, "period": 6, "frequency": 3, "rank": 1}`,
			document: []byte("doc"),
			status:   http.StatusConflict,
			code:     "rank_taken",
		},
		{
			name:     "pool full",
			remote:   &fakeRemote{},
			dto:      `{"creditPoolId": 9, "finalValue": 1000, "period": 6, "frequency": 3, "isFull": true}`,
			document: []byte("doc"),
			status:   http.StatusConflict,
			code:     "pool_full",
		},
		{
			name:     "not priceable",
			remote:   &fakeRemote{},
			dto:      `{"creditPoolId": 9, "finalValue": 1000, "period": 5, "frequency": 10}`,
			document: []byte("doc"),
			status:   http.StatusUnprocessableEntity,
			code:     "not_priceable",
		},
		{
			name:     "remote rejection",
			remote:   &fakeRemote{createErr: &backend.APIError{Operation: "create contract", StatusCode: 500, Body: "boom"}},
			dto:      `{"creditPoolId": 9, "finalValue": 1000, "period": 6, "frequency": 3}`,
			document: []byte("doc"),
			status:   http.StatusBadGateway,
			code:     "backend_error",
		},
		{
			name:     "oversized period",
			remote:   &fakeRemote{},
			dto:      `{"creditPoolId": 9, "finalValue": 1000, "period": 1000000000000, "frequency": 1}`,
			document: []byte("doc"),
			status:   http.StatusBadRequest,
			code:     "invalid_terms",
		},
		{
			name:     "malformed dto",
			remote:   &fakeRemote{},
			dto:      `{"creditPoolId": "nine"}`,
			document: []byte("doc"),
			status:   http.StatusBadRequest,
			code:     "bad_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, tt.remote)

			form, contentType := contractForm(t, tt.dto, tt.document)
			req := httptest.NewRequest(http.MethodPost, "/api/contracts", form)
			req.Header.Set("Content-Type", contentType)

			rec, body := serve(h, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.Equal(t, tt.code, body["code"])
			require.Empty(t, tt.remote.contracts)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &fakeRemote{})

	serve(h, httptest.NewRequest(http.MethodGet, "/api/preview?final_value=1000&period=6&frequency=3", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `circle_pricing_quotes_total{kind="preview",outcome="ok"} 1`)
	require.Contains(t, rec.Body.String(), "circle_http_requests_total")
}
