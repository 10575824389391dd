package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/moneycircle/circle/internal/backend"
	"github.com/moneycircle/circle/internal/contract"
	"github.com/moneycircle/circle/internal/metrics"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/ranks"
	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

var errBadRequest = errors.New("bad request")

// quoteView is the display form of a quote: amounts are rounded to two decimals.
type quoteView struct {
	Priceable    bool       `json:"priceable"`
	FinalValue   string     `json:"final_value"`
	Period       int64      `json:"period"`
	Frequency    int64      `json:"frequency"`
	Rank         types.Rank `json:"rank"`
	Steps        int64      `json:"steps"`
	BasePayment  string     `json:"base_payment"`
	TotalProfit  string     `json:"total_profit"`
	Adjustment   string     `json:"adjustment"`
	FinalPayment string     `json:"final_payment"`
	TotalAmount  string     `json:"total_amount"`
	Currency     string     `json:"currency"`
	Disclosure   string     `json:"disclosure,omitempty"`
}

func (ws *WebServer) newQuoteView(q types.Quote) quoteView {
	return quoteView{
		Priceable:    q.Priceable,
		FinalValue:   utils.FormatPlain(q.Terms.FinalValue),
		Period:       q.Terms.Period,
		Frequency:    q.Terms.Frequency,
		Rank:         q.Rank,
		Steps:        q.Result.Steps,
		BasePayment:  utils.FormatAmount(q.Result.BasePayment),
		TotalProfit:  utils.FormatAmount(q.Result.TotalProfit),
		Adjustment:   utils.FormatAmount(q.Result.Adjustment),
		FinalPayment: utils.FormatAmount(q.Result.FinalPayment),
		TotalAmount:  utils.FormatAmount(q.TotalAmount),
		Currency:     ws.deps.Calculator.Parameters().Currency,
		Disclosure:   q.Disclosure,
	}
}

// handlePreview prices pool terms without a rank, as shown while a pool is being created
func (ws *WebServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	terms, err := parseTerms(r.URL.Query())
	if err != nil {
		ws.deps.Metrics.RecordQuote("preview", metrics.OutcomeInvalid)
		ws.writeError(w, r, err)
		return
	}

	quote, err := ws.deps.Calculator.Preview(terms)
	if err != nil {
		ws.deps.Metrics.RecordQuote("preview", metrics.OutcomeInvalid)
		ws.writeError(w, r, err)
		return
	}

	ws.deps.Metrics.RecordQuote("preview", quoteOutcome(quote))
	ws.writeJSONResponse(w, http.StatusOK, ws.newQuoteView(quote))
}

// handleQuote prices pool terms for the rank query parameter (Random when absent)
func (ws *WebServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	terms, err := parseTerms(query)
	if err != nil {
		ws.deps.Metrics.RecordQuote("quote", metrics.OutcomeInvalid)
		ws.writeError(w, r, err)
		return
	}
	rank, err := parseRank(query.Get("rank"))
	if err != nil {
		ws.deps.Metrics.RecordQuote("quote", metrics.OutcomeInvalid)
		ws.writeError(w, r, err)
		return
	}

	quote, err := ws.deps.Calculator.Quote(terms, rank)
	if err != nil {
		ws.deps.Metrics.RecordQuote("quote", metrics.OutcomeInvalid)
		ws.writeError(w, r, err)
		return
	}

	ws.deps.Metrics.RecordQuote("quote", quoteOutcome(quote))
	ws.writeJSONResponse(w, http.StatusOK, ws.newQuoteView(quote))
}

// handleGetRanks lists the positions of a pool that are still free
func (ws *WebServer) handleGetRanks(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ws.writeError(w, r, fmt.Errorf("%w: invalid credit pool id", errBadRequest))
		return
	}

	query := r.URL.Query()
	period, err := parseInt(query, "period")
	if err != nil {
		ws.writeError(w, r, err)
		return
	}
	frequency, err := parseInt(query, "frequency")
	if err != nil {
		ws.writeError(w, r, err)
		return
	}
	if err := pricing.ValidateSchedule(period, frequency); err != nil {
		ws.writeError(w, r, err)
		return
	}

	steps := pricing.ComputeSteps(period, frequency)
	var taken []types.Rank
	if steps > 0 {
		ctx := backend.WithSessionCookies(r.Context(), r.Cookies())
		taken, err = ws.deps.Pools.TakenRanks(ctx, types.PoolID(id))
		if err != nil {
			ws.writeError(w, r, err)
			return
		}
	}

	response := map[string]interface{}{
		"credit_pool_id": id,
		"steps":          steps,
		"taken":          taken,
		"options":        ranks.Available(steps, taken),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

type createPoolRequest struct {
	FinalValue json.Number `json:"final_value"`
	Period     int64       `json:"period"`
	Frequency  int64       `json:"frequency"`
}

// handleCreatePool creates a credit pool once its terms price to at least one step
func (ws *WebServer) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := decodeBody(r.Body, &req); err != nil {
		ws.writeError(w, r, err)
		return
	}

	finalValue, err := parseFinalValue(string(req.FinalValue))
	if err != nil {
		ws.writeError(w, r, err)
		return
	}
	terms := types.PoolTerms{FinalValue: finalValue, Period: req.Period, Frequency: req.Frequency}

	preview, err := ws.deps.Calculator.Preview(terms)
	if err == nil {
		err = pricing.RequirePriceable(preview)
	}
	if err != nil {
		ws.writeError(w, r, err)
		return
	}

	ctx := backend.WithSessionCookies(r.Context(), r.Cookies())
	resp, err := ws.deps.Pools.CreateCreditPool(ctx, terms)
	if err != nil {
		ws.writeError(w, r, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"preview":  ws.newQuoteView(preview),
		"response": resp,
	})
}

// contractRequest is the "dto" field of a contract signing form.
type contractRequest struct {
	CreditPoolID types.PoolID `json:"creditPoolId"`
	FinalValue   json.Number  `json:"finalValue"`
	Period       int64        `json:"period"`
	Frequency    int64        `json:"frequency"`
	Rank         types.Rank   `json:"rank"`
	IsFull       bool         `json:"isFull"`
	MaxPeople    int          `json:"maxPeople"`
}

// handleSubmitContract accepts a signed contract as a multipart form with a "dto" JSON
// field and the signed document in "file"
func (ws *WebServer) handleSubmitContract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		ws.writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err))
		return
	}

	var req contractRequest
	if err := decodeBody(strings.NewReader(r.FormValue("dto")), &req); err != nil {
		ws.writeError(w, r, err)
		return
	}
	finalValue, err := parseFinalValue(string(req.FinalValue))
	if err != nil {
		ws.writeError(w, r, err)
		return
	}

	document, err := readFormFile(r, "file")
	if err != nil {
		ws.writeError(w, r, err)
		return
	}

	pool := types.CreditPool{
		ID:        req.CreditPoolID,
		Terms:     types.PoolTerms{FinalValue: finalValue, Period: req.Period, Frequency: req.Frequency},
		IsFull:    req.IsFull,
		MaxPeople: req.MaxPeople,
	}

	ctx := backend.WithSessionCookies(r.Context(), r.Cookies())
	receipt, err := ws.deps.Signer.Submit(ctx, contract.SubmitRequest{Pool: pool, Rank: req.Rank, Document: document})
	if err != nil {
		ws.writeError(w, r, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"amount":        utils.FormatAmount(receipt.Submission.Amount),
		"contract_date": receipt.Submission.ContractDate,
		"quote":         ws.newQuoteView(receipt.Quote),
		"response":      receipt.Response,
	})
}

func quoteOutcome(q types.Quote) string {
	if q.Priceable {
		return metrics.OutcomeOK
	}
	return metrics.OutcomeNotPriceable
}

func parseTerms(query url.Values) (types.PoolTerms, error) {
	finalValue, err := parseFinalValue(query.Get("final_value"))
	if err != nil {
		return types.PoolTerms{}, err
	}
	period, err := parseInt(query, "period")
	if err != nil {
		return types.PoolTerms{}, err
	}
	frequency, err := parseInt(query, "frequency")
	if err != nil {
		return types.PoolTerms{}, err
	}
	return types.PoolTerms{FinalValue: finalValue, Period: period, Frequency: frequency}, nil
}

func parseFinalValue(s string) (sdkmath.LegacyDec, error) {
	v, err := utils.ParseAmount(s)
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: final value: %v", pricing.ErrInvalidTerms, err)
	}
	return v, nil
}

func parseInt(query url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", pricing.ErrInvalidTerms, name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", pricing.ErrInvalidTerms, name, raw)
	}
	return v, nil
}

func parseRank(raw string) (types.Rank, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, ranks.RandomLabel) {
		return types.RankRandom, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: rank must be an integer, got %q", errBadRequest, raw)
	}
	return types.Rank(v), nil
}

func decodeBody(body io.Reader, out interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// readFormFile returns a nil document when field is absent; the signer rejects it as unsigned.
func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", errBadRequest, field, err)
	}
	return data, nil
}
