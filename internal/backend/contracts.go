package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/moneycircle/circle/internal/types"
	"github.com/moneycircle/circle/internal/utils"
)

const SignedContractFilename = "signed_contract.pdf"

var ErrEmptyDocument = errors.New("signed document is empty")

// contractDTO is the JSON carried by the "dto" field of a contract submission.
type contractDTO struct {
	ContractDate time.Time    `json:"contractDate"`
	Amount       json.Number  `json:"amount"`
	CreditPoolID types.PoolID `json:"creditPoolId"`
	Period       int64        `json:"period"`
	Frequency    int64        `json:"frequency"`
	Rank         types.Rank   `json:"rank"`
}

// creditPoolDTO is the JSON body of a credit pool creation.
type creditPoolDTO struct {
	Frequency  int64       `json:"Frequency"`
	Period     int64       `json:"Period"`
	FinalValue json.Number `json:"FinalValue"`
}

// TakenRanks returns the ranks already claimed by signed contracts of pool.
func (c *Client) TakenRanks(ctx context.Context, pool types.PoolID) ([]types.Rank, error) {
	body, err := c.do(ctx, request{
		operation: "taken_ranks",
		method:    http.MethodGet,
		path:      fmt.Sprintf("/contract/ranks/%d", pool),
		retry:     true,
	})
	if err != nil {
		return nil, err
	}

	var taken []types.Rank
	if err := decodeJSON("taken_ranks", body, &taken); err != nil {
		return nil, err
	}
	return taken, nil
}

// CreateContract submits a signed contract as a multipart form with the JSON fields in
// "dto" and the signed document in "file". It is never retried.
func (c *Client) CreateContract(ctx context.Context, sub types.ContractSubmission, document []byte) (json.RawMessage, error) {
	if len(document) == 0 {
		return nil, ErrEmptyDocument
	}

	payload, contentType, err := encodeContract(sub, document)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, request{
		operation:   "create_contract",
		method:      http.MethodPost,
		path:        "/contract/add",
		contentType: contentType,
		body:        payload,
	})
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Uint64("creditPoolId", uint64(sub.CreditPoolID)).
		Int64("rank", int64(sub.Rank)).
		Str("amount", utils.FormatAmount(sub.Amount)).
		Msg("Contract submitted")
	return rawJSON(body), nil
}

// CreateCreditPool creates a pool with terms.
func (c *Client) CreateCreditPool(ctx context.Context, terms types.PoolTerms) (json.RawMessage, error) {
	payload, err := json.Marshal(creditPoolDTO{
		Frequency:  terms.Frequency,
		Period:     terms.Period,
		FinalValue: utils.JSONNumber(terms.FinalValue),
	})
	if err != nil {
		return nil, fmt.Errorf("create_credit_pool: failed to encode body: %w", err)
	}

	body, err := c.do(ctx, request{
		operation:   "create_credit_pool",
		method:      http.MethodPost,
		path:        "/creditpool/add",
		contentType: "application/json",
		body:        payload,
	})
	if err != nil {
		return nil, err
	}
	return rawJSON(body), nil
}

func encodeContract(sub types.ContractSubmission, document []byte) ([]byte, string, error) {
	dto, err := json.Marshal(contractDTO{
		ContractDate: sub.ContractDate.UTC(),
		Amount:       utils.JSONNumber(sub.Amount),
		CreditPoolID: sub.CreditPoolID,
		Period:       sub.Period,
		Frequency:    sub.Frequency,
		Rank:         sub.Rank,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create_contract: failed to encode dto: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("dto", string(dto)); err != nil {
		return nil, "", fmt.Errorf("create_contract: failed to write dto: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, SignedContractFilename))
	header.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create_contract: failed to create file part: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, "", fmt.Errorf("create_contract: failed to write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("create_contract: failed to close form: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// rawJSON returns body as a raw message. An empty body becomes null and a non-JSON body a string.
func rawJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if !json.Valid(trimmed) {
		quoted, _ := json.Marshal(string(trimmed))
		return json.RawMessage(quoted)
	}
	return json.RawMessage(trimmed)
}
