package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// DecodeResult is the server's verdict on a transaction blob.
// Summary is left as raw JSON; a failed decode carries Kind and Error instead.
type DecodeResult struct {
	OK       bool            `json:"ok"`
	Strategy string          `json:"strategy,omitempty"`
	Summary  json.RawMessage `json:"summary,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Decode asks the server to classify and summarise blob. A blob that fails
// to decode is not an error: the result has OK false.
func (c *Client) Decode(ctx context.Context, blob, encoding string) (*DecodeResult, error) {
	var result DecodeResult
	err := c.do(ctx, http.MethodPost, "/api/v1/decode", map[string]string{
		"blob":     blob,
		"encoding": encoding,
	}, &result, http.StatusOK, http.StatusUnprocessableEntity)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Draft is a transfer to encode. Empty fields use the server's placeholders.
type Draft struct {
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Lamports        uint64 `json:"lamports,omitempty"`
	RecentBlockhash string `json:"recentBlockhash,omitempty"`
	FeePayer        string `json:"feePayer,omitempty"`
}

// Encode builds an unsigned transfer. A nil draft encodes the placeholder transfer.
func (c *Client) Encode(ctx context.Context, draft *Draft, encoding string) (string, error) {
	path := "/api/v1/encode"
	if encoding != "" {
		path += "?encoding=" + url.QueryEscape(encoding)
	}

	var resp struct {
		Encoded string `json:"encoded"`
	}
	var err error
	if draft == nil {
		err = c.do(ctx, http.MethodGet, path, nil, &resp)
	} else {
		err = c.do(ctx, http.MethodPost, path, draft, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Encoded == "" {
		return "", errors.New("server returned an empty encoding")
	}
	return resp.Encoded, nil
}

// DecodeErr converts a failed result to an error in the "<kind>: <message>" form.
func (r *DecodeResult) DecodeErr() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Kind, r.Error)
}
