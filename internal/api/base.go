// Package api contains the per-endpoint request functions. Each takes the
// caller context, the shared *http.Client (which carries the bearer token
// wrapper and the 30s timeout budget) and the base URL. Every failure path
// is normalized to *apierror.Error before it leaves this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lihochat/chatclient/internal/apierror"
)

// doJSON builds, executes and decodes one JSON request. okStatus is the
// single status code treated as success; anything else is normalized from
// the response body. out may be nil for endpoints with no interesting body.
func doJSON(ctx context.Context, httpClient *http.Client, op, method, url string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return apierror.FromTransport(op, err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apierror.FromValidation(err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apierror.FromValidation(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return apierror.FromTransport(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierror.FromTransport(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierror.FromResponse(op, resp.StatusCode, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return apierror.FromDecode(op, resp.StatusCode, err)
		}
	}
	return nil
}
