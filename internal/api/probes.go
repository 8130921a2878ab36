package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lihochat/chatclient/internal/types"
)

// Livez checks backend liveness. Diagnostics only, never on the data path.
func Livez(ctx context.Context, httpClient *http.Client, baseURL string) (*types.ProbeStatus, error) {
	return probe(ctx, httpClient, "livez", fmt.Sprintf("%s/livez", baseURL))
}

// Readyz checks backend readiness. Diagnostics only, never on the data path.
func Readyz(ctx context.Context, httpClient *http.Client, baseURL string) (*types.ProbeStatus, error) {
	return probe(ctx, httpClient, "readyz", fmt.Sprintf("%s/readyz", baseURL))
}

func probe(ctx context.Context, httpClient *http.Client, op, url string) (*types.ProbeStatus, error) {
	var ps types.ProbeStatus
	if err := doJSON(ctx, httpClient, op, http.MethodGet, url, nil, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}
