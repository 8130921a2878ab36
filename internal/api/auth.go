package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lihochat/chatclient/internal/apierror"
	"github.com/lihochat/chatclient/internal/types"
)

// Login exchanges credentials for an access token.
func Login(ctx context.Context, httpClient *http.Client, baseURL, email, password string) (*types.LoginResponse, error) {
	if err := types.ValidateCredentials(email, password); err != nil {
		return nil, apierror.FromValidation(err)
	}
	var lr types.LoginResponse
	url := fmt.Sprintf("%s/auth/login", baseURL)
	if err := doJSON(ctx, httpClient, "login", http.MethodPost, url, types.LoginRequest{Email: email, Password: password}, &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

// Me resolves the identity behind the current bearer token. A 2xx with an
// empty or absent id means "not authenticated", not a hard error; callers
// must check Profile.ID rather than rely on a non-nil result.
func Me(ctx context.Context, httpClient *http.Client, baseURL string) (*types.UserProfile, error) {
	var p types.UserProfile
	url := fmt.Sprintf("%s/auth/me", baseURL)
	if err := doJSON(ctx, httpClient, "me", http.MethodGet, url, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
