package chatclient

import "github.com/lihochat/chatclient/internal/apierror"

// APIError is the single normalized error shape every client operation
// returns. Callers branch on its fields or on the predicates below; no
// raw transport or backend error ever escapes the client.
type APIError = apierror.Error

// AsAPIError extracts the normalized error from err's chain.
func AsAPIError(err error) (*APIError, bool) { return apierror.As(err) }

// Re-export error predicates so callers compare against single symbols.
var (
	IsRetryable    = apierror.IsRetryable
	IsUnauthorized = apierror.IsUnauthorized
	IsForbidden    = apierror.IsForbidden
	IsRateLimited  = apierror.IsRateLimited
	IsTimeout      = apierror.IsTimeout
	IsNetworkError = apierror.IsNetwork
	IsServerError  = apierror.IsServerError
)
