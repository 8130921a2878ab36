package types

// ------------------------------
// Request Types
// ------------------------------

// LoginRequest holds credentials for the credential-exchange endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
