package types

import "fmt"

// ------------------------------
// Shared Validation
// ------------------------------

// ValidateIDPresent rejects empty identifiers before a request is built.
func ValidateIDPresent(v, name string) error {
	if v == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// ValidateLimit bounds a page-size parameter. The backend caps pages at 100
// items; asking for more silently truncates, so reject it client side.
func ValidateLimit(n int) error {
	if n <= 0 {
		return fmt.Errorf("limit must be > 0")
	}
	if n > 100 {
		return fmt.Errorf("limit must be <= 100")
	}
	return nil
}

// ValidateCredentials rejects empty login input before a network call.
func ValidateCredentials(email, password string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}
