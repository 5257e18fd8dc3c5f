// Package mkerr defines the sentinel error taxonomy shared across the
// bridge and the helpers that classify raw HTTP/transport errors into it.
package mkerr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfig indicates a malformed or incomplete configuration.
	ErrConfig = errors.New("config_error")

	// ErrAuth indicates the MkIX login call was rejected.
	ErrAuth = errors.New("auth_error")

	// ErrServer indicates MkIX returned a 5xx response.
	ErrServer = errors.New("server_error")

	// ErrProtocol indicates a non-2xx response or a schema mismatch.
	ErrProtocol = errors.New("protocol_error")

	// ErrTimeout indicates an operation did not complete within its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrNotFound indicates a referenced resource (file, message id, request flag, ...) does not exist.
	ErrNotFound = errors.New("not_found")

	// ErrUsage indicates bad client input (unknown action, unknown scheme, ...).
	ErrUsage = errors.New("usage_error")

	// ErrCrypto indicates an AES-CBC encrypt/decrypt or padding failure.
	ErrCrypto = errors.New("crypto_error")

	// ErrIO indicates a filesystem or download failure.
	ErrIO = errors.New("io_error")
)

// ClassifyStatus wraps rawErr with the sentinel matching an HTTP status
// code returned by a MkIX call: >=500 is ErrServer, >=300 is ErrProtocol,
// otherwise rawErr is returned unwrapped.
func ClassifyStatus(statusCode int, rawErr error) error {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", ErrServer, rawErr)
	case statusCode >= 300:
		return fmt.Errorf("%w: %v", ErrProtocol, rawErr)
	default:
		return rawErr
	}
}

// ClassifyNetError wraps a network/dial/timeout error as ErrTimeout.
func ClassifyNetError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTimeout, err)
}
