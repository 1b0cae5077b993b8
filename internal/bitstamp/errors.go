package bitstamp

import (
	"errors"
	"fmt"
)

// Error taxonomy for exchange responses. ErrExchange is the root: every
// error produced by response processing wraps it, so callers can match the
// whole family with errors.Is(err, ErrExchange). ErrClient covers malformed
// or exchange-rejected responses, and ErrInvalidNonce is the one expected
// transient member: concurrent or restarted clients routinely race the nonce
// counter, so workers log it quietly instead of paging anyone.
var (
	ErrExchange     = errors.New("exchange error")
	ErrClient       = fmt.Errorf("%w: client error", ErrExchange)
	ErrInvalidNonce = fmt.Errorf("%w: invalid nonce", ErrClient)
)

// ClientError is an exchange-reported business error or an unparseable
// response body.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: %s", e.Message)
}

func (e *ClientError) Unwrap() error { return ErrClient }

// SchemaViolationError indicates the exchange returned a field the wire
// model does not know about. The API contract drifted silently; failing the
// call is deliberate so the drift is noticed instead of dropped.
type SchemaViolationError struct {
	Model  string
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation decoding %s: %s", e.Model, e.Detail)
}

func (e *SchemaViolationError) Unwrap() error { return ErrExchange }
