package transport

import "errors"

// Transport errors.
// Callers distinguish these with errors.Is to decide whether a response
// can be used at all.
var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port" or "socks5://[user:pass@]host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnexpectedStatus is returned when the server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrContentType is returned when the response declares a different media type.
	ErrContentType = errors.New("unexpected content type")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy can be made.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyNotSOCKS5 is returned when the proxy answers but does not speak SOCKS5.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")
)

// ProxyStatus represents the result of checking the proxy connection.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy speaks SOCKS5.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the proxy answered with something other than SOCKS5.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates the proxy could not be reached.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the check timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the appropriate error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSOCKS5
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
