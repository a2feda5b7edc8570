package domain

// NetworkFailureStatus is the status recorded when no HTTP response was obtained.
// Consumers depend on it; keep it at 0.
const NetworkFailureStatus = 0

// NetworkErrorPrefix starts every diagnostic body stored for a network failure.
const NetworkErrorPrefix = "Network Error: "

// Outcome is the result of one outbound call: either *HTTPResponse or *NetworkFailure.
type Outcome interface {
	outcome()
}

// HTTPResponse means the remote host answered, whatever the status.
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte

	// Truncated is set when the body was cut at the configured read limit.
	Truncated bool
}

// NetworkFailure means no HTTP response was obtained (DNS, connect, TLS, timeout, bad URL).
type NetworkFailure struct {
	Message string
}

func (*HTTPResponse) outcome()   {}
func (*NetworkFailure) outcome() {}

// Flatten maps an outcome to the persisted (status, headers, body) triple.
// This is the only place the tagged outcome collapses into the 0 sentinel, and
// where upstream bytes become storable text.
func Flatten(o Outcome) (status int, headers map[string]string, body string) {
	switch v := o.(type) {
	case *HTTPResponse:
		return v.StatusCode, cleanHeaders(v.Headers), StoredText(v.Body, v.Truncated)
	case *NetworkFailure:
		return NetworkFailureStatus, map[string]string{}, NetworkErrorPrefix + cleanText(v.Message)
	default:
		return NetworkFailureStatus, map[string]string{}, NetworkErrorPrefix + "unknown outcome"
	}
}
