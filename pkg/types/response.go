package types

// SuccessEnvelope wraps every successful API payload, batch reports and
// recording results alike.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Details is populated only for
// error codes that allow structured detail disclosure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError for error responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
