package api

import (
	"net/http"
	"time"
)

// CredentialsMode controls whether cookies travel with a request.
type CredentialsMode int

const (
	// CredentialsOmit sends and stores no cookies.
	CredentialsOmit CredentialsMode = iota
	// CredentialsInclude uses the client's cookie jar.
	CredentialsInclude
)

// Options describes one API call.
type Options struct {
	Method string
	Header map[string]string
	// Body is sent as-is when it is a string, []byte or json.RawMessage,
	// multipart when it is a *Form, and JSON-encoded otherwise.
	Body any
	// SkipAuth suppresses the bearer token and the refresh-and-replay on 401.
	SkipAuth bool
	// Timeout bounds the whole call including retries. Zero uses the client default.
	Timeout     time.Duration
	Credentials CredentialsMode
}

func (o Options) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// Result describes how a call ended when no error is returned.
type Result struct {
	Status int
	Header http.Header
	// Cancelled is set when the call was aborted by its timeout or by the
	// caller's context. No data is decoded and no error is returned.
	Cancelled bool
}

// OK reports whether the call completed with data.
func (r Result) OK() bool {
	return !r.Cancelled && r.Status >= 200 && r.Status < 300
}
