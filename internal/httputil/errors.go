package httputil

import "errors"

// Request parsing errors shared by all controllers. Everything here is the
// caller's fault and answered with HTTP 400.
var (
	ErrInvalidBody      = errors.New("the body of your request contains invalid or un-parseable data. Please check and try again")
	ErrRequestBodyEmpty = errors.New("the request body must not be empty")
	ErrInvalidUUID      = errors.New("the specified resource ID is not a valid UUID")
)
