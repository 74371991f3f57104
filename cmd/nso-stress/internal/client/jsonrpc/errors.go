package jsonrpc

import (
	"errors"

	"github.com/creachadair/jrpc2"
)

// NSO reports missing data with this application error code.
const codeDataNotFound jrpc2.Code = -32000

// IsDataNotFound reports whether an error is NSO's "Data not found"
// response, which callers usually treat as an absent value rather than a
// failure.
func IsDataNotFound(err error) bool {
	var jerr *jrpc2.Error
	if !errors.As(err, &jerr) {
		return false
	}
	return jerr.Code == codeDataNotFound && jerr.Message == "Data not found"
}

// ErrorCode extracts the JSON-RPC error code, or 0 when the error did not
// come from the server (transport failures, context cancellation).
func ErrorCode(err error) int {
	var jerr *jrpc2.Error
	if errors.As(err, &jerr) {
		return int(jerr.Code)
	}
	return 0
}
