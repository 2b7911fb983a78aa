package scraper

import (
	"errors"
	"net/http"
)

// Error kinds surfaced by Resolve. Adapters wrap these with fmt.Errorf("%w")
// so callers can classify with errors.Is while the message keeps the cause.
var (
	// ErrUnsupportedSource means no adapter recognised the URL.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrInvalidIdentifier means the host matched but the path did not carry an id.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrMediaNotFound means the id is well formed but upstream has no record.
	ErrMediaNotFound = errors.New("media not found")
	// ErrFetchBlocked means the page came back unusable, most likely bot protection.
	ErrFetchBlocked = errors.New("fetch blocked")
	// ErrParsePatternMismatch means heuristic extraction found nothing it recognises.
	ErrParsePatternMismatch = errors.New("parse pattern mismatch")
	// ErrSourceFetch covers transport failures and unexpected statuses on load-bearing requests.
	ErrSourceFetch = errors.New("source fetch failed")
)

const userMessagePrefix = "Failed to extract information from the URL. Reason: "

// UserMessage renders err as the text shown to a user next to the URL form.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := userMessagePrefix + err.Error()
	switch {
	case errors.Is(err, ErrUnsupportedSource):
		msg += ". Please enter the details manually."
	case errors.Is(err, ErrFetchBlocked):
		msg += ". The site may be blocking automated requests; please enter the details manually."
	case errors.Is(err, ErrParsePatternMismatch):
		msg += ". The site layout may have changed."
	}
	return msg
}

// HTTPStatus maps an error kind onto the status the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnsupportedSource), errors.Is(err, ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, ErrMediaNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrParsePatternMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrFetchBlocked), errors.Is(err, ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
