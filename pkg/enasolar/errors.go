package enasolar

import "fmt"

// ConnectionError reports a transport failure or a non-2xx HTTP status while
// fetching a page from the inverter's web server.
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("enasolar: GET %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("enasolar: GET %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a field that could not be located in the fetched
// page text or whose matched text could not be coerced to the declared type.
type ExtractionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enasolar: field %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("enasolar: field %q: %s", e.Field, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IdentityUnavailableError reports that the device identity could not be
// resolved from the settings page. Fatal for the current connect attempt, not
// for the client: the next poll retries.
type IdentityUnavailableError struct {
	Err error
}

func (e *IdentityUnavailableError) Error() string {
	return fmt.Sprintf("enasolar: device identity unavailable: %v", e.Err)
}

func (e *IdentityUnavailableError) Unwrap() error {
	return e.Err
}
