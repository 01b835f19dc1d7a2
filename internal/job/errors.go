package job

import "errors"

var (
	ErrJobNotFound = errors.New("task not found")
	ErrTerminal    = errors.New("job already in terminal state")
)

// voiceNotFoundReason is the failure message stored on a job whose reference
// voice could not be resolved. Clients match on this string, so it is fixed.
const voiceNotFoundReason = "Voice ID not found"
