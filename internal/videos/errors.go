package videos

import "errors"

var (
	// ErrProberUnavailable indicates the media prober is not configured.
	ErrProberUnavailable = errors.New("media prober unavailable")
	// ErrNoDuration indicates the probed file carries no readable duration.
	ErrNoDuration = errors.New("media duration unavailable")
)
