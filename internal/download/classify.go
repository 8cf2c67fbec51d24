package download

import (
	"context"
	"errors"
	"strings"

	"spool/internal/services"
)

// permanentMarkers are extractor error fragments that indicate retrying will
// not help: the content itself is gone or inaccessible.
var permanentMarkers = []string{
	"private video",
	"video unavailable",
	"this video is unavailable",
	"has been removed",
	"account associated with this video has been terminated",
	"copyright",
	"not available in your country",
	"blocked in your country",
	"sign in to confirm your age",
	"age-restricted",
	"members-only",
	"premieres in",
	"this live event",
	"unsupported url",
}

// ClassifyExtractionError maps a raw extractor failure onto the permanent or
// transient marker. Errors already tagged keep their classification; context
// cancellation passes through untouched so the run loop can distinguish a
// shutdown from an item failure.
func ClassifyExtractionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, services.ErrPermanent) || errors.Is(err, services.ErrTransient) {
		return err
	}

	message := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(message, marker) {
			return services.Wrap(services.ErrPermanent, "download", "extract", "", err)
		}
	}
	return services.Wrap(services.ErrTransient, "download", "extract", "", err)
}
