package download

import (
	"context"
	"errors"
	"testing"

	"spool/internal/services"
)

func TestClassifyExtractionError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"private video", errors.New("ERROR: Private video. Sign in if you've been granted access"), true},
		{"removed", errors.New("This video has been removed by the uploader"), true},
		{"region block", errors.New("The uploader has not made this video not available in your country"), true},
		{"unsupported", errors.New("Unsupported URL: https://example.com/page"), true},
		{"network", errors.New("unable to download webpage: connection reset by peer"), false},
		{"timeout", errors.New("read timed out"), false},
		{"http 429", errors.New("HTTP Error 429: Too Many Requests"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classified := ClassifyExtractionError(tc.err)
			if got := errors.Is(classified, services.ErrPermanent); got != tc.permanent {
				t.Fatalf("permanent = %v, want %v (%v)", got, tc.permanent, classified)
			}
			if !tc.permanent && !errors.Is(classified, services.ErrTransient) {
				t.Fatalf("expected transient marker: %v", classified)
			}
		})
	}
}

func TestClassifyPreservesCancellation(t *testing.T) {
	if err := ClassifyExtractionError(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation rewritten: %v", err)
	}
	if errors.Is(ClassifyExtractionError(context.Canceled), services.ErrTransient) {
		t.Fatal("cancellation should not be tagged transient")
	}
}

func TestClassifyKeepsExistingTags(t *testing.T) {
	tagged := services.Wrap(services.ErrPermanent, "download", "extract", "gone", nil)
	if !errors.Is(ClassifyExtractionError(tagged), services.ErrPermanent) {
		t.Fatal("existing permanent tag lost")
	}
}

func TestClassifyNil(t *testing.T) {
	if ClassifyExtractionError(nil) != nil {
		t.Fatal("nil error should stay nil")
	}
}
