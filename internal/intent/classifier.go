package intent

import (
	"strings"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	"go.uber.org/fx"
)

type Intent string

const (
	IntentBook       Intent = "book"
	IntentCancel     Intent = "cancel"
	IntentReschedule Intent = "reschedule"
)

// Classifier decides whether a lead wants a booking or should be handed off.
type Classifier interface {
	Classify(lead bookingdomain.Lead) Intent
}

// KeywordClassifier inspects the lead notes. Anything that is not an explicit
// cancel or reschedule request is treated as a booking intent.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(lead bookingdomain.Lead) Intent {
	text := strings.ToLower(lead.Notes)
	if strings.Contains(text, "cancel") {
		return IntentCancel
	}
	if strings.Contains(text, "resched") {
		return IntentReschedule
	}
	return IntentBook
}

var Module = fx.Module("intent",
	fx.Provide(func() Classifier { return KeywordClassifier{} }),
)
