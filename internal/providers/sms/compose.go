package sms

import (
	"fmt"
	"time"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
)

// ComposeProposal renders the offer text sent to a customer. A generative
// collaborator may replace this wording upstream; the deterministic template
// keeps the flow self-contained.
func ComposeProposal(lead bookingdomain.Lead, window capacitydomain.Window) string {
	return fmt.Sprintf("Hi %s! We can schedule your %s on %s. Reply YES to confirm or RESCHEDULE for another time.",
		lead.Name,
		lead.Service,
		formatWindow(window.Start, window.End),
	)
}

// ComposeConfirmation renders the booked-job confirmation message.
func ComposeConfirmation(job *bookingdomain.Job) string {
	return fmt.Sprintf("Confirmed! Your %s is booked for %s. See you then!",
		job.Service,
		job.SlotStart.Format("January 2, 2006 at 3:04 PM"),
	)
}

func formatWindow(start, end time.Time) string {
	return fmt.Sprintf("%s between %s and %s",
		start.Format("Mon Jan 2"),
		start.Format("3:04 PM"),
		end.Format("3:04 PM"),
	)
}
