package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/bookline/internal/intent"
	"github.com/smallbiznis/bookline/internal/observability/logger"
)

// ProposeLead offers the earliest free slot over SMS instead of booking it
// outright. The slot stays unbooked until the customer confirms, so two leads
// may be offered the same window and the confirmation path settles the race.
func (s *Server) ProposeLead(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	lead := req.toLead()
	log := logger.FromContext(ctx)
	log.Info("lead received",
		zap.String("tenant_id", lead.TenantID),
		zap.String("event_id", lead.EventID),
	)

	leadIntent := s.intents.Classify(lead)
	if leadIntent != intent.IntentBook {
		c.JSON(http.StatusOK, gin.H{"status": "HANDOFF", "reason": string(leadIntent)})
		return
	}

	window, err := s.allocator.Preview(ctx, lead.TenantID, lead.Service)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if window == nil {
		s.bookingMetrics.DispatchNeeded()
		c.JSON(http.StatusOK, gin.H{"status": "NEEDS_DISPATCH"})
		return
	}

	prop, _, err := s.propose(c, lead, *window)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "PROPOSED",
		"proposal_id": prop.ID.String(),
		"message_id":  prop.MessageID,
	})
}
