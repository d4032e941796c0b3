package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const recentJobsLimit = 50

type jobListItem struct {
	JobID        string    `json:"job_id"`
	TenantID     string    `json:"tenant_id"`
	CustomerName string    `json:"customer_name"`
	Service      string    `json:"service"`
	SlotStart    time.Time `json:"slot_start"`
	SlotEnd      time.Time `json:"slot_end"`
	Status       string    `json:"status"`
}

func (s *Server) ListJobs(c *gin.Context) {
	jobs, err := s.bookingSvc.Recent(c.Request.Context(), recentJobsLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]jobListItem, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, jobListItem{
			JobID:        job.ID.String(),
			TenantID:     job.TenantID,
			CustomerName: job.CustomerName,
			Service:      job.Service,
			SlotStart:    job.SlotStart,
			SlotEnd:      job.SlotEnd,
			Status:       job.Status,
		})
	}

	c.JSON(http.StatusOK, items)
}
