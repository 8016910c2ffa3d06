package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/insight/internal/cloudmetrics"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	"github.com/brightclass/insight/pkg/db/pagination"
)

// RecordEvent accepts one analytics event. The authenticated key's
// tenant overrides whatever the payload claims.
func (s *Server) RecordEvent(c *gin.Context) {
	var req eventdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant := ""
	if tenantID, ok := requestTenantID(c); ok {
		id := int64(tenantID)
		req.TenantID = &id
		tenant = tenantID.String()
	}

	if eventType := strings.TrimSpace(req.EventType); eventType != "" {
		c.Set("event_type", eventType)
	}

	if err := s.eventSvc.Record(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	cloudmetrics.RecordEventIngested(tenant, strings.TrimSpace(req.EventType))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) ListEvents(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseOptionalTime(c.Query("start"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start", "invalid_time", "invalid time"))
		return
	}
	end, err := parseOptionalTime(c.Query("end"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end", "invalid_time", "invalid time"))
		return
	}

	req := eventdomain.QueryRequest{
		Start:           start,
		End:             end,
		EventTypePrefix: strings.TrimSpace(c.Query("event_type")),
		UserID:          strings.TrimSpace(c.Query("user_id")),
		Pagination:      page,
	}
	if tenantID, ok := requestTenantID(c); ok {
		req.TenantID = &tenantID
	}

	resp, err := s.eventSvc.Query(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
