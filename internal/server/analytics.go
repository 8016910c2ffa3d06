package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
)

func (s *Server) dashboardRequest(c *gin.Context) (analyticsdomain.DashboardRequest, error) {
	start, err := parseOptionalTime(c.Query("start"), false)
	if err != nil {
		return analyticsdomain.DashboardRequest{}, newValidationError("start", "invalid_time", "invalid time")
	}
	end, err := parseOptionalTime(c.Query("end"), true)
	if err != nil {
		return analyticsdomain.DashboardRequest{}, newValidationError("end", "invalid_time", "invalid time")
	}

	req := analyticsdomain.DashboardRequest{
		Metrics: parseMetricGroups(c.Query("metrics")),
	}
	if start != nil {
		req.Start = *start
	}
	if end != nil {
		req.End = *end
	}

	// Tenant keys only ever see their own slice; the admin key may pick
	// one with ?tenant_id= or omit it for the platform view.
	if tenantID, ok := requestTenantID(c); ok {
		req.TenantID = &tenantID
		return req, nil
	}
	tenantID, err := parseOptionalSnowflakeID(c.Query("tenant_id"))
	if err != nil {
		return analyticsdomain.DashboardRequest{}, newValidationError("tenant_id", "invalid_tenant", "invalid tenant id")
	}
	req.TenantID = tenantID
	return req, nil
}

func (s *Server) GetDashboard(c *gin.Context) {
	req, err := s.dashboardRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.analyticsSvc.DashboardMetrics(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ExportDashboard(c *gin.Context) {
	req, err := s.dashboardRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.analyticsSvc.DashboardMetrics(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.reports.DashboardPDF(c.Request.Context(), resp)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := "analytics-" + time.Now().UTC().Format("2006-01-02") + ".pdf"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}

func (s *Server) GetTenantAnalytics(c *gin.Context) {
	target, err := parseOptionalSnowflakeID(c.Param("id"))
	if err != nil || target == nil {
		AbortWithError(c, newValidationError("id", "invalid_tenant", "invalid tenant id"))
		return
	}

	// Tenant keys may only read themselves.
	if tenantID, ok := requestTenantID(c); ok && tenantID != *target {
		AbortWithError(c, ErrForbidden)
		return
	}

	resp, err := s.analyticsSvc.TenantAnalytics(c.Request.Context(), *target)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetUserAnalytics(c *gin.Context) {
	resp, err := s.analyticsSvc.UserAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
