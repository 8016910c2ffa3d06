package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	perfdomain "github.com/brightclass/insight/internal/performance/domain"
)

const defaultPerformanceWindow = time.Hour

func (s *Server) GetPerformanceSeries(c *gin.Context) {
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
	bucket, err := parseOptionalDuration(c.Query("bucket"))
	if err != nil {
		AbortWithError(c, newValidationError("bucket", "invalid_bucket", "invalid bucket"))
		return
	}

	req := perfdomain.SeriesRequest{Bucket: bucket}
	if end != nil {
		req.End = *end
	} else {
		req.End = time.Now().UTC()
	}
	if start != nil {
		req.Start = *start
	} else {
		req.Start = req.End.Add(-defaultPerformanceWindow)
	}

	resp, err := s.perfSvc.Series(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
