package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
)

func (s *Server) RecommendBreak(c *gin.Context) {
	var req breakdomain.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.breakSvc.Recommend(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ScheduleBreaks(c *gin.Context) {
	var req breakdomain.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.breakSvc.Schedule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) AdjustBreakSchedule(c *gin.Context) {
	var req breakdomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.breakSvc.AdjustSchedule(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) TrackBreakEffectiveness(c *gin.Context) {
	var report breakdomain.EffectivenessReport
	if err := c.ShouldBindJSON(&report); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.breakSvc.TrackEffectiveness(c.Request.Context(), report); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}
