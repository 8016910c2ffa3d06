package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adaptationdomain "github.com/brightclass/insight/internal/adaptation/domain"
)

func (s *Server) AdaptContent(c *gin.Context) {
	var req adaptationdomain.AdaptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.adaptSvc.Adapt(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
