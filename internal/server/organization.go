package server

import (
	"fmt"
	"net/http"

	organizationdomain "github.com/carbase/carbase/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateOrganization(c *gin.Context) {
	var req organizationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_request", "invalid request body"))
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (s *Server) DestroyOrganization(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	counts, err := s.organizationSvc.Destroy(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf(
			"organization %s deleted: %d users, %d cars, %d maintenance records, %d expenses, %d billing events",
			orgID, counts.Users, counts.Cars, counts.MaintenanceRecords, counts.Expenses, counts.BillingEvents),
		"deleted_counts": counts,
	})
}
