package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	licensedomain "github.com/carbase/carbase/internal/license/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) orgIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_organization_id", "invalid organization id"))
		return 0, false
	}
	return id, true
}

func (s *Server) GetLicenseSummary(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	summary, err := s.licenseSvc.Summarize(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) GetEntitlement(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	entitlement, err := s.licenseSvc.CheckCarCreation(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !entitlement.Allowed {
		s.obsMetrics.RecordEntitlementDenied(c.Request.Context(), "car_limit")
	}
	c.JSON(http.StatusOK, entitlement)
}

func (s *Server) AdminGetLicense(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	license, err := s.licenseSvc.GetByOrgID(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, license)
}

func (s *Server) SetFreeLicense(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	var req licensedomain.SetFreeLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_request", "invalid request body"))
		return
	}
	req.OrgID = orgID

	license, err := s.licenseSvc.SetFreeLicense(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, license)
}

type updateLicenseRequest struct {
	TierName *string `json:"tier_name"`
	CarLimit *int    `json:"car_limit"`
	IsActive *bool   `json:"is_active"`
}

// UpdateLicense covers the remaining admin overrides: change tier
// (with optional limit override) and flip the active flag.
func (s *Server) UpdateLicense(c *gin.Context) {
	orgID, ok := s.orgIDParam(c)
	if !ok {
		return
	}

	var req updateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_request", "invalid request body"))
		return
	}
	if req.TierName == nil && req.IsActive == nil {
		AbortWithError(c, newValidationError("body", "invalid_request", "nothing to update"))
		return
	}

	var license *licensedomain.License
	var err error

	if req.TierName != nil {
		license, err = s.licenseSvc.ChangeTier(c.Request.Context(), licensedomain.ChangeTierRequest{
			OrgID:            orgID,
			TierName:         *req.TierName,
			CarLimitOverride: req.CarLimit,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}
	if req.IsActive != nil {
		license, err = s.licenseSvc.ToggleActive(c.Request.Context(), orgID, *req.IsActive)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, license)
}
