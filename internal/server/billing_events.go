package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/carbase/carbase/internal/billing/domain"
	"github.com/carbase/carbase/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listBillingEventsQuery struct {
	pagination.Pagination
	OrgID  string `form:"org_id"`
	Status string `form:"status"`
}

func (s *Server) ListBillingEvents(c *gin.Context) {
	var query listBillingEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, newValidationError("query", "invalid_request", "invalid query parameters"))
		return
	}

	req := billingdomain.ListEventsRequest{
		Status:    query.Status,
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	}
	if query.OrgID != "" {
		orgID, err := snowflake.ParseString(query.OrgID)
		if err != nil {
			AbortWithError(c, newValidationError("org_id", "invalid_organization_id", "invalid organization id"))
			return
		}
		req.OrgID = orgID
	}

	events, nextToken, err := s.billingSvc.ListEvents(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"page_info": pagination.PageInfo{
			NextPageToken: nextToken,
			HasMore:       nextToken != "",
		},
	})
}
