package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/slotheather55/webspark-sub000/internal/models"
	"github.com/slotheather55/webspark-sub000/internal/player"
	"github.com/slotheather55/webspark-sub000/pkg/response"
)

// RunAudit probes a URL and reports which tracking events each interaction
// fired. The caller either names a page type, selecting its built-in
// catalog, or supplies an explicit interaction list. Synchronous; audits of
// a single page finish in well under a minute.
func RunAudit(c *gin.Context) {
	var req struct {
		URL          string                      `json:"url" binding:"required,url"`
		PageType     string                      `json:"page_type"`
		Interactions []models.CatalogInteraction `json:"interactions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.PageType == "" {
		req.PageType = "DEFAULT"
	}

	var report *player.AuditReport
	var err error
	if len(req.Interactions) > 0 {
		report, err = sessions.RunInteractionAudit(c.Request.Context(), req.URL, req.PageType, req.Interactions)
	} else {
		report, err = sessions.RunCatalogAudit(c.Request.Context(), req.URL, req.PageType)
	}
	if err != nil {
		response.InternalServerError(c, "audit failed: "+err.Error())
		return
	}
	response.Success(c, report)
}

func GetPageTypes(c *gin.Context) {
	response.Success(c, gin.H{"page_types": player.PageTypes()})
}
