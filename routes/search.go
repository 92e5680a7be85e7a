package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdf-insight-backend/models"
	"pdf-insight-backend/services"
	"pdf-insight-backend/utils"
)

// SetupSearchRoutes registers the query and stats endpoints.
func SetupSearchRoutes(router *gin.Engine, index *services.SemanticIndex) {
	router.POST("/search", func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid search request", err.Error())
			return
		}

		results, err := index.Search(c.Request.Context(), req.Query, req.TopK, req.ExcludeDoc)
		if err != nil {
			if errors.Is(err, services.ErrEmptyQuery) {
				utils.RespondWithBadRequest(c, "Query must not be empty", nil)
				return
			}
			utils.RespondWithInternalError(c, "Search failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"query":   req.Query,
			"count":   len(results),
			"results": results,
		})
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, index.Stats())
	})
}
