package routes

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"pdf-insight-backend/internal/config"
	"pdf-insight-backend/internal/logger"
	"pdf-insight-backend/models"
	"pdf-insight-backend/services"
	"pdf-insight-backend/utils"
)

// SetupDocumentRoutes registers upload, listing, deletion, and maintenance
// endpoints for the document library.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, index *services.SemanticIndex, store *services.FileStore) {
	// Upload one or more PDFs and index them synchronously.
	router.POST("/upload", func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", err.Error())
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		uploaded := make([]string, 0, len(files))
		results := make([]models.IngestResult, 0, len(files))
		for _, header := range files {
			file, err := header.Open()
			if err != nil {
				utils.RespondWithBadRequest(c, "Failed to read upload", err.Error())
				return
			}
			path, err := store.SaveUpload(file, header)
			file.Close()
			if err != nil {
				utils.RespondWithBadRequest(c, "Upload rejected", err.Error())
				return
			}
			uploaded = append(uploaded, path)

			res, err := index.IngestPDF(c.Request.Context(), path)
			if err != nil {
				logger.Error("Ingestion failed", "file", path, "error", err)
				utils.RespondWithInternalError(c, "Indexing failed", err.Error())
				return
			}
			results = append(results, *res)
		}

		c.JSON(http.StatusOK, gin.H{
			"status":           "success",
			"uploaded":         uploaded,
			"indexing_results": results,
			"index_stats":      index.Stats(),
		})
	})

	// List indexed documents with per-document aggregates.
	router.GET("/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"documents": index.ListDocuments()})
	})

	// Delete a document, its sections, and the stored PDF.
	router.DELETE("/documents/:name", func(c *gin.Context) {
		name := c.Param("name")
		removed, err := index.Delete(name)
		if err != nil {
			if errors.Is(err, services.ErrDocumentNotFound) {
				utils.RespondWithNotFound(c, "Document not found: "+name)
				return
			}
			utils.RespondWithInternalError(c, "Delete failed", err.Error())
			return
		}
		if err := store.Remove(name); err != nil {
			logger.Warn("Failed to remove stored PDF", "doc", name, "error", err)
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "success",
			"deleted_document": name,
			"sections_removed": removed,
		})
	})

	// Rebuild the entire index from the upload directory.
	router.POST("/reindex", func(c *gin.Context) {
		if err := index.Clear(); err != nil {
			utils.RespondWithInternalError(c, "Failed to clear index", err.Error())
			return
		}
		scan, err := index.ScanAndIngest(c.Request.Context(), cfg.UploadDir())
		if err != nil {
			utils.RespondWithInternalError(c, "Reindex failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "success",
			"reindex_result": scan,
			"index_stats":    index.Stats(),
		})
	})

	// Remove stored PDFs that are no longer indexed.
	router.POST("/cleanup", func(c *gin.Context) {
		removed, err := index.CleanupOrphans(cfg.UploadDir())
		if err != nil {
			utils.RespondWithInternalError(c, "Cleanup failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "files_removed": removed})
	})

	// Serve the original PDF to the viewer.
	router.GET("/uploads/:filename", func(c *gin.Context) {
		path := store.Path(c.Param("filename"))
		if _, err := os.Stat(path); err != nil {
			utils.RespondWithNotFound(c, "File not found")
			return
		}
		c.File(path)
	})
}
