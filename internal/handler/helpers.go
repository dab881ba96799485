package handler

import (
	"log"
	"net/http"
	"strconv"

	"learnhub/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to status codes. Anything unclassified is logged and hidden
// behind a generic 500.
func respondError(c *gin.Context, tag string, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case domain.KindInvariant:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("[%s] %s %s: %v", tag, c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// parseID reads a positive numeric path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
