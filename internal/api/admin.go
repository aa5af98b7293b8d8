package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminReloadHandler re-reads the model through the storage loader. The new
// model replaces the current one only when it lints without blocking issues.
func AdminReloadHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		entities, enums, err := storage.load()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "model load error", "details": err.Error()})
			return
		}

		if issues, fatal := storage.SchemaLint(entities, storage.Dialect); fatal {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "schema has blocking issues",
				"issues": issues,
				"hint":   "fix the entity descriptors and retry",
			})
			return
		}

		storage.replace(entities, enums)
		storage.Options.Logger.Info("model reloaded", "entities", len(entities), "catalogs", len(enums))

		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"entities": len(entities),
			"catalogs": len(enums),
		})
	}
}
