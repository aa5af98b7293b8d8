package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"crudgen/internal/migrate"
)

// DDLHandler renders the full create script of the current model, ignoring
// the manifest.
func DDLHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := dialectParam(c, storage.Dialect)
		if !ok {
			return
		}
		sc, err := storage.Schema(d)
		if err != nil {
			schemaError(c, err)
			return
		}
		r := migrate.Renderer{Dialect: d}
		body := migrate.Format(fmt.Sprintf("schema\ndialect: %s", d), r.DDL(sc))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
	}
}

// PlanHandler previews what the next generator run would emit. Nothing is
// written.
func PlanHandler(storage *Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, ok := dialectParam(c, storage.Dialect)
		if !ok {
			return
		}
		sc, err := storage.Schema(d)
		if err != nil {
			schemaError(c, err)
			return
		}
		m, loadErr := migrate.LoadManifest(migrate.ManifestPath(storage.ProjectRoot))
		if _, err := m.CatchUp(storage.ProjectRoot); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		plan := migrate.BuildPlan(m, sc)

		scripts := make([]gin.H, 0, len(plan.Scripts))
		for _, s := range plan.Scripts {
			scripts = append(scripts, gin.H{"name": s.Name, "statements": s.SQL()})
		}
		out := gin.H{
			"dialect": d,
			"empty":   plan.Empty(),
			"version": plan.Version,
			"changes": plan.Changes,
			"scripts": scripts,
			"issues":  plan.Issues,
		}
		if loadErr != nil {
			out["manifestError"] = loadErr.Error()
		}
		c.JSON(http.StatusOK, out)
	}
}
