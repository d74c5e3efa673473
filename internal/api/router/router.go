package router

import (
	"net/http"

	"github.com/cuongbtq/launchloop/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))

	r.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	jobHandler := handler.NewJobHandler(deps)
	projectHandler := handler.NewProjectHandler(deps)

	worker := r.Group("/worker", SharedSecretMiddleware(deps.SharedSecret))
	{
		jobs := worker.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.POST("/:id/resubmit", jobHandler.ResubmitJob)
		}

		projects := worker.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.GET("/:id/jobs", jobHandler.ListJobs)
			projects.GET("/:id/activity", projectHandler.ListActivity)
			projects.GET("/:id/experiments", projectHandler.ListExperiments)
		}
	}

	return r
}
