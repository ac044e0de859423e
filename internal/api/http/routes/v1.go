package routes

import (
	"github.com/gin-gonic/gin"

	projhttp "github.com/GoSim-25-26J-441/codegen-backend/internal/projects/http"
)

type V1Deps struct {
	Projects *projhttp.Handler
	Auth     gin.HandlerFunc
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	if dep.Auth != nil {
		api.Use(dep.Auth)
	}

	projectsGroup := api.Group("/projects")
	dep.Projects.Register(projectsGroup)
}
