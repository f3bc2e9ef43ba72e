package handler

import (
	"net/http"

	"nexustax/internal/middleware"
	"nexustax/internal/service"
	"nexustax/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExposureHandler struct {
	exposureService service.ExposureService
}

func NewExposureHandler(exposureService service.ExposureService) *ExposureHandler {
	return &ExposureHandler{exposureService: exposureService}
}

func (h *ExposureHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/studies")
	group.Use(middleware.RequirePermission("dashboard.read"))
	{
		group.GET("/:id/exposure", h.GetExposureSummary)
	}
}

// GetExposureSummary returns a study's cross-jurisdiction exposure rollup
// @Summary      Get exposure summary
// @Tags         exposure
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Study ID"
// @Success      200  {object}  response.Response{data=model.ExposureSummary}
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id}/exposure [get]
func (h *ExposureHandler) GetExposureSummary(c *gin.Context) {
	summary, err := h.exposureService.GetExposureSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
