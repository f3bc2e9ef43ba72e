package handler

import (
	"net/http"

	"nexustax/internal/middleware"
	"nexustax/internal/service"
	"nexustax/pkg/pagination"
	"nexustax/pkg/response"

	"github.com/gin-gonic/gin"
)

type CalculationHandler struct {
	calcService service.CalculationService
	vdaService  service.VDAService
}

func NewCalculationHandler(calcService service.CalculationService, vdaService service.VDAService) *CalculationHandler {
	return &CalculationHandler{calcService: calcService, vdaService: vdaService}
}

func (h *CalculationHandler) RegisterRoutes(router *gin.RouterGroup) {
	studies := router.Group("/api/studies")
	{
		studies.POST("/:id/calculate", middleware.RequirePermission("calculations.run"), h.RunCalculation)
		studies.GET("/:id/results", middleware.RequirePermission("studies.read"), h.GetResults)
		studies.GET("/:id/results/:jurisdiction", middleware.RequirePermission("studies.read"), h.GetJurisdictionResults)
		studies.GET("/:id/runs", middleware.RequirePermission("studies.read"), h.ListRuns)
		studies.GET("/:id/vda/:jurisdiction", middleware.RequirePermission("studies.read"), h.CompareVDA)
	}
}

// RunCalculation executes the nexus and liability engine over a study's
// imported transactions, replacing any prior results.
// @Summary      Run calculation
// @Tags         calculations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true   "Study ID"
// @Param        payload  body  service.RunCalculationRequest  false  "Run options"
// @Success      200  {object}  response.Response{data=service.CalculationSummary}
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id}/calculate [post]
func (h *CalculationHandler) RunCalculation(c *gin.Context) {
	var req service.RunCalculationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	summary, err := h.calcService.Run(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetResults returns all jurisdiction-year results for a study
// @Summary      Get calculation results
// @Tags         calculations
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Study ID"
// @Success      200  {object}  response.Response
// @Router       /api/studies/{id}/results [get]
func (h *CalculationHandler) GetResults(c *gin.Context) {
	results, err := h.calcService.GetResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// GetJurisdictionResults returns one jurisdiction's year-by-year results
// @Summary      Get jurisdiction results
// @Tags         calculations
// @Security     BearerAuth
// @Produce      json
// @Param        id            path  string  true  "Study ID"
// @Param        jurisdiction  path  string  true  "Two-letter state code"
// @Success      200  {object}  response.Response
// @Router       /api/studies/{id}/results/{jurisdiction} [get]
func (h *CalculationHandler) GetJurisdictionResults(c *gin.Context) {
	results, err := h.calcService.GetJurisdictionResults(c.Request.Context(), c.Param("id"), c.Param("jurisdiction"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// ListRuns returns a study's calculation run history
// @Summary      List calculation runs
// @Tags         calculations
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Study ID"
// @Param        page   query     int     false  "Page number (default: 1)"
// @Param        limit  query     int     false  "Items per page (default: 20)"
// @Success      200    {object}  response.Response
// @Router       /api/studies/{id}/runs [get]
func (h *CalculationHandler) ListRuns(c *gin.Context) {
	p := pagination.Parse(c)

	runs, total, err := h.calcService.ListRuns(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, runs, p.Page, p.Limit, total))
}

// CompareVDA contrasts standard exposure against voluntary disclosure
// terms for one jurisdiction, using the study's stored results.
// @Summary      Compare VDA scenario
// @Tags         calculations
// @Security     BearerAuth
// @Produce      json
// @Param        id            path   string  true   "Study ID"
// @Param        jurisdiction  path   string  true   "Two-letter state code"
// @Param        as_of         query  string  false  "Disclosure date YYYY-MM-DD (default: today)"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id}/vda/{jurisdiction} [get]
func (h *CalculationHandler) CompareVDA(c *gin.Context) {
	comparison, err := h.vdaService.Compare(c.Request.Context(), c.Param("id"), c.Param("jurisdiction"), c.Query("as_of"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, comparison))
}
