package handler

import (
	"net/http"

	"nexustax/internal/middleware"
	"nexustax/internal/service"
	"nexustax/pkg/pagination"
	"nexustax/pkg/response"

	"github.com/gin-gonic/gin"
)

type StudyHandler struct {
	studyService       service.StudyService
	transactionService service.TransactionService
}

func NewStudyHandler(studyService service.StudyService, transactionService service.TransactionService) *StudyHandler {
	return &StudyHandler{studyService: studyService, transactionService: transactionService}
}

func (h *StudyHandler) RegisterRoutes(router *gin.RouterGroup) {
	studies := router.Group("/api/studies")
	{
		studies.GET("", middleware.RequirePermission("studies.read"), h.ListStudies)
		studies.GET("/:id", middleware.RequirePermission("studies.read"), h.GetStudy)
		studies.POST("", middleware.RequirePermission("studies.write"), h.CreateStudy)
		studies.PUT("/:id", middleware.RequirePermission("studies.write"), h.UpdateStudy)
		studies.DELETE("/:id", middleware.RequirePermission("studies.write"), h.DeleteStudy)

		studies.GET("/:id/transactions", middleware.RequirePermission("studies.read"), h.ListTransactions)
		studies.POST("/:id/transactions", middleware.RequirePermission("transactions.import"), h.ImportTransactions)
	}
}

// ListStudies returns paginated studies with optional client filter
// @Summary      List studies
// @Tags         studies
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Param        client_id  query     string  false  "Filter by client UUID"
// @Success      200        {object}  response.Response
// @Router       /api/studies [get]
func (h *StudyHandler) ListStudies(c *gin.Context) {
	p := pagination.Parse(c)

	studies, total, err := h.studyService.ListStudies(c.Request.Context(), c.Query("client_id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, studies, p.Page, p.Limit, total))
}

// GetStudy returns a single study with its client preloaded
// @Summary      Get study
// @Tags         studies
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Study ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/studies/{id} [get]
func (h *StudyHandler) GetStudy(c *gin.Context) {
	study, err := h.studyService.GetStudy(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, study))
}

// CreateStudy creates a new study for a client
// @Summary      Create study
// @Tags         studies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateStudyRequest  true  "Study payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/studies [post]
func (h *StudyHandler) CreateStudy(c *gin.Context) {
	var req service.CreateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	study, err := h.studyService.CreateStudy(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, study))
}

// UpdateStudy updates a study's name or description
// @Summary      Update study
// @Tags         studies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Study ID"
// @Param        payload  body  service.UpdateStudyRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id} [put]
func (h *StudyHandler) UpdateStudy(c *gin.Context) {
	var req service.UpdateStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	study, err := h.studyService.UpdateStudy(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, study))
}

// DeleteStudy deletes a study (soft delete)
// @Summary      Delete study
// @Tags         studies
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Study ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id} [delete]
func (h *StudyHandler) DeleteStudy(c *gin.Context) {
	if err := h.studyService.DeleteStudy(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Study deleted successfully"}))
}

// ListTransactions returns paginated imported transactions for a study
// @Summary      List study transactions
// @Tags         studies
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Study ID"
// @Param        page   query     int     false  "Page number (default: 1)"
// @Param        limit  query     int     false  "Items per page (default: 100)"
// @Success      200    {object}  response.Response
// @Router       /api/studies/{id}/transactions [get]
func (h *StudyHandler) ListTransactions(c *gin.Context) {
	p := pagination.Parse(c)

	txs, total, err := h.transactionService.List(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, txs, p.Page, p.Limit, total))
}

// ImportTransactions bulk-imports normalized transaction rows into a study.
// Rows that fail validation are skipped and reported, not fatal.
// @Summary      Import transactions
// @Tags         studies
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                             true  "Study ID"
// @Param        payload  body  service.ImportTransactionsRequest  true  "Transaction rows"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/studies/{id}/transactions [post]
func (h *StudyHandler) ImportTransactions(c *gin.Context) {
	var req service.ImportTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.transactionService.Import(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
