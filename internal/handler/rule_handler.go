package handler

import (
	"net/http"

	"nexustax/internal/middleware"
	"nexustax/internal/service"
	"nexustax/pkg/pagination"
	"nexustax/pkg/response"

	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	ruleService service.RuleService
}

func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/nexus-rules")
	{
		rules.GET("", middleware.RequirePermission("rules.read"), h.ListRules)
		rules.POST("", middleware.RequirePermission("rules.write"), h.CreateRule)
		rules.PUT("/:id", middleware.RequirePermission("rules.write"), h.UpdateRule)
		rules.DELETE("/:id", middleware.RequirePermission("rules.write"), h.DeleteRule)
	}

	// Reference tables share the nexus-rule permissions
	ref := router.Group("/api/reference")
	{
		ref.GET("/tax-rates", middleware.RequirePermission("rules.read"), h.ListTaxRates)
		ref.PUT("/tax-rates", middleware.RequirePermission("rules.write"), h.UpsertTaxRate)
		ref.GET("/penalty-rules", middleware.RequirePermission("rules.read"), h.ListPenaltyRules)
		ref.PUT("/penalty-rules", middleware.RequirePermission("rules.write"), h.UpsertPenaltyRule)
		ref.GET("/vda-programs", middleware.RequirePermission("rules.read"), h.ListVDAPrograms)
		ref.PUT("/vda-programs", middleware.RequirePermission("rules.write"), h.UpsertVDAProgram)
	}
}

// ListRules returns paginated nexus rules ordered by jurisdiction
// @Summary      List nexus rules
// @Tags         rules
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default: 1)"
// @Param        limit  query     int  false  "Items per page (default: 50)"
// @Success      200    {object}  response.Response
// @Router       /api/nexus-rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	p := pagination.Parse(c)

	rules, total, err := h.ruleService.ListRules(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, p.Page, p.Limit, total))
}

// CreateRule creates a new nexus rule for a jurisdiction
// @Summary      Create nexus rule
// @Tags         rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRuleRequest  true  "Rule payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/nexus-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule replaces an existing nexus rule
// @Summary      Update nexus rule
// @Tags         rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "Rule ID"
// @Param        payload  body  service.CreateRuleRequest  true  "Rule payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/nexus-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule deletes a nexus rule
// @Summary      Delete nexus rule
// @Tags         rules
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/nexus-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Nexus rule deleted successfully"}))
}

// ListTaxRates returns the tax rate table
func (h *RuleHandler) ListTaxRates(c *gin.Context) {
	rates, err := h.ruleService.ListTaxRates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rates))
}

// UpsertTaxRate creates or replaces a jurisdiction's tax rate
func (h *RuleHandler) UpsertTaxRate(c *gin.Context) {
	var req service.UpsertTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rate, err := h.ruleService.UpsertTaxRate(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// ListPenaltyRules returns the interest/penalty rule table
func (h *RuleHandler) ListPenaltyRules(c *gin.Context) {
	rules, err := h.ruleService.ListPenaltyRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// UpsertPenaltyRule creates or replaces a jurisdiction's interest/penalty rule
func (h *RuleHandler) UpsertPenaltyRule(c *gin.Context) {
	var req service.UpsertPenaltyRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.UpsertPenaltyRule(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// ListVDAPrograms returns the VDA program table
func (h *RuleHandler) ListVDAPrograms(c *gin.Context) {
	programs, err := h.ruleService.ListVDAPrograms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, programs))
}

// UpsertVDAProgram creates or replaces a jurisdiction's VDA program terms
func (h *RuleHandler) UpsertVDAProgram(c *gin.Context) {
	var req service.UpsertVDAProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	program, err := h.ruleService.UpsertVDAProgram(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, program))
}

// currentUserID reads the authenticated user's ID from the gin context.
// Returns "" when unset; audit entries then attribute to "System".
func currentUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
