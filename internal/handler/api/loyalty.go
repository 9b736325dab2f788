package api

import (
	"net/http"

	resdto "bookstore/internal/handler/dto/response"
	"bookstore/internal/handler/httperr"
	"bookstore/internal/handler/middleware"
	"bookstore/internal/usecase/commands"
	"bookstore/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type LoyaltyHandler struct {
	q queries.LoyaltyQueries
}

func NewLoyaltyHandler(q queries.LoyaltyQueries) *LoyaltyHandler {
	return &LoyaltyHandler{q: q}
}

// @Summary Loyalty status
// @Description Completed order count, available grants, and distance to the next grant
// @Tags loyalty
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.LoyaltyStatusResponse
// @Failure 401 {object} map[string]string
// @Router /loyalty/status [get]
func (h *LoyaltyHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, commands.ErrAuthenticationFailed, "Unauthorized", nil)
		return
	}

	view, err := h.q.GetStatus(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromLoyaltyStatus(view))
}

// @Summary List loyalty grants
// @Description All grants issued to the caller, including consumed ones
// @Tags loyalty
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /loyalty/grants [get]
func (h *LoyaltyHandler) ListGrants(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, commands.ErrAuthenticationFailed, "Unauthorized", nil)
		return
	}

	grants, err := h.q.ListGrants(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resdto.FromGrantList(grants)})
}

// @Summary Loyalty eligibility
// @Description Whether the caller has an unused grant available for checkout
// @Tags loyalty
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.LoyaltyEligibilityResponse
// @Failure 401 {object} map[string]string
// @Router /loyalty/eligibility [get]
func (h *LoyaltyHandler) Eligibility(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, commands.ErrAuthenticationFailed, "Unauthorized", nil)
		return
	}

	eligible, err := h.q.CheckEligibility(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.LoyaltyEligibilityResponse{Eligible: eligible})
}
