// Package api serves the engine's reports over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/controlgap/internal/model"
)

// Service is the engine surface the API needs
type Service interface {
	ComputeCoverage(ctx context.Context, controlID string) (model.CoverageResult, error)
	ComputeFamilyCoverage(ctx context.Context, family string) (model.FamilySummary, error)
	ComputeOrganizationSummary(ctx context.Context) (model.OrganizationSummary, error)
	ComputeComplianceScore(ctx context.Context) (model.ComplianceScoreResult, error)
	ExtractGaps(ctx context.Context, controlID string) (model.GapSet, error)
	GenerateGapDescription(ctx context.Context, controlID, title string, selectedIDs []string) (string, error)
	DraftRemediation(ctx context.Context, controlID, title string, selectedIDs []string) (model.RemediationDraft, error)
}

// CoverageResponse is a coverage result with its display values
type CoverageResponse struct {
	model.CoverageResult
	Rounded model.RoundedCoverage `json:"rounded"`
}

// GapSelection is the request body for description and draft endpoints
type GapSelection struct {
	Title       string   `json:"title"`
	SelectedIDs []string `json:"selected_ids"`
}

// Controller exposes the engine operations
type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// RegisterRoutes registers the API routes
func (cc *Controller) RegisterRoutes(r *gin.RouterGroup) {
	controls := r.Group("/controls/:id")
	{
		controls.GET("/coverage", cc.GetCoverage)
		controls.GET("/gaps", cc.GetGaps)
		controls.POST("/gap-description", cc.DescribeGaps)
		controls.POST("/remediation-drafts", cc.CreateRemediationDraft)
	}
	r.GET("/families/:family/coverage", cc.GetFamilyCoverage)
	r.GET("/summary", cc.GetSummary)
	r.GET("/score", cc.GetScore)
}

// GetCoverage endpoint
func (cc *Controller) GetCoverage(c *gin.Context) {
	result, err := cc.service.ComputeCoverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithEngineError(c, "Failed to compute coverage", err)
		return
	}
	c.JSON(http.StatusOK, CoverageResponse{CoverageResult: result, Rounded: result.Rounded()})
}

// GetFamilyCoverage endpoint
func (cc *Controller) GetFamilyCoverage(c *gin.Context) {
	summary, err := cc.service.ComputeFamilyCoverage(c.Request.Context(), c.Param("family"))
	if err != nil {
		respondWithEngineError(c, "Failed to compute family coverage", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSummary endpoint
func (cc *Controller) GetSummary(c *gin.Context) {
	summary, err := cc.service.ComputeOrganizationSummary(c.Request.Context())
	if err != nil {
		respondWithEngineError(c, "Failed to compute organization summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetScore endpoint
func (cc *Controller) GetScore(c *gin.Context) {
	result, err := cc.service.ComputeComplianceScore(c.Request.Context())
	if err != nil {
		respondWithEngineError(c, "Failed to compute compliance score", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetGaps endpoint
func (cc *Controller) GetGaps(c *gin.Context) {
	set, err := cc.service.ExtractGaps(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithEngineError(c, "Failed to extract gaps", err)
		return
	}
	c.JSON(http.StatusOK, set)
}

// DescribeGaps endpoint
func (cc *Controller) DescribeGaps(c *gin.Context) {
	var sel GapSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid gap selection", err)
		return
	}

	text, err := cc.service.GenerateGapDescription(c.Request.Context(), c.Param("id"), sel.Title, sel.SelectedIDs)
	if err != nil {
		respondWithEngineError(c, "Failed to describe gaps", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": text})
}

// CreateRemediationDraft endpoint
func (cc *Controller) CreateRemediationDraft(c *gin.Context) {
	var sel GapSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid gap selection", err)
		return
	}

	draft, err := cc.service.DraftRemediation(c.Request.Context(), c.Param("id"), sel.Title, sel.SelectedIDs)
	if err != nil {
		respondWithEngineError(c, "Failed to draft remediation", err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}
