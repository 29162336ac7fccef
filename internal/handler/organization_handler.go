package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/langschool-api/internal/dto"
	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/service"
	"github.com/noah-isme/langschool-api/pkg/response"
)

// OrganizationHandler exposes the region, school and branch hierarchy.
type OrganizationHandler struct {
	orgs *service.OrganizationService
}

// NewOrganizationHandler constructs an OrganizationHandler.
func NewOrganizationHandler(orgs *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

func orgFilter(c *gin.Context, parentKey string) models.OrganizationFilter {
	filter := models.OrganizationFilter{Search: strings.TrimSpace(c.Query("search"))}
	if parentKey != "" {
		filter.ParentID = c.Query(parentKey)
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}

// ListRegions godoc
// @Summary List regions
// @Tags Organization
// @Produce json
// @Param search query string false "Search by name or code"
// @Success 200 {object} response.Envelope
// @Router /regions [get]
func (h *OrganizationHandler) ListRegions(c *gin.Context) {
	regions, pagination, err := h.orgs.ListRegions(c.Request.Context(), orgFilter(c, ""))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regions, pagination)
}

// GetRegion godoc
// @Summary Get region
// @Tags Organization
// @Param id path string true "Region ID"
// @Success 200 {object} response.Envelope
// @Router /regions/{id} [get]
func (h *OrganizationHandler) GetRegion(c *gin.Context) {
	region, err := h.orgs.GetRegion(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, region, nil)
}

// CreateRegion godoc
// @Summary Create region
// @Tags Organization
// @Accept json
// @Param payload body dto.RegionRequest true "Region payload"
// @Success 201 {object} response.Envelope
// @Router /regions [post]
func (h *OrganizationHandler) CreateRegion(c *gin.Context) {
	var req dto.RegionRequest
	if !bindJSON(c, &req, "invalid region payload") {
		return
	}
	region, err := h.orgs.CreateRegion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, region)
}

// DeleteRegion godoc
// @Summary Delete region
// @Tags Organization
// @Param id path string true "Region ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /regions/{id} [delete]
func (h *OrganizationHandler) DeleteRegion(c *gin.Context) {
	if err := h.orgs.DeleteRegion(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSchools godoc
// @Summary List schools
// @Tags Organization
// @Param regionId query string false "Region ID"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *OrganizationHandler) ListSchools(c *gin.Context) {
	schools, pagination, err := h.orgs.ListSchools(c.Request.Context(), orgFilter(c, "regionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// GetSchool godoc
// @Summary Get school
// @Tags Organization
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *OrganizationHandler) GetSchool(c *gin.Context) {
	school, err := h.orgs.GetSchool(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// CreateSchool godoc
// @Summary Create school
// @Tags Organization
// @Accept json
// @Param payload body dto.SchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *OrganizationHandler) CreateSchool(c *gin.Context) {
	var req dto.SchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.orgs.CreateSchool(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// DeleteSchool godoc
// @Summary Delete school
// @Tags Organization
// @Param id path string true "School ID"
// @Success 204
// @Router /schools/{id} [delete]
func (h *OrganizationHandler) DeleteSchool(c *gin.Context) {
	if err := h.orgs.DeleteSchool(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListBranches godoc
// @Summary List branches
// @Tags Organization
// @Param schoolId query string false "School ID"
// @Success 200 {object} response.Envelope
// @Router /branches [get]
func (h *OrganizationHandler) ListBranches(c *gin.Context) {
	branches, pagination, err := h.orgs.ListBranches(c.Request.Context(), orgFilter(c, "schoolId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, pagination)
}

// GetBranch godoc
// @Summary Get branch
// @Tags Organization
// @Param id path string true "Branch ID"
// @Success 200 {object} response.Envelope
// @Router /branches/{id} [get]
func (h *OrganizationHandler) GetBranch(c *gin.Context) {
	branch, err := h.orgs.GetBranch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branch, nil)
}

// CreateBranch godoc
// @Summary Create branch
// @Tags Organization
// @Accept json
// @Param payload body dto.BranchRequest true "Branch payload"
// @Success 201 {object} response.Envelope
// @Router /branches [post]
func (h *OrganizationHandler) CreateBranch(c *gin.Context) {
	var req dto.BranchRequest
	if !bindJSON(c, &req, "invalid branch payload") {
		return
	}
	branch, err := h.orgs.CreateBranch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// DeleteBranch godoc
// @Summary Delete branch
// @Tags Organization
// @Param id path string true "Branch ID"
// @Success 204
// @Router /branches/{id} [delete]
func (h *OrganizationHandler) DeleteBranch(c *gin.Context) {
	if err := h.orgs.DeleteBranch(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
