package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nhle/company-tasks/internal/filter"
	"github.com/nhle/company-tasks/internal/model"
)

type companyRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

type profileRequest struct {
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CompanyID *string `json:"company_id"`
}

// listCompanies returns the companies visible to the caller. Admins may
// pass ?all=true to include inactive companies.
func (h *handlers) listCompanies(c echo.Context) error {
	id := identity(c)
	activeOnly := !(id.IsAdmin() && c.QueryParam("all") == "true")

	companies, err := h.store.ListCompanies(c.Request().Context(), activeOnly)
	if err != nil {
		return fail(c, h.logger, err)
	}
	vis, err := filter.Visible(companies, nil, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, vis.Companies)
}

func (h *handlers) createCompany(c echo.Context) error {
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	var name string
	if req.Name != nil {
		name = *req.Name
	}
	company, err := h.store.CreateCompany(c.Request().Context(), model.Company{Name: name})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, company)
}

// updateCompany renames a company and/or toggles whether it is active.
func (h *handlers) updateCompany(c echo.Context) error {
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	if req.Name != nil {
		if err := h.store.UpdateCompany(ctx, model.Company{ID: id, Name: *req.Name}); err != nil {
			return fail(c, h.logger, err)
		}
	}
	if req.Active != nil {
		if err := h.store.SetCompanyActive(ctx, id, *req.Active); err != nil {
			return fail(c, h.logger, err)
		}
	}

	company, err := h.store.GetCompany(ctx, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, company)
}

func (h *handlers) deleteCompany(c echo.Context) error {
	if err := h.store.DeleteCompany(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listProfiles(c echo.Context) error {
	profiles, err := h.store.ListProfiles(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *handlers) createProfile(c echo.Context) error {
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.logger, badRequest(err))
	}
	profile, err := h.store.CreateProfile(c.Request().Context(), model.Profile{
		UserID:    req.UserID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      model.Role(req.Role),
		CompanyID: req.CompanyID,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *handlers) deleteProfile(c echo.Context) error {
	if err := h.store.DeleteProfile(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
