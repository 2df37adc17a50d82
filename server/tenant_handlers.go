package server

import (
	"net/http"

	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TenantListHandler returns the restaurants the owner can switch between and
// records them as the known list for membership checks. Non-owner roles have
// a fixed scope and no list.
func (s *Server) TenantListHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		user := s.store.User()
		if !user.IsOwner() {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "tenant switching is owner-only"})
		}

		list, err := s.backend.ListTenants(c.Request().Context())
		if err != nil {
			log.Error().Err(err).Msg("tenant list fetch failed")
			return c.JSON(http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		}

		s.store.Tenants().SetTenants(list)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"tenants":  list,
			"selected": s.store.Tenants().Selected(),
		})
	}
}

// TenantSelectHandler records the owner's restaurant selection. Selecting an
// id outside the known list changes nothing and reports failure.
func (s *Server) TenantSelectHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			TenantID string `json:"tenantId"`
		}
		if err := c.Bind(&req); err != nil || req.TenantID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "tenantId is required"})
		}

		if !s.store.Tenants().Select(req.TenantID) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "unknown tenant"})
		}
		return c.JSON(http.StatusOK, map[string]string{"selected": req.TenantID})
	}
}

// TenantCurrentHandler returns the detail of the currently scoped
// restaurant.
func (s *Server) TenantCurrentHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		tenant, err := s.backend.CurrentTenant(c.Request().Context())
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "no tenant in scope"})
			}
			log.Error().Err(err).Msg("current tenant fetch failed")
			return c.JSON(http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"tenant": tenant})
	}
}
