package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleGP          = "gp"
	RoleDoctor      = "doctor"
	RolePA          = "pa"
	RolePatient     = "patient"
)

// Named capabilities checked by route middleware.
const (
	PermListAppointment   = "listAppointment"
	PermViewAppointment   = "viewAppointment"
	PermUpdateAppointment = "updateAppointment"
	PermAllocateDoctor    = "allocateDoctor"
)

// rolePermissions grants capabilities per role. Admin is handled separately
// and holds every permission.
var rolePermissions = map[string]map[string]bool{
	RoleCoordinator: {
		PermListAppointment:   true,
		PermViewAppointment:   true,
		PermUpdateAppointment: true,
		PermAllocateDoctor:    true,
	},
	RoleGP:     {PermListAppointment: true, PermViewAppointment: true},
	RoleDoctor: {PermListAppointment: true, PermViewAppointment: true},
	RolePA:     {PermListAppointment: true, PermViewAppointment: true},
}

// HasPermission reports whether any of roles grants perm.
func HasPermission(roles []string, perm string) bool {
	for _, r := range roles {
		if r == RoleAdmin || rolePermissions[r][perm] {
			return true
		}
	}
	return false
}

// RequirePermission returns middleware that rejects actors lacking perm.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasPermission(RolesFromContext(c.Request().Context()), perm) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required permission: %s", perm))
			}
			return next(c)
		}
	}
}
