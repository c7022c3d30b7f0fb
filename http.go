package gateway

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RouteGuard adapts gate decisions to HTTP routing for hosts that serve
// the shell themselves. Handlers for the non-redirect outcomes are
// overridable so a host can plug in its own views.
type RouteGuard struct {
	gate               *Gate
	Logger             Logger
	NotFoundHandler    func(c router.Context) error
	PlaceholderHandler func(c router.Context) error
	MaintenanceHandler func(c router.Context) error
}

func NewRouteGuard(gate *Gate) *RouteGuard {
	g := &RouteGuard{
		gate:   gate,
		Logger: defLogger{},
	}

	g.NotFoundHandler = g.defaultNotFoundHandler
	g.PlaceholderHandler = g.defaultPlaceholderHandler
	g.MaintenanceHandler = g.defaultMaintenanceHandler

	return g
}

// Protected gates a route behind the session. Redirect outcomes use
// See Other for non-GET methods so a form post lands on the login page
// as a GET.
func (g *RouteGuard) Protected(route Route) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			d := g.gate.Evaluate(c.Context(), Route{
				Path:          route.Path,
				AdminRequired: route.AdminRequired,
			})

			switch d.Kind {
			case DecisionRender:
				return hf(c)

			case DecisionPlaceholder:
				return g.PlaceholderHandler(c)

			case DecisionMaintenance:
				return g.MaintenanceHandler(c)

			case DecisionNotFound:
				g.Logger.Info("admin route hidden from non-admin session", "path", c.Path())
				return g.NotFoundHandler(c)

			case DecisionRedirectLogin, DecisionRedirectStart:
				return g.redirect(c, d.Target)

			default:
				return g.NotFoundHandler(c)
			}
		}
	}
}

// LoginRoute gates the login page itself: an already authenticated
// visitor is sent to the landing route unless the session came from
// anonymous auto login.
func (g *RouteGuard) LoginRoute() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			d := g.gate.EvaluateLogin(c.Context())

			switch d.Kind {
			case DecisionRender:
				return hf(c)
			case DecisionPlaceholder:
				return g.PlaceholderHandler(c)
			default:
				return g.redirect(c, d.Target)
			}
		}
	}
}

func (g *RouteGuard) redirect(c router.Context, target string) error {
	return c.SetHeader("Location", target).NoContent(g.redirectStatus(c))
}

func (g *RouteGuard) redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

func (g *RouteGuard) defaultNotFoundHandler(c router.Context) error {
	return c.Status(http.StatusNotFound).Send([]byte("Page not found"))
}

func (g *RouteGuard) defaultPlaceholderHandler(c router.Context) error {
	return c.Status(http.StatusOK).Send([]byte("Loading..."))
}

func (g *RouteGuard) defaultMaintenanceHandler(c router.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{
		"message": g.gate.store.State().Maintenance.Message,
	})
}
