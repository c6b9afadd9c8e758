package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
	"github.com/cipa-correagro/notas-credito/internal/application/dto"
	"github.com/cipa-correagro/notas-credito/pkg/jwt"
)

// SchemaChecker informa la versión de esquema del almacén (health).
type SchemaChecker func(ctx context.Context) (int, error)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Dashboard *dashboard.UseCase
	Schema    SchemaChecker
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Schema))

	// Todo /api requiere Bearer Token y un rol del dashboard
	api := app.Group("/api",
		AuthMiddleware(deps.JWTSecret),
		RequireRole(jwt.RoleAdmin, jwt.RoleAnalyst, jwt.RoleAuditor),
	)

	notes := NewCreditNoteHandler(deps.Dashboard)
	cn := api.Group("/credit-notes")
	cn.Get("/", notes.List)
	cn.Get("/by-state", notes.ByState)
	cn.Get("/stats", notes.Stats)
	cn.Get("/:id", notes.GetByID)
	api.Get("/applications/:number", notes.ApplicationsByNumber)

	invoices := NewInvoiceHandler(deps.Dashboard)
	inv := api.Group("/invoices")
	inv.Get("/", invoices.List)
	inv.Get("/daily", invoices.Daily)

	reports := NewReportHandler(deps.Dashboard)
	api.Get("/rejections/summary", reports.RejectionSummary)
	api.Get("/inventory-types/new", reports.NewInventoryTypes)
	api.Get("/runs", reports.Runs)
}

func healthHandler(schema SchemaChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if schema == nil {
			return c.JSON(dto.HealthResponse{Status: "ok"})
		}
		v, err := schema(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "degraded"})
		}
		return c.JSON(dto.HealthResponse{Status: "ok", SchemaVersion: v})
	}
}
