package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"

	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
	httpRouter "github.com/cipa-correagro/notas-credito/internal/interfaces/http"
	"github.com/cipa-correagro/notas-credito/pkg/config"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando dashboard")

	ctx := context.Background()
	db, err := sqlstore.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacén")
	}
	defer db.Close()
	log.Info().Str("dialect", string(db.Dialect)).Msg("almacén listo")

	dashboardUC := dashboard.NewUseCase(dashboard.Repositories{
		Notes:        sqlstore.NewCreditNoteRepository(db),
		Applications: sqlstore.NewApplicationRepository(db),
		Lines:        sqlstore.NewInvoiceLineRepository(db),
		Rejected:     sqlstore.NewRejectedLineRepository(db),
		Types:        sqlstore.NewInventoryTypeRepository(db),
		Runs:         sqlstore.NewIngestionRunRepository(db),
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Dashboard: dashboardUC,
		Schema:    func(ctx context.Context) (int, error) { return sqlstore.SchemaVersion(ctx, db) },
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
