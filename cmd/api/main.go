package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/lavanflow/ncf-api/internal/application/dto"
	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain/repository"
	"github.com/lavanflow/ncf-api/internal/infrastructure/memory"
	"github.com/lavanflow/ncf-api/internal/infrastructure/postgres"
	infraredis "github.com/lavanflow/ncf-api/internal/infrastructure/redis"
	httpRouter "github.com/lavanflow/ncf-api/internal/interfaces/http"
	"github.com/lavanflow/ncf-api/pkg/config"
	"github.com/lavanflow/ncf-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo repository.VoucherRangeRepository
	if cfg.Storage.Memory() {
		log.Warn().Msg("almacén en memoria: los rangos y NCF emitidos se pierden al reiniciar")
		repo = memory.NewVoucherRangeRepository()
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		repo = postgres.NewVoucherRangeRepository(pool)
	}

	// Sin Redis la serialización entre instancias queda solo en la actualización condicional.
	var locker vouchers.BurnLocker
	if cfg.Redis.Enabled() {
		client, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		locker = infraredis.NewLocker(client, cfg.Voucher.LockTTL)
	}

	allocator := vouchers.NewAllocator(repo, locker, log, vouchers.Config{
		MaxBurnAttempts: cfg.Voucher.MaxBurnAttempts,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "NCF API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{Status: "ok", Storage: cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Allocator: allocator,
		Logger:    log,
		JWTSecret: cfg.JWT.Secret,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("servidor HTTP finalizado")
	}
	log.Info().Msg("aplicación detenida")
}
