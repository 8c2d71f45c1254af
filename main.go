package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/google/uuid"

	"magangku_backend/internals/configs"
	database "magangku_backend/internals/databases"
	"magangku_backend/internals/features/finance/installments/money"
	"magangku_backend/internals/features/finance/installments/scheduler"
	"magangku_backend/internals/features/finance/installments/service"
	helper "magangku_backend/internals/helpers"
	middlewares "magangku_backend/internals/middlewares"
	routes "magangku_backend/internals/route"
	"magangku_backend/internals/seeds"
	"magangku_backend/internals/seeds/programs"
)

func main() {
	configs.LoadEnv()
	cfg := configs.Installment

	// 🌱 `magangku_backend seed` → migrate + seed demo lalu keluar
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		db := configs.InitSeederDB()
		if err := database.Migrate(db); err != nil {
			log.Fatalf("❌ Migrasi gagal: %v", err)
		}
		seeds.RunAllSeeds(db)
		return
	}

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // sesuaikan dengan CIDR Cloudflare jika perlu
		ErrorHandler:            helper.FiberErrorHandler,
	})

	// ⚙️ middleware dasar + performa
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault})) // gzip
	app.Use(etag.New())                                                  // 304 caching

	// 🔎 Request-ID + timing
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		// HTTP timeout guard (selaras dengan statement_timeout di DB)
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🗄️ Store: postgres (default) atau memory (dev/demo)
	var (
		store  service.Store
		regs   service.RegistrationSource
		pingDB func() error
	)
	if cfg.UseMemoryStore {
		log.Println("⚠️ INSTALLMENT_STORE=memory, data hilang saat restart")
		store = service.NewMemoryStore(cfg.LockTimeout)
		memRegs := service.NewMemoryRegistrations()
		if f, err := programs.ReadSeedFile(seeds.ProgramsSeedPath); err != nil {
			log.Printf("⚠️ Seed demo tidak dimuat: %v", err)
		} else if infos, err := f.RegistrationInfos(); err != nil {
			log.Printf("⚠️ Seed demo tidak valid: %v", err)
		} else {
			for _, info := range infos {
				memRegs.Put(info)
			}
		}
		regs = memRegs
	} else {
		// 🔌 DB connect + pool + migrate + warm-up
		database.ConnectDB()
		database.TunePool()
		if err := database.Migrate(database.DB); err != nil {
			log.Fatalf("❌ Migrasi gagal: %v", err)
		}
		database.WarmUpQueries()
		if configs.GetEnv("RUN_SEEDS") == "true" {
			seeds.RunAllSeeds(database.DB)
		}
		store = service.NewGormStore(database.DB, cfg.LockTimeout)
		regs = service.NewGormRegistrations(database.DB)
		pingDB = database.Ping
	}

	// ✅ MIDTRANS (opsional)
	var gateway service.CheckoutGateway
	if cfg.MidtransServerKey != "" {
		gateway = service.NewMidtransCheckout(cfg.MidtransServerKey, cfg.MidtransUseProd)
	}

	svc := service.NewInstallmentService(store, regs, gateway, service.Config{
		ReconcileTolerance: money.FromMinor(cfg.ReconcileTolerance),
	})

	// ⏱ scheduler overdue
	bgCtx, stopBg := context.WithCancel(context.Background())
	defer stopBg()
	(&scheduler.OverdueScheduler{
		Marker:   svc,
		Interval: cfg.OverdueInterval,
		Batch:    cfg.OverdueBatch,
		Workers:  4,
	}).Start(bgCtx)

	// ✅ Routes
	routes.SetupRoutes(app, svc, pingDB)

	// 🔒 Keep-Alive & timeout koneksi server
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + tutup pool DB
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stopBg()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
