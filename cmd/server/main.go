package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/config"
	"learnhub/internal/database"
	"learnhub/internal/router"
	"learnhub/internal/scheduler"
	"learnhub/pkg/cloudinary"
	"learnhub/pkg/payment"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database, cfg.Server.Env)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	database.SeedAdmin(db, &cfg.Admin)
	if err := database.SeedPlans(db); err != nil {
		log.Fatalf("seed: %v", err)
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
	} else {
		log.Printf("[cloudinary] uploads disabled: set CLOUDINARY_CLOUD_NAME to enable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := router.NewServices(cfg, db, cloud, &payment.StubProvider{})
	if err := svc.Settings.SeedDefaults(); err != nil {
		log.Fatalf("seed settings: %v", err)
	}
	invoiceJob := scheduler.NewInvoiceScheduler(svc.Invoices, svc.Settings, cfg.Affiliate.InvoiceCron)
	if err := invoiceJob.Start(ctx); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	engine := router.Setup(ctx, cfg, db, svc)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Fprintln(os.Stdout, "server stopped")
}
