package router

import (
	"context"
	"log"
	"strings"

	"learnhub/config"
	"learnhub/internal/domain"
	"learnhub/internal/handler"
	"learnhub/internal/middleware"
	"learnhub/internal/repository"
	"learnhub/internal/service"
	"learnhub/pkg/cloudinary"
	"learnhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services is the wired service layer, shared with the scheduler.
type Services struct {
	Settings      *service.SettingsService
	Auth          *service.AuthService
	Affiliates    *service.AffiliateService
	Attribution   *service.AttributionService
	Commissions   *service.CommissionService
	Invoices      *service.InvoiceService
	Subscriptions *service.SubscriptionService
	Children      *service.ChildService
}

// NewServices wires repositories into services.
func NewServices(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, provider payment.Provider) *Services {
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	ppRepo := repository.NewPurchasedPlanRepository(db)
	childRepo := repository.NewChildProfileRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	clickRepo := repository.NewAffiliateClickRepository(db)
	commissionRepo := repository.NewAffiliateCommissionRepository(db)
	invoiceRepo := repository.NewAffiliateInvoiceRepository(db)
	requestRepo := repository.NewAffiliateRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	push := service.NewPushService(cfg.Firebase.ServiceAccountPath)
	if push != nil {
		log.Printf("[FCM] Push notifications enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Printf("[FCM] Push notifications disabled: failed to init (check service account file)")
	} else {
		log.Printf("[FCM] Push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable")
	}
	notifier := service.NewNotificationService(notificationRepo, userRepo, push)
	settings := service.NewSettingsService(settingRepo, &cfg.Affiliate)

	affiliates := service.NewAffiliateService(db, affiliateRepo, userRepo, clickRepo, commissionRepo, invoiceRepo, requestRepo, auditRepo, settings, notifier, cfg.Affiliate.BaseURL)
	attribution := service.NewAttributionService(db, affiliateRepo, clickRepo, userRepo, settings, cfg.Affiliate.CookieSecret)
	commissions := service.NewCommissionService(db, affiliateRepo, commissionRepo, auditRepo, notifier)
	invoices := service.NewInvoiceService(db, affiliateRepo, commissionRepo, invoiceRepo, auditRepo, settings, notifier)
	subscriptions := service.NewSubscriptionService(db, planRepo, ppRepo, childRepo, userRepo, paymentRepo, commissions, provider, cfg.Payment.Currency, cfg.Payment.PaymentExpiry)

	return &Services{
		Settings:      settings,
		Auth:          service.NewAuthService(cfg, db, userRepo, auditRepo, affiliates, attribution),
		Affiliates:    affiliates,
		Attribution:   attribution,
		Commissions:   commissions,
		Invoices:      invoices,
		Subscriptions: subscriptions,
		Children:      service.NewChildService(db, childRepo, ppRepo, cloud),
	}
}

// Setup builds the gin engine. Rate limiter cleanup goroutines stop with ctx.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, svc *Services) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	// Skip gin.Logger() to reduce log noise; use gin.Default() if you need request logging
	apiLimiter := middleware.NewRateLimiter(100, 20)
	landingLimiter := middleware.NewRateLimiter(cfg.Server.LandingRateLimit, cfg.Server.LandingRateBurst)
	go apiLimiter.Cleanup(ctx)
	go landingLimiter.Cleanup(ctx)

	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authHandler := handler.NewAuthHandler(svc.Auth, cfg.Affiliate.CookieName)
	signupURL := strings.TrimRight(cfg.Affiliate.BaseURL, "/") + cfg.Affiliate.SignupPath
	landingHandler := handler.NewLandingHandler(svc.Attribution, cfg.Affiliate.CookieName, signupURL, cfg.Server.Env == "production")
	meHandler := handler.NewMeHandler(userRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	planHandler := handler.NewPlanHandler(svc.Subscriptions)
	parentHandler := handler.NewParentHandler(svc.Children, svc.Subscriptions)
	affiliateHandler := handler.NewAffiliateHandler(svc.Affiliates, svc.Attribution, svc.Commissions, svc.Invoices)
	teacherHandler := handler.NewTeacherHandler(userRepo, svc.Subscriptions)
	adminHandler := handler.NewAdminHandler(adminRepo, userRepo, auditRepo, svc.Auth, svc.Affiliates, svc.Commissions, svc.Invoices, svc.Settings)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/sales/:code", middleware.RateLimit(landingLimiter), landingHandler.Visit)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(apiLimiter))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
		}

		api.GET("/plans", planHandler.List)
		api.GET("/plans/:id", planHandler.Get)

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.GetProfile)
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		parent := api.Group("/parent")
		parent.Use(authMw, middleware.RequireRole(domain.RoleParent))
		{
			parent.GET("/dashboard", parentHandler.Dashboard)
			parent.GET("/children", parentHandler.ListChildren)
			parent.POST("/children", parentHandler.CreateChild)
			parent.GET("/children/:id", parentHandler.GetChild)
			parent.PUT("/children/:id", parentHandler.UpdateChild)
			parent.DELETE("/children/:id", parentHandler.DeleteChild)
			parent.POST("/children/:id/avatar", parentHandler.UploadAvatar)
			parent.GET("/children/:id/current-plan", parentHandler.CurrentPlan)
			parent.POST("/purchases", parentHandler.Purchase)
			parent.GET("/purchased-plans", parentHandler.ListPurchased)
			parent.POST("/purchased-plans/:id/assign", parentHandler.Assign)
			parent.POST("/purchased-plans/:id/unassign", parentHandler.Unassign)
		}

		affiliate := api.Group("/affiliate")
		affiliate.Use(authMw, middleware.RequireRole(domain.RoleAffiliate))
		{
			affiliate.GET("/dashboard", affiliateHandler.Dashboard)
			affiliate.GET("/link", affiliateHandler.Link)
			affiliate.PUT("/bank-info", affiliateHandler.UpdateBankInfo)
			affiliate.PUT("/company-info", affiliateHandler.UpdateCompanyInfo)
			affiliate.POST("/contract/sign", affiliateHandler.SignContract)
			affiliate.GET("/clicks", affiliateHandler.Clicks)
			affiliate.GET("/commissions", affiliateHandler.Commissions)
			affiliate.GET("/invoices", affiliateHandler.Invoices)
			affiliate.GET("/invoices/:id", affiliateHandler.Invoice)
			affiliate.GET("/referrals", affiliateHandler.Referrals)
			affiliate.GET("/requests", affiliateHandler.MyRequests)
			affiliate.POST("/requests", affiliateHandler.SubmitRequest)
		}

		teacher := api.Group("/teacher")
		teacher.Use(authMw, middleware.RequireRole(domain.RoleTeacher))
		{
			teacher.GET("/dashboard", teacherHandler.Dashboard)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.POST("/plans", planHandler.Create)
			admin.PUT("/plans/:id", planHandler.Update)
			admin.GET("/affiliates", adminHandler.ListAffiliates)
			admin.GET("/affiliates/:id", adminHandler.GetAffiliate)
			admin.PUT("/affiliates/:id/rates", adminHandler.SetRates)
			admin.PUT("/affiliates/:id/active", adminHandler.SetActive)
			admin.PUT("/affiliates/:id/can-recommend", adminHandler.SetCanRecommend)
			admin.DELETE("/affiliates/:id", adminHandler.DeleteAffiliate)
			admin.GET("/affiliates/:id/commissions", adminHandler.AffiliateCommissions)
			admin.POST("/affiliates/:id/invoices", adminHandler.CreateInvoice)
			admin.POST("/commissions/:id/cancel", adminHandler.CancelCommission)
			admin.GET("/affiliate-requests", adminHandler.ListRequests)
			admin.POST("/affiliate-requests/:id/approve", adminHandler.ApproveRequest)
			admin.POST("/affiliate-requests/:id/reject", adminHandler.RejectRequest)
			admin.GET("/invoices", adminHandler.ListInvoices)
			admin.POST("/invoices/generate", adminHandler.GenerateInvoices)
			admin.GET("/invoices/:id", adminHandler.GetInvoice)
			admin.POST("/invoices/:id/pay", adminHandler.PayInvoice)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}

	return r
}
