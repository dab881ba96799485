package database

import (
	"errors"
	"fmt"
	"log"

	"learnhub/config"
	"learnhub/internal/domain"
	"learnhub/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig, env string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	level := logger.Error
	if env == "development" {
		level = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		// Unique violations surface as gorm.ErrDuplicatedKey whatever the driver.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Payment{},
		&models.ChildProfile{},
		&models.PurchasedPlan{},
		&models.Affiliate{},
		&models.AffiliateClick{},
		&models.AffiliateInvoice{},
		&models.AffiliateCommission{},
		&models.AffiliateRequest{},
		&models.Notification{},
		&models.AuditLog{},
		&models.SystemSetting{},
	)
}

// SeedAdmin creates the bootstrap admin account if no admin exists yet.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[seed] admin password hash: %v", err)
		return
	}
	admin := &models.User{Name: "Administrator", Email: cfg.Email, PasswordHash: string(hash), Role: domain.RoleAdmin}
	if err := db.Create(admin).Error; err != nil {
		log.Printf("[seed] admin: %v", err)
		return
	}
	log.Printf("[seed] admin user %s created", cfg.Email)
}

var defaultPlans = []models.Plan{
	{Name: "Monthly", Description: "Full access for one month", PriceCents: 999, DurationDays: 30, IsActive: true},
	{Name: "Quarterly", Description: "Full access for three months", PriceCents: 2499, DurationDays: 90, IsActive: true},
	{Name: "Yearly", Description: "Full access for one year", PriceCents: 7999, DurationDays: 365, IsActive: true},
}

// SeedPlans fills an empty catalog with the default plans.
func SeedPlans(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Plan{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	plans := make([]models.Plan, len(defaultPlans))
	copy(plans, defaultPlans)
	if err := db.Create(&plans).Error; err != nil {
		return errors.Join(errors.New("seed plans"), err)
	}
	return nil
}
