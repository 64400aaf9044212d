//go:build ignore

package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/hugh/go-helpdesk/internal/database"
	"github.com/hugh/go-helpdesk/internal/database/models"
	"github.com/hugh/go-helpdesk/pkg/config"
	"github.com/hugh/go-helpdesk/pkg/crypto"
	"github.com/hugh/go-helpdesk/pkg/util"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	systemID, err := uuid.Parse(cfg.Aircall.SystemUserID)
	if err != nil {
		log.Fatalf("invalid AIRCALL_SYSTEM_USER_ID: %v", err)
	}

	// The system account owns call-derived tickets and cannot log in:
	// its password is random and never printed.
	secret, err := crypto.GenerateToken()
	if err != nil {
		log.Fatalf("failed to generate system password: %v", err)
	}
	system := models.User{
		Base:          models.Base{ID: systemID},
		Email:         "system@helpdesk.local",
		Password:      secret,
		Name:          "System",
		Role:          models.RoleSystem,
		IsActive:      true,
		EmailVerified: true,
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&system)
	if res.Error != nil {
		log.Fatalf("failed to create system user: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		fmt.Printf("System user already exists: %s\n", systemID)
	} else {
		fmt.Printf("System user created: %s\n", systemID)
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}

	var existing models.User
	err = db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		fmt.Printf("Admin user already exists: %s\n", email)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("failed to look up admin user: %v", err)
	}

	admin := models.User{
		Email:         email,
		Password:      password,
		Name:          "Admin",
		Role:          models.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", admin.Email)
}
