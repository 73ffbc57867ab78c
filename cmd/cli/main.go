package main

import (
	"context"
	"os"
	"strings"

	"github.com/zingsurvey/payment-gateway/internal/config"
	"github.com/zingsurvey/payment-gateway/internal/model"
	"github.com/zingsurvey/payment-gateway/internal/repository"
	"github.com/zingsurvey/payment-gateway/internal/services"
	"github.com/zingsurvey/payment-gateway/pkg/logger"
	"github.com/zingsurvey/payment-gateway/pkg/pg"
)

// Usage:
//
//	cli --env=.env --dir=./migrations               run migrations
//	cli --env=.env --seed-admin --password=secret   create the admin user
func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	if hasArg("--seed-admin") {
		seedAdmin(pgConf)
		return
	}

	err = pg.Migrate(pgConf, getMigrationPath())
	if err != nil {
		logger.Error("migration: error running migrations", "error", err)
	}
}

// seedAdmin creates the dashboard admin account from ADMIN_EMAIL and the
// --password flag.
func seedAdmin(pgConf pg.Config) {
	password := argValue("--password")
	if password == "" {
		logger.Error("seed-admin: --password is required")
		return
	}

	db, err := pg.CreateReadWrite(pgConf, pgConf, false)
	if err != nil {
		logger.Error("seed-admin: failed connecting to pg", "error", err)
		return
	}

	hash, err := services.HashPassword(password)
	if err != nil {
		logger.Error("seed-admin: failed to hash password", "error", err)
		return
	}

	adminRepo := repository.NewAdminRepository(db)
	user, err := adminRepo.Create(context.Background(), &model.AdminUser{
		Email:        config.Get().AdminEmail,
		PasswordHash: hash,
	})
	if err != nil {
		logger.Error("seed-admin: failed to create admin user", "error", err)
		return
	}

	logger.Info("seed-admin: admin user created", "email", user.Email)
}

func hasArg(name string) bool {
	for _, v := range os.Args {
		if v == name {
			return true
		}
	}
	return false
}

func argValue(name string) string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, name+"=") {
			return strings.TrimPrefix(v, name+"=")
		}
	}
	return ""
}

func getEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open(".env"); err != nil {
		logger.Error("failed to open the passed env file, got error" + err.Error())
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--dir=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed migrations dir, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	if _, err := os.Open("./migrations"); err != nil {
		logger.Error("failed to open the passed migrations dir, got error" + err.Error())
		return ""
	}
	return "./migrations"
}
