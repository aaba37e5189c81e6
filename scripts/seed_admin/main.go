// Command seed_admin creates the admin credential, or resets its password
// when the username already exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pyqhub/papers-api/internal/models"
	"github.com/pyqhub/papers-api/internal/repository"
	"github.com/pyqhub/papers-api/pkg/config"
	"github.com/pyqhub/papers-api/pkg/database"
	"github.com/pyqhub/papers-api/pkg/logger"
)

const bcryptCost = 12

func main() {
	var (
		username string
		password string
		timeout  time.Duration
	)
	flag.StringVar(&username, "username", os.Getenv("ADMIN_USERNAME"), "Admin username")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Admin password")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Database timeout")
	flag.Parse()

	if username == "" || password == "" {
		log.Fatal("username and password are required (flags or ADMIN_USERNAME/ADMIN_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database, logr)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	repo := repository.NewAdminRepository(db)
	existing, err := repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if err := repo.UpdatePassword(ctx, existing.ID, string(hash), time.Now().UTC()); err != nil {
			log.Fatalf("failed to reset password: %v", err)
		}
		log.Printf("password reset for admin %q", username)
	case errors.Is(err, sql.ErrNoRows):
		admin := &models.Admin{Username: username, PasswordHash: string(hash)}
		if err := repo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin: %v", err)
		}
		log.Printf("admin %q created with id %s", username, admin.ID)
	default:
		log.Fatalf("failed to look up admin: %v", err)
	}
}
