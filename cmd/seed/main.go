// Command seed creates the database schema and the baseline auth data:
// the three roles, their permissions, and the initial admin account taken
// from ADMIN_EMAIL / ADMIN_PASSWORD. Safe to run repeatedly.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/iliyamo/store-locator/internal/config"
	"github.com/iliyamo/store-locator/internal/database"
	"github.com/iliyamo/store-locator/internal/repository"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		role_id BIGINT UNSIGNED NOT NULL,
		permission_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (role_id, permission_id),
		FOREIGN KEY (role_id) REFERENCES roles(id),
		FOREIGN KEY (permission_id) REFERENCES permissions(id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		role_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NULL ON UPDATE CURRENT_TIMESTAMP,
		FOREIGN KEY (role_id) REFERENCES roles(id)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS stores (
		store_id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		store_type VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		address_street VARCHAR(255) NOT NULL DEFAULT '',
		address_city VARCHAR(128) NOT NULL DEFAULT '',
		address_state VARCHAR(64) NOT NULL DEFAULT '',
		address_postal_code VARCHAR(32) NOT NULL DEFAULT '',
		address_country VARCHAR(64) NOT NULL DEFAULT 'USA',
		phone VARCHAR(32) NULL,
		hours_mon VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_tue VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_wed VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_thu VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_fri VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_sat VARCHAR(32) NOT NULL DEFAULT 'closed',
		hours_sun VARCHAR(32) NOT NULL DEFAULT 'closed',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NULL ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_stores_coords (latitude, longitude),
		INDEX idx_stores_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS store_services (
		store_id VARCHAR(64) NOT NULL,
		service_name VARCHAR(64) NOT NULL,
		PRIMARY KEY (store_id, service_name),
		FOREIGN KEY (store_id) REFERENCES stores(store_id)
	)`,
}

// rolePermissions maps each role to its capabilities.  Admin gets
// everything; marketers manage store data; viewers only read.
var rolePermissions = map[string][]string{
	"admin":    {"read:stores", "write:stores", "delete:stores", "write:users"},
	"marketer": {"read:stores", "write:stores"},
	"viewer":   {"read:stores"},
}

func main() {
	log.Println("Starting seed...")

	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}
	log.Println("Schema ensured")

	if err := seedRoles(ctx, db); err != nil {
		log.Fatalf("roles: %v", err)
	}
	log.Println("Roles and permissions ensured")

	if err := seedAdmin(ctx, db, cfg); err != nil {
		log.Fatalf("admin: %v", err)
	}

	log.Println("Seed completed successfully")
}

func seedRoles(ctx context.Context, db *sql.DB) error {
	for role, perms := range rolePermissions {
		if _, err := db.ExecContext(ctx,
			"INSERT IGNORE INTO roles (name) VALUES (?)", role); err != nil {
			return err
		}
		for _, perm := range perms {
			if _, err := db.ExecContext(ctx,
				"INSERT IGNORE INTO permissions (name) VALUES (?)", perm); err != nil {
				return err
			}
			if _, err := db.ExecContext(ctx, `INSERT IGNORE INTO role_permissions (role_id, permission_id)
				SELECT r.id, p.id FROM roles r, permissions p WHERE r.name=? AND p.name=?`,
				role, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *sql.DB, cfg config.Config) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set; skipping admin account")
		return nil
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)

	if _, err := users.GetByEmail(ctx, email); err == nil {
		log.Printf("Admin %s already exists", email)
		return nil
	} else if err != sql.ErrNoRows {
		return err
	}

	admin, err := roles.GetByName(ctx, "admin")
	if err != nil {
		return err
	}
	id, err := users.Create(ctx, email, password, "Administrator", admin.ID, cfg.BcryptCost)
	if err != nil {
		return err
	}
	log.Printf("Admin %s created (id=%d)", email, id)
	return nil
}
