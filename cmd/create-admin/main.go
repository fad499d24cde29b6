// Command create-admin provisions (or resets) a back-office account.
// Admins cannot register through the API, so operators run this once per
// account:
//
//	create-admin -username admin -password secret
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/landport/freight-api/internal/config"
	"github.com/landport/freight-api/internal/database"
	"github.com/landport/freight-api/internal/repository"
	"github.com/landport/freight-api/internal/utils"
)

func main() {
	username := flag.String("username", "", "back-office login name")
	password := flag.String("password", "", "plaintext password to hash and store")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("usage: create-admin -username <name> -password <password>")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	hash, err := utils.HashPassword(*password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	u, err := repository.NewUserRepo(db).UpsertAdmin(ctx, *username, hash)
	if err != nil {
		log.Fatalf("upsert admin: %v", err)
	}
	log.Printf("admin account ready: id=%d username=%s role=%s", u.ID, *username, u.Role)
}
