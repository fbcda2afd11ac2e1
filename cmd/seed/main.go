// Command seed provisions the first super admin. Every later account enters
// through an invitation, so a fresh deployment runs this once.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/config"
	"accessflow.dev/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		email    = flag.String("email", os.Getenv("ACCESSFLOW_SEED_EMAIL"), "super admin email")
		name     = flag.String("name", "Super Admin", "super admin display name")
		password = flag.String("password", os.Getenv("ACCESSFLOW_SEED_PASSWORD"), "super admin password")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or ACCESSFLOW_SEED_EMAIL / ACCESSFLOW_SEED_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("ACCESSFLOW_PG_DSN is required")
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := store.Users(ctx)
	existing, err := users.FindByRole(ctx, access.RoleSuperAdmin)
	if err == nil {
		log.Printf("super admin already present: %s", existing.Email)
		return
	}
	if !errors.Is(err, access.ErrNotFound) {
		log.Fatalf("lookup super admin: %v", err)
	}

	hash, err := access.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// MFA starts unenrolled; the first login routes into method selection.
	u := &access.User{
		Name:         *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         access.RoleSuperAdmin,
		Status:       access.StatusActive,
		MFA:          access.MFAState{Method: access.MFANone},
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create super admin: %v", err)
	}
	log.Printf("created super admin %s (%s)", u.Email, u.ID)
}
