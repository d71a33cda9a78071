package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/service"
)

const usage = `usage: storefront-cli <command> [flags]

commands:
  migrate     create missing tables
  add-admin   create an administrator account
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "migrate":
		fs, dsn, path := dbFlags("migrate")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		gdb, err := openDB(ctx, *dsn, *path)
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		if err := db.Migrate(ctx, gdb); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "add-admin":
		fs, dsn, path := dbFlags("add-admin")
		email := fs.String("email", "", "administrator email")
		password := fs.String("password", "", "administrator password")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}

		normalized, err := service.NormalizeEmail(*email)
		if err != nil {
			return err
		}
		if len(*password) < service.MinPasswordLength {
			return fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
		}

		gdb, err := openDB(ctx, *dsn, *path)
		if err != nil {
			return err
		}
		defer closeDB(gdb)

		if err := db.Migrate(ctx, gdb); err != nil {
			return err
		}
		created, err := db.SeedAdmin(ctx, gdb, normalized, *password)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(out, "user %s already exists\n", normalized)
			return nil
		}
		fmt.Fprintf(out, "admin %s created\n", normalized)
		return nil

	default:
		return errUsage
	}
}

func dbFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dsn := fs.String("database-url", os.Getenv("DATABASE_URL"), "postgres DSN; empty selects sqlite")
	path := fs.String("db", config.EnvDefault("DB_PATH", "storefront.db"), "sqlite file path")
	return fs, dsn, path
}

func openDB(ctx context.Context, dsn, path string) (*gorm.DB, error) {
	return db.Open(ctx, dsn, path)
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
