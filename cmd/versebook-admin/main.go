// Package main is the entry point for the Versebook admin CLI.
// It talks to the document store directly, bypassing the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/auth"
	cachemem "github.com/versebook/versebook/internal/cache/memory"
	"github.com/versebook/versebook/internal/config"
	"github.com/versebook/versebook/internal/domain"
	"github.com/versebook/versebook/internal/repository/factory"
	"github.com/versebook/versebook/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Versebook Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "user":
		if len(os.Args) > 2 && (os.Args[2] == "create" || os.Args[2] == "reset-password") {
			runUserCommand(os.Args[2], os.Args[3:])
			return
		}
		runResource(service.UserDefinition(), os.Args[2:])

	case "link":
		runResource(service.LinkDefinition(), os.Args[2:])

	case "poem":
		runResource(service.PoemDefinition(), os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runResource dispatches list/get/delete/restore for one resource type.
func runResource(def service.Definition, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Missing subcommand for %s\n\n", def.Name)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(def.Name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	includeInactive := fs.Bool("include-inactive", false, "include soft-deleted records in listings")
	fs.Parse(args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	store, err := factory.New(ctx, cfg.Database, logger, def.Collection)
	if err != nil {
		fatal("failed to open store: %v", err)
	}
	defer store.Close()

	svc := service.NewLifecycleService(store, nil, def, 0, logger)

	switch args[0] {
	case "list":
		out, err := svc.List(ctx, service.ListInput{IncludeInactive: *includeInactive, Limit: 100})
		if err != nil {
			fatal("list failed: %v", err)
		}
		for _, doc := range out.Records {
			printDoc(doc)
		}
		fmt.Printf("total: %d\n", out.Pagination.Total)

	case "get":
		doc, err := svc.Get(ctx, fs.Arg(0))
		if err != nil {
			fatal("get failed: %v", err)
		}
		printDoc(doc)

	case "delete":
		if _, err := svc.Delete(ctx, fs.Arg(0), domain.SystemActor); err != nil {
			fatal("delete failed: %v", err)
		}
		fmt.Printf("%s %s soft-deleted\n", def.Name, fs.Arg(0))

	case "restore":
		if _, err := svc.Restore(ctx, fs.Arg(0), domain.SystemActor); err != nil {
			fatal("restore failed: %v", err)
		}
		fmt.Printf("%s %s restored\n", def.Name, fs.Arg(0))

	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

// runUserCommand handles the user subcommands that go through the auth
// service instead of the plain lifecycle (password handling).
func runUserCommand(sub string, args []string) {
	fs := flag.NewFlagSet("user "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	name := fs.String("name", "", "user name")
	age := fs.Int("age", 0, "user age")
	contact := fs.String("contact", "", "10-digit contact number")
	city := fs.String("city", "", "user city")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password (create) or new password (reset-password)")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	def := service.UserDefinition()
	store, err := factory.New(ctx, cfg.Database, logger, def.Collection)
	if err != nil {
		fatal("failed to open store: %v", err)
	}
	defer store.Close()

	cache := cachemem.NewCache()
	defer cache.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	svc := service.NewAuthService(store, cache, tokens, cfg.Auth.BcryptCost, logger)

	switch sub {
	case "create":
		user, err := svc.Register(ctx, domain.Document{
			"name":     *name,
			"age":      *age,
			"contact":  *contact,
			"city":     *city,
			"email":    *email,
			"password": *password,
		})
		if err != nil {
			fatal("create failed: %v", err)
		}
		fmt.Printf("user created: %s (%s)\n", user.ID, user.Email)

	case "reset-password":
		if err := svc.ResetPassword(ctx, *email, *password); err != nil {
			fatal("reset-password failed: %v", err)
		}
		fmt.Printf("password reset for %s\n", *email)
	}
}

func printDoc(doc domain.Document) {
	delete(doc, domain.FieldPasswordHash)
	raw, err := json.Marshal(doc)
	if err != nil {
		fatal("failed to encode record: %v", err)
	}
	fmt.Println(string(raw))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Versebook Admin CLI

Usage:
  versebook-admin <resource> <subcommand> [flags] [id]

Resources:
  user        Manage book-users
  link        Manage links
  poem        Manage poems

Subcommands:
  list        List records (add --include-inactive for soft-deleted ones)
  get         Print one record by id
  delete      Soft-delete a record
  restore     Restore a soft-deleted record

User-only subcommands:
  create          Register a user (--name --age --contact --city --email --password)
  reset-password  Set a new password (--email --password)

Other commands:
  version     Print version information
  help        Show this help message

Examples:
  versebook-admin user list --include-inactive
  versebook-admin poem get 4f7c2e9a-...
  versebook-admin link restore 4f7c2e9a-...

Flags after the subcommand:
  --config    Path to the config file (default: search standard locations)`)
}
