// Command makeadmin grants the admin role to an existing account.
//
//	makeadmin <email>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/service"
	mongodb "github.com/sweetshop/sweet-shop/internal/infrastructure/db/mongo"
	"github.com/sweetshop/sweet-shop/internal/pkg/config"
	"github.com/sweetshop/sweet-shop/pkg/logger"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s <email>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	email := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		fallback := logger.Get()
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "makeadmin"})

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	auth := service.NewAuthService(mongodb.NewUserRepository(db), log)
	user, changed, err := auth.PromoteToAdmin(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		log.Error().Str("email", email).Msg("no account with this email")
		os.Exit(1)
	case err != nil:
		log.Error().Err(err).Msg("promotion failed")
		os.Exit(1)
	case !changed:
		log.Info().Str("user_id", user.ID).Msg("account already has the admin role")
	default:
		log.Info().Str("user_id", user.ID).Msg("account promoted to admin")
	}
}
