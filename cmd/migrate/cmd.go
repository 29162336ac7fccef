package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/models"
	"github.com/noah-isme/langschool-api/internal/service"
	"github.com/noah-isme/langschool-api/migrations"
	"github.com/noah-isme/langschool-api/pkg/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type commandLine struct {
	db     *sqlx.DB
	users  userStore
	logger *zap.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, version, up-to N, down-to N)")
	fmt.Println("  createadmin -email EMAIL -name NAME -password PASSWORD [-role ADMIN|SUPERADMIN] - create an admin account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	adminEmail := createAdminCmd.String("email", "", "Login email of the new account.")
	adminName := createAdminCmd.String("name", "", "Full name of the new account.")
	adminPassword := createAdminCmd.String("password", "", "Initial password (min 8 characters).")
	adminRole := createAdminCmd.String("role", string(models.RoleAdmin), "ADMIN or SUPERADMIN.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *adminEmail == "" || *adminName == "" || len(*adminPassword) < 8 {
			createAdminCmd.Usage()
			return errHelp
		}
		role := models.UserRole(strings.ToUpper(*adminRole))
		if role != models.RoleAdmin && role != models.RoleSuperAdmin {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*adminEmail, *adminName, *adminPassword, role)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if err := migrateFunc(cli.db, migrations.FS, args[0], args[1:]...); err != nil {
		return err
	}
	cli.logger.Info("migration finished", zap.String("command", args[0]))
	return nil
}

func (cli *commandLine) createAdmin(email, name, password string, role models.UserRole) error {
	ctx := context.Background()
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := cli.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return fmt.Errorf("user %s already exists", email)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(name),
		Role:         role,
		Active:       true,
	}
	if err := cli.users.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	cli.logger.Info("admin created", zap.String("email", email), zap.String("role", string(role)))
	return nil
}
