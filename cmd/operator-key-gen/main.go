package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"paysync.backend/internal/config"
	"paysync.backend/internal/infrastructure/repositories"
	"paysync.backend/internal/usecases"
)

var openOperatorKeyGenDB = func(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{PrepareStmt: false})
}

var openOperatorKeyGenSQLDB = func(db *gorm.DB) (io.Closer, error) {
	return db.DB()
}

type operatorKeyMinter interface {
	CreateOperatorKey(ctx context.Context, label string) (apiKey, secret string, err error)
}

type operatorKeyGenDeps struct {
	loadEnv func() error
	loadCfg func() (*config.Config, error)
	prepare func(cfg *config.Config) (operatorKeyMinter, io.Closer, error)
	out     io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func defaultOperatorKeyGenDeps() operatorKeyGenDeps {
	return operatorKeyGenDeps{
		loadEnv: func() error { return godotenv.Load() },
		loadCfg: config.Load,
		prepare: func(cfg *config.Config) (operatorKeyMinter, io.Closer, error) {
			db, err := openOperatorKeyGenDB(cfg.Database.URL)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to connect db: %w", err)
			}

			sqlDB, err := openOperatorKeyGenSQLDB(db)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init sql db: %w", err)
			}

			keyRepo := repositories.NewOperatorKeyRepository(db)
			usecase, err := usecases.NewOperatorUsecase(keyRepo, nil, nil, 0, cfg.Operator.KeyEncryptionKey)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to init operator usecase: %w", err)
			}
			return usecase, sqlDB, nil
		},
		out: os.Stdout,
	}
}

func runOperatorKeyGen(args []string, deps operatorKeyGenDeps) error {
	if deps.loadEnv == nil {
		deps.loadEnv = func() error { return godotenv.Load() }
	}
	if deps.loadCfg == nil {
		deps.loadCfg = config.Load
	}
	if deps.prepare == nil {
		def := defaultOperatorKeyGenDeps()
		deps.prepare = def.prepare
	}
	if deps.out == nil {
		deps.out = os.Stdout
	}

	fs := flag.NewFlagSet("operator-key-gen", flag.ContinueOnError)
	labelFlag := fs.String("label", "operator-console", "human-readable label for the key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := deps.loadEnv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := deps.loadCfg()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	minter, closer, err := deps.prepare(cfg)
	if err != nil {
		return err
	}
	if closer == nil {
		closer = nopCloser{}
	}
	defer closer.Close()

	apiKey, secret, err := minter.CreateOperatorKey(context.Background(), *labelFlag)
	if err != nil {
		return fmt.Errorf("failed to create operator key: %w", err)
	}

	_, _ = fmt.Fprintln(deps.out, "Created operator key")
	_, _ = fmt.Fprintf(deps.out, "label=%s\n", *labelFlag)
	_, _ = fmt.Fprintf(deps.out, "API_KEY=%s\n", apiKey)
	_, _ = fmt.Fprintf(deps.out, "SECRET_KEY=%s\n", secret)
	return nil
}

func main() {
	if err := runOperatorKeyGen(os.Args[1:], defaultOperatorKeyGenDeps()); err != nil {
		log.Fatal(err)
	}
}
