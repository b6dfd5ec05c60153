package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/energypractice/enrollment-backend/internal/promo"
	"github.com/energypractice/enrollment-backend/pkg/config"
	"github.com/energypractice/enrollment-backend/pkg/db"
	"github.com/energypractice/enrollment-backend/pkg/logger"
	"github.com/energypractice/enrollment-backend/pkg/migrate"
)

const serviceKind = "migrate"

type flags struct {
	cmd     string
	dir     string
	name    string
	version int64

	code     string
	amount   string
	percent  int
	limit    int
	expires  string
	inactive bool
}

// offline commands never open a database connection.
var offline = map[string]func(context.Context, flags) error{
	"create":   runCreate,
	"validate": runValidate,
}

// online commands get the resolved config and an open database.
var online = map[string]func(context.Context, flags, *db.Client, *sql.DB) error{
	"up":      gooseCommand("up"),
	"down":    gooseCommand("down"),
	"status":  gooseCommand("status"),
	"version": runVersion,
	"promo":   runPromo,
}

func main() {
	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "command: "+strings.Join(commandNames(), "|"))
	flag.StringVar(&f.dir, "dir", "", "migrations directory; empty uses the migrations built into the binary")
	flag.StringVar(&f.name, "name", "", "migration name (create)")
	flag.Int64Var(&f.version, "version", 0, "target version YYYYMMDDHHMMSS (version)")
	flag.StringVar(&f.code, "code", "", "promo code (promo)")
	flag.StringVar(&f.amount, "amount", "", "fixed discount amount (promo)")
	flag.IntVar(&f.percent, "percent", -1, "percent discount 0-100 (promo)")
	flag.IntVar(&f.limit, "limit", -1, "usage limit, omit for unlimited (promo)")
	flag.StringVar(&f.expires, "expires", "", "expiry as RFC3339 (promo)")
	flag.BoolVar(&f.inactive, "inactive", false, "store the promo code disabled (promo)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceKind, Format: logger.FormatConsole})
	_ = godotenv.Load()

	if run, ok := offline[f.cmd]; ok {
		exitOnErr(ctx, logg, f.cmd+" failed", run(ctx, f))
		return
	}
	run, ok := online[f.cmd]
	if !ok {
		exitOnErr(ctx, logg, "unknown command", fmt.Errorf("-cmd=%q, want one of %s", f.cmd, strings.Join(commandNames(), ", ")))
	}

	cfg, err := config.Load()
	exitOnErr(ctx, logg, "failed to load config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      logger.FormatConsole,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": f.cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOnErr(ctx, logg, "failed to bootstrap database", err)
	defer closeQuietly(ctx, logg, "database", dbClient.Close)

	sqlDB, err := dbClient.DB().DB()
	exitOnErr(ctx, logg, "failed to get sql handle", err)

	exitOnErr(ctx, logg, f.cmd+" failed", run(ctx, f, dbClient, sqlDB))
	logg.Info(ctx, f.cmd+" done")
}

func commandNames() []string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runCreate(_ context.Context, f flags) error {
	if f.name == "" {
		return fmt.Errorf("missing -name")
	}
	dir := f.dir
	if dir == "" {
		dir = migrate.DefaultDir
	}
	path, err := migrate.CreateSQLMigration(dir, f.name, time.Now())
	if err != nil {
		return err
	}
	fmt.Println("created", path)
	return nil
}

func runValidate(_ context.Context, f flags) error {
	var err error
	if f.dir == "" {
		err = migrate.ValidateEmbedded()
	} else {
		err = migrate.ValidateDir(f.dir)
	}
	if err != nil {
		return err
	}
	fmt.Println("migrations ok")
	return nil
}

func gooseCommand(command string) func(context.Context, flags, *db.Client, *sql.DB) error {
	return func(ctx context.Context, f flags, _ *db.Client, sqlDB *sql.DB) error {
		return migrate.Run(ctx, sqlDB, f.dir, command)
	}
}

func runVersion(ctx context.Context, f flags, _ *db.Client, sqlDB *sql.DB) error {
	if f.version <= 0 {
		return fmt.Errorf("missing -version")
	}
	return migrate.MigrateToVersion(ctx, sqlDB, f.dir, f.version)
}

func runPromo(ctx context.Context, f flags, dbClient *db.Client, _ *sql.DB) error {
	input, err := promoInput(f.code, f.amount, f.percent, f.limit, f.expires, !f.inactive)
	if err != nil {
		return err
	}
	service, err := promo.NewService(promo.NewRepository(dbClient.DB()), nil)
	if err != nil {
		return err
	}
	saved, err := service.Save(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println("saved promo code", saved.Code)
	return nil
}

func promoInput(code, amount string, percent, limit int, expires string, active bool) (promo.SaveInput, error) {
	input := promo.SaveInput{Code: code, Active: active}
	if amount != "" {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return input, fmt.Errorf("amount: %w", err)
		}
		input.DiscountAmount = &parsed
	}
	if percent >= 0 {
		input.DiscountPercent = &percent
	}
	if limit >= 0 {
		input.UsageLimit = &limit
	}
	if expires != "" {
		at, err := time.Parse(time.RFC3339, expires)
		if err != nil {
			return input, fmt.Errorf("expires: %w", err)
		}
		input.ExpiresAt = &at
	}
	return input, nil
}

func closeQuietly(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(ctx, "resource", name), "close failed", err)
	}
}

func exitOnErr(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
