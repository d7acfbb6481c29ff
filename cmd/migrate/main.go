package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/db"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "assetflow-migrate"})

	_ = godotenv.Load()

	cmdFlag := flag.String("cmd", "up", "up|down|status|version|redo|reset|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name (create)")
	target := flag.Int64("version", -1, "with -cmd=version, migrate to this YYYYMMDDHHMMSS version")
	flag.Parse()

	source := migrate.Embedded()
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	switch *cmdFlag {
	case "create":
		into := *dir
		if into == "" {
			into = migrate.SourceDir
		}
		path, err := migrate.Scaffold(into, *name, time.Now())
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.Validate(source); err != nil {
			fail("invalid migrations:\n%v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cmd, ok := migrate.ParseCommand(*cmdFlag)
	if !ok {
		fail("unknown -cmd %q", *cmdFlag)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "assetflow-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"cmd":      string(cmd),
		"embedded": *dir == "",
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	if cmd == migrate.Version && *target >= 0 {
		err = migrate.ApplyTo(ctx, sqlDB, source, *target)
	} else {
		err = migrate.Apply(ctx, sqlDB, source, cmd)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
