package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
	"aurora_schema_migrator/internal/logging"
	"aurora_schema_migrator/internal/migrate"
	"aurora_schema_migrator/internal/storage"
	"aurora_schema_migrator/internal/telemetry"
	"aurora_schema_migrator/scripts/schema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init-config":
		err = initConfigCmd(args)
	case "up":
		err = upCmd(args)
	case "status":
		err = statusCmd(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`aurora_schema_migrator commands:
  init-config   - create a starter .env file
  up            - apply pending migration scripts
  status        - list versions recorded in the ledger

Flags are command specific; run "<cmd> -h" for details.`)
}

func initConfigCmd(args []string) error {
	fs := flagSet("init-config")
	path := fs.String("path", ".env", "where to write the sample dotenv file")
	backend := fs.String("backend", config.BackendDataAPI, "executor backend for the sample")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("%s already exists", *path)
	}
	if err := os.WriteFile(*path, []byte(config.SampleDotenv(*backend)), 0o600); err != nil {
		return err
	}
	fmt.Println("sample config written to", *path)
	return nil
}

func upCmd(args []string) error {
	fs := flagSet("up")
	envPath := fs.String("env", ".env", "dotenv file loaded before the environment")
	scriptsDir := fs.String("scripts", "", "directory of *.sql scripts (defaults to MIGRATION_SCRIPTS_PATH)")
	embedded := fs.Bool("embedded", false, "apply the scripts bundled into this binary")
	approve := fs.Bool("approve", false, "skip approval prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadWithDotenv(*envPath)
	if err != nil {
		return err
	}

	var scripts []storage.Script
	if *embedded {
		scripts, err = storage.DiscoverFS(schema.FS())
	} else {
		dir := cfg.Migration.ScriptsPath
		if *scriptsDir != "" {
			dir = *scriptsDir
		}
		scripts, err = storage.DiscoverScripts(dir)
	}
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(scripts) == 0 {
		fmt.Println("no migration scripts found")
		return nil
	}

	fmt.Printf("About to apply up to %d scripts against the %s backend\n", len(scripts), cfg.Backend)
	if !*approve {
		if ok, err := promptYes("Type YES to proceed: "); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("aborted by user")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger := logging.NewLogger(cfg.LogLevel)
	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	exec, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer exec.Close()

	runner := migrate.New(exec, logger, cfg.Migration.LedgerTable)
	out, err := runner.Up(ctx, scripts)
	for _, name := range out.Applied {
		fmt.Println("applied", name)
	}
	for _, name := range out.Skipped {
		fmt.Println("skipped", name)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Ran migration successfully for these files: %v\n", out.Processed)
	return nil
}

func statusCmd(args []string) error {
	fs := flagSet("status")
	envPath := fs.String("env", ".env", "dotenv file loaded before the environment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.LoadWithDotenv(*envPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	exec, err := db.Open(ctx, cfg, logging.Discard())
	if err != nil {
		return err
	}
	defer exec.Close()

	versions, err := migrate.New(exec, logging.Discard(), cfg.Migration.LedgerTable).AppliedVersions(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("no entries yet")
		return nil
	}
	for _, v := range versions {
		fmt.Println(v)
	}
	return nil
}

func promptYes(prompt string) (bool, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	return fs
}
