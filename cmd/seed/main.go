// Command seed creates the sample accounts in the configured database. It
// reads the same configuration as the server; pass -prompt to choose the
// shared password interactively.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/janndizz/test-plogg/internal/common"
	"github.com/janndizz/test-plogg/internal/flagx"
	"github.com/janndizz/test-plogg/internal/logging"
	"github.com/janndizz/test-plogg/internal/server/auth"
	"github.com/janndizz/test-plogg/internal/server/config"
	"github.com/janndizz/test-plogg/internal/server/repositories/repomanager"
	"github.com/janndizz/test-plogg/internal/server/seed"
)

func main() {
	var prompt bool
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&prompt, "prompt", false, "ask for the sample password")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-prompt", "--prompt"}))

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, closeLogger, err := logging.New(logging.Options{
		Backend: cfg.LogBackend,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = closeLogger() }()

	password := []byte(seed.DefaultPassword)
	if prompt {
		password, err = seed.PromptPassword(os.Stdout)
		if err != nil {
			log.Fatalf("read password: %v", err)
		}
	}
	defer common.WipeByteArray(password)

	rm, err := repomanager.New(cfg.DatabaseDriver)
	if err != nil {
		log.Fatalf("%v", err)
	}
	dsn := cfg.DatabaseDSN
	if rm.DriverName() == repomanager.DriverSQLite {
		dsn = repomanager.SQLiteDSN(dsn)
	}
	db, err := repomanager.Open(ctx, rm, dsn)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations error: %v", err)
	}

	codec := auth.NewCodec([]byte(cfg.SecretKey), cfg.SessionTokenValidityDuration, cfg.VerificationTokenValidityDuration)
	s := seed.NewSeeder(db, rm, codec, logger)

	report, err := s.Run(ctx, seed.SampleUsers, string(password))
	if err != nil {
		log.Fatalf("seeding error: %v", err)
	}
	report.Print(os.Stdout, seed.SampleUsers, string(password))
}
