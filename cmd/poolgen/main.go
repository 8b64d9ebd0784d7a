// Command poolgen generates synthetic member pools and optionally drives a
// running engine instance end to end: trigger a run, then fetch its record.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/perchsocial/cohort-engine/internal/poolgen"
	"github.com/perchsocial/cohort-engine/pkg/logger"
)

const outputFilePermission = 0o600

func main() {
	var (
		seed    = flag.Int64("seed", 1, "RNG seed; identical seeds reproduce identical pools")
		size    = flag.Int("size", 200, "number of profiles to generate")
		cities  = flag.String("cities", "Austin,Boise,Chicago,Denver", "comma-separated city list")
		output  = flag.String("output", "", "write the generated pool as JSON to this file (default stdout)")
		url     = flag.String("url", "", "base URL of a running engine; when set, trigger a run and print its record")
		token   = flag.String("token", "", "admin bearer token for the trigger endpoint")
		batch   = flag.String("batch", "", "batch id for the triggered run (default: generated uuid)")
		timeout = flag.Duration("timeout", 30*time.Second, "HTTP request timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get()

	pool := poolgen.Generate(poolgen.Options{
		Seed:   *seed,
		Size:   *size,
		Cities: strings.Split(*cities, ","),
	})
	log.Info(ctx, "generated synthetic pool",
		logger.Int("size", len(pool)),
		logger.Int("seed", int(*seed)),
	)

	encoded, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		log.Error(ctx, "failed to encode pool", logger.Error(err))
		os.Exit(1)
	}
	if *output != "" {
		if err := os.WriteFile(*output, encoded, outputFilePermission); err != nil {
			log.Error(ctx, "failed to write pool file", logger.Error(err))
			os.Exit(1)
		}
		log.Info(ctx, "pool written", logger.String("path", *output))
	} else if *url == "" {
		os.Stdout.Write(encoded)
		os.Stdout.WriteString("\n")
	}

	if *url == "" {
		return
	}

	client := poolgen.NewClient(*url, *token, *timeout)

	readiness, err := client.Readiness(ctx)
	if err != nil {
		log.Error(ctx, "readiness check failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "engine readiness", logger.Any("report", json.RawMessage(readiness)))

	batchID := *batch
	if batchID == "" {
		batchID = uuid.NewString()
	}
	run, replayed, err := client.TriggerRun(ctx, batchID)
	if err != nil {
		log.Error(ctx, "trigger failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "run recorded",
		logger.String("batchID", batchID),
		logger.Bool("replayed", replayed),
	)
	os.Stdout.Write(run)
	os.Stdout.WriteString("\n")
}
