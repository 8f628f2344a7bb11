// Command ledmerge merges LED slot frames from several configuration files as
// described by a YAML plan.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"led-frame-merger/internal/logging"
	"led-frame-merger/internal/model"
	"led-frame-merger/internal/plan"
	"led-frame-merger/internal/service"
	"led-frame-merger/internal/storage"
)

func main() {
	planPath := flag.String("plan", "", "path to the merge plan (YAML)")
	output := flag.String("output", "", "output file; overrides the plan")
	dryRun := flag.Bool("dry-run", false, "validate and report without writing")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *planPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, logger, *planPath, *output, *dryRun)
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func run(ctx context.Context, logger *zap.Logger, planPath, output string, dryRun bool) int {
	p, err := plan.Read(planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read plan: %v\n", err)
		return 1
	}

	repo := storage.NewFileRepository()
	outcome, err := plan.Execute(ctx, p, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge: %v\n", err)
		return 1
	}
	for _, w := range outcome.Warnings() {
		fmt.Fprintln(os.Stderr, w)
	}
	if !outcome.Valid {
		logger.Warn("merge rejected", zap.String("plan", planPath), zap.Strings("warnings", outcome.Warnings()))
		fmt.Fprintln(os.Stderr, service.ErrInvalidSlots)
		return 1
	}

	dest := output
	if dest == "" {
		dest = p.Output
	}
	if dest == "" {
		dest = filepath.Join(filepath.Dir(p.Base), service.OutputFileName(filepath.Base(p.Base), time.Now()))
	}

	outcome.Slots.Each(func(slot model.Slot, r model.ConcatenationResult) {
		fmt.Printf("%s (page %d): %d frames\n", slot.Label(), slot.PageIndex(), r.TotalFrames)
	})
	if dryRun {
		fmt.Printf("dry run, would write %s\n", dest)
		return 0
	}
	if err := repo.Save(ctx, outcome.Config, dest); err != nil {
		logger.Error("write output", zap.String("path", dest), zap.Error(err))
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		return 1
	}
	logger.Info("merge written", zap.String("path", dest))
	fmt.Println(dest)
	return 0
}
