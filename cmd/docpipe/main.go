// Copyright 2025 Coverdesk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coverdesk/docpipe"
	"github.com/coverdesk/docpipe/config"
	"github.com/coverdesk/docpipe/core"
	"github.com/coverdesk/docpipe/ingestion"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docpipe",
		Usage: "Document ingestion pipeline for agency document stores",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the ingestion HTTP server",
				Action: serveCommand,
			},
			{
				Name:   "process",
				Usage:  "Run the oldest pending job for an agency synchronously",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "document-id",
						Usage:    "Document UUID that triggered processing",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "agency-id",
						Usage:    "Agency UUID owning the document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "storage-path",
						Usage: "Storage path of the triggering document",
					},
				},
			},
			{
				Name:   "enqueue",
				Usage:  "Register an uploaded document and queue it for processing",
				Action: enqueueCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "storage-path",
						Usage:    "Path of the uploaded file relative to the blob root",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "agency-id",
						Usage:    "Agency UUID owning the document",
						Required: true,
					},
				},
			},
			{
				Name:   "reap",
				Usage:  "Fail jobs stuck in processing beyond the staleness window",
				Action: reapCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := docpipe.NewService(ctx, config.Load())
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Server().ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return svc.Server().Shutdown(shutdownCtx)
}

func processCommand(c *cli.Context) error {
	ctx := context.Background()

	documentID, err := uuid.Parse(c.String("document-id"))
	if err != nil {
		return fmt.Errorf("invalid document-id: %w", err)
	}
	agencyID, err := uuid.Parse(c.String("agency-id"))
	if err != nil {
		return fmt.Errorf("invalid agency-id: %w", err)
	}

	svc, err := docpipe.NewService(ctx, config.Load())
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	result := svc.Pipeline().Trigger(ctx, ingestion.TriggerRequest{
		DocumentID:  documentID,
		StoragePath: c.String("storage-path"),
		AgencyID:    agencyID,
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !result.Success && result.Error != "" {
		return fmt.Errorf("processing failed: %s", result.Error)
	}
	return nil
}

func enqueueCommand(c *cli.Context) error {
	ctx := context.Background()

	agencyID, err := uuid.Parse(c.String("agency-id"))
	if err != nil {
		return fmt.Errorf("invalid agency-id: %w", err)
	}

	svc, err := docpipe.NewService(ctx, config.Load())
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	doc := &core.Document{
		AgencyID:    agencyID,
		StoragePath: c.String("storage-path"),
	}
	if err := svc.Store().CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	job, err := svc.Queue().Enqueue(ctx, doc.ID, agencyID)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Document: %s\n", doc.ID)
	fmt.Fprintf(os.Stderr, "Job: %s\n", job.ID)
	return nil
}

func reapCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := docpipe.NewService(ctx, config.Load())
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer svc.Close()

	reaped, err := svc.Queue().ReapStaleJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to reap stale jobs: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Reaped %d stale job(s)\n", reaped)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
