// Command run-index indexes a single PDF or every PDF under a directory
// without starting the HTTP server, for batch backfills and cron jobs.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alpinesboltltd/docwell/internal/app"
	"github.com/alpinesboltltd/docwell/internal/config"
	"github.com/alpinesboltltd/docwell/internal/render"
)

var rootCmd = &cobra.Command{
	Use:   "run-index <pdf_or_dir>",
	Short: "Index a PDF file or every PDF under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func main() {
	godotenv.Load(".env")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	target := args[0]

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("run-index: %w", err)
	}

	paths, err := collectPDFs(target, info)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("run-index: no PDF files found under %s", target)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("run-index: config: %w", err)
	}

	ctx := context.Background()
	svc, err := app.BuildServices(ctx, cfg, render.Unconfigured{})
	if err != nil {
		return fmt.Errorf("run-index: %w", err)
	}
	defer svc.Close()

	var failed int
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			svc.Log.Errorf("read %s: %v", path, err)
			failed++
			continue
		}
		documentID, duplicate, err := svc.Pipeline.Run(ctx, data, filepath.Base(path))
		if err != nil {
			svc.Log.Errorf("index %s: %v", path, err)
			failed++
			continue
		}
		if duplicate {
			svc.Log.Infof("%s: skipped (duplicate or empty)", path)
			continue
		}
		svc.Log.Infof("%s: indexed as document %d", path, documentID)
	}

	if failed > 0 {
		return fmt.Errorf("run-index: %d of %d files failed", failed, len(paths))
	}
	return nil
}

func collectPDFs(target string, info os.FileInfo) ([]string, error) {
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(target), ".pdf") {
			return nil, fmt.Errorf("run-index: %s is not a PDF file", target)
		}
		return []string{target}, nil
	}

	var paths []string
	err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("run-index: %w", err)
	}
	return paths, nil
}
