// Command nvoipctl lists Nvoip templates and runs dispatch batches from JSON
// files without the Kafka worker.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajayykmr/nvoip-dispatcher/internal/app"
	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/dispatch"
	"github.com/ajayykmr/nvoip-dispatcher/internal/logger"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// runner is the part of the dispatcher the commands use.
type runner interface {
	ResolveOptions(ctx context.Context, channel models.Channel) []models.Option
	ProcessBatch(ctx context.Context, batchID string, items []models.WorkItem) ([]models.ResultRecord, error)
}

type runnerFactory func(ctx context.Context) (runner, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultRunner).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func defaultRunner(ctx context.Context) (runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.App.Env, cfg.App.LogLevel, "nvoipctl")
	if err != nil {
		return nil, err
	}
	return app.Dispatcher(ctx, cfg, nil, *log)
}

func newRootCmd(newRunner runnerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:          "nvoipctl",
		Short:        "Nvoip SMS, WhatsApp and call dispatcher",
		SilenceUsage: true,
	}
	root.AddCommand(newTemplatesCmd(newRunner), newProcessCmd(newRunner))
	return root
}

func newTemplatesCmd(newRunner runnerFactory) *cobra.Command {
	return &cobra.Command{
		Use:       "templates <sms|whatsapp>",
		Short:     "Print the selectable templates of a channel",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(models.ChannelSMS), string(models.ChannelWhatsApp)},
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := models.ParseChannel(args[0])
			if err != nil {
				return err
			}
			if channel == models.ChannelCall {
				return fmt.Errorf("channel %s has no templates", channel)
			}

			r, err := newRunner(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), r.ResolveOptions(cmd.Context(), channel))
		},
	}
}

func newProcessCmd(newRunner runnerFactory) *cobra.Command {
	var (
		batchID  string
		envelope bool
	)

	cmd := &cobra.Command{
		Use:   "process <file|->",
		Short: "Run a batch of work items and print one record per item",
		Long: `Reads either a batch request {"batch_id": "...", "items": [...]} or a bare
array of item parameter objects. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req, err := decodeBatch(raw)
			if err != nil {
				return err
			}
			if batchID != "" {
				req.BatchID = batchID
			}

			r, err := newRunner(cmd.Context())
			if err != nil {
				return err
			}
			records, err := r.ProcessBatch(cmd.Context(), req.BatchID, req.WorkItems())
			if err != nil {
				return err
			}

			if !envelope {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			succeeded, failed := dispatch.Summarize(records)
			return writeJSON(cmd.OutOrStdout(), models.BatchResult{
				BatchID:     req.BatchID,
				TraceID:     req.TraceID,
				TenantID:    req.TenantID,
				Results:     records,
				Succeeded:   succeeded,
				Failed:      failed,
				CompletedAt: time.Now().UTC(),
			})
		},
	}
	cmd.Flags().StringVar(&batchID, "batch-id", "", "batch id used in logs and traces")
	cmd.Flags().BoolVar(&envelope, "envelope", false, "print the full batch result envelope")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func decodeBatch(raw []byte) (models.BatchRequest, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.BatchRequest{}, errors.New("input is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var req models.BatchRequest
	if raw[0] == '[' {
		if err := dec.Decode(&req.Items); err != nil {
			return req, fmt.Errorf("decode items: %w", err)
		}
		return req, nil
	}
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode batch request: %w", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
