package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ClubLedger/internal/config"
	"ClubLedger/internal/jobs"
	"ClubLedger/internal/ledger"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/reconcile"
	"ClubLedger/internal/report"
)

type importOptions struct {
	clubID   string
	file     string
	dir      string
	families []string
	force    bool
	sha256   string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one club report file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.clubID, "club", "", "Club ID (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Report file (default: newest file of the club in --dir)")
	cmd.Flags().StringVar(&opts.dir, "dir", config.EnvOr("REPORTS_DIR", config.DefaultReportsDir), "Directory searched when --file is not set")
	cmd.Flags().StringSliceVar(&opts.families, "family", nil, "Report families to import (default: all)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Import even if the same file was already imported")
	cmd.Flags().StringVar(&opts.sha256, "sha256", "", "Expected SHA-256 of the file")

	_ = cmd.MarkFlagRequired("club")
	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()

	importOpts := jobs.ImportOptions{Force: opts.force, ExpectDigest: strings.TrimSpace(opts.sha256)}
	for _, name := range opts.families {
		f, err := report.ParseFamily(name)
		if err != nil {
			return fmt.Errorf("invalid --family: %w", err)
		}
		importOpts.Families = append(importOpts.Families, f)
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	importer := jobs.NewImporter(s, reconcile.New(ledger.New(), reconcile.WithActor(config.ImportActor)), nil)
	ctx = logger.WithContext(ctx, logger.L())

	var res *jobs.ImportResult
	if opts.file != "" {
		res, err = importer.ImportFile(ctx, opts.clubID, opts.file, importOpts)
	} else {
		res, err = importer.ImportLatest(ctx, opts.dir, opts.clubID, importOpts)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, importSummary(res))
}

type importOutput struct {
	RunID       string         `json:"run_id,omitempty"`
	File        string         `json:"file"`
	Duplicate   bool           `json:"duplicate"`
	PreviousRun string         `json:"previous_run,omitempty"`
	Players     map[string]int `json:"players"`
	Rows        map[string]int `json:"transactions"`
	NetDelta    string         `json:"net_delta"`
}

func importSummary(res *jobs.ImportResult) importOutput {
	out := importOutput{
		RunID:       res.Run.RunID,
		File:        res.Run.FileName,
		Duplicate:   res.Duplicate,
		PreviousRun: res.PreviousRun,
		Players: map[string]int{
			"created":   res.Players.Created,
			"updated":   res.Players.Updated,
			"unchanged": res.Players.Unchanged,
		},
		Rows: map[string]int{
			"created":     res.Transactions.Created,
			"merged":      res.Transactions.Merged,
			"overwritten": res.Transactions.Overwritten,
			"stale":       res.Transactions.Stale,
			"replayed":    res.Transactions.Replayed,
			"skipped":     res.Transactions.Skipped,
		},
		NetDelta: res.Transactions.NetDelta.StringFixed(ledger.Places),
	}
	if res.Duplicate {
		// nothing was recorded under the fresh run id
		out.RunID = ""
	}
	return out
}
