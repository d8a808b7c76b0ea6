package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ClubLedger/internal/checksum"
	"ClubLedger/internal/logger"
	"ClubLedger/internal/models"
	"ClubLedger/internal/reconcile"
	"ClubLedger/internal/report"
	"ClubLedger/internal/resource"
	"ClubLedger/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrDigestMismatch = errors.New("report digest does not match")
	ErrClubMismatch   = errors.New("report belongs to another club")
)

// ImportOptions narrows a file import. Empty Families means every family in import order.
type ImportOptions struct {
	Families []report.Family
	// Force re-imports a file whose digest was already imported for the club.
	Force bool
	// ExpectDigest, when set, must equal the sha256 of the file.
	ExpectDigest string
}

type ImportResult struct {
	Run          models.ImportRun
	Duplicate    bool
	PreviousRun  string
	Players      reconcile.SyncReport
	Transactions reconcile.Report
	Parse        map[report.Family]report.ParseStats
}

// Importer runs one report file through parsing, reconciliation and the ledger in a single
// store transaction. Imports of the same club are serialized.
type Importer struct {
	store store.Store
	rec   *reconcile.Reconciler
	locks *resource.ResourceManager
	now   func() time.Time
}

func NewImporter(s store.Store, rec *reconcile.Reconciler, locks *resource.ResourceManager) *Importer {
	if locks == nil {
		locks = resource.NewResourceManager()
	}
	return &Importer{store: s, rec: rec, locks: locks, now: time.Now}
}

// ImportLatest imports the newest report file of clubID found in dir.
func (im *Importer) ImportLatest(ctx context.Context, dir, clubID string, opts ImportOptions) (*ImportResult, error) {
	path, err := report.LatestFile(dir, clubID)
	if err != nil {
		return nil, err
	}
	return im.ImportFile(ctx, clubID, path, opts)
}

// ImportFile parses every requested family of the file at path, then applies players first
// and transactions after, all or nothing. Families an earlier run of the same file already
// applied for the club are left out, and a file with nothing left is reported as a duplicate.
// opts.Force re-applies every requested family.
func (im *Importer) ImportFile(ctx context.Context, clubID, path string, opts ImportOptions) (*ImportResult, error) {
	release, err := im.locks.Acquire(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("wait for club %s: %w", clubID, err)
	}
	defer release()

	lg := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"club_id": clubID,
		"file":    filepath.Base(path),
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	if opts.ExpectDigest != "" {
		ok, err := checksum.NewMatcher(opts.ExpectDigest).Match(data)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDigestMismatch, path)
		}
	}

	res := &ImportResult{
		Run: models.ImportRun{
			RunID:     uuid.New().String(),
			ClubID:    clubID,
			FileName:  filepath.Base(path),
			Digest:    checksum.Digest(data),
			StartedAt: im.now().UTC(),
		},
		Parse: make(map[report.Family]report.ParseStats),
	}

	families := opts.Families
	var prev []models.ImportRun
	if !opts.Force {
		prev, err = im.store.ListImports(ctx, clubID, res.Run.Digest)
		if err != nil {
			return nil, fmt.Errorf("check previous imports: %w", err)
		}
		families = pendingFamilies(opts.Families, prev)
		if len(prev) > 0 && len(families) == 0 {
			return im.duplicate(res, prev, lg), nil
		}
	}

	parsed, err := im.parse(res, data, families)
	if err != nil {
		return nil, err
	}
	if len(prev) > 0 && len(parsed) == 0 {
		// the families not covered before have no sheet in this file
		return im.duplicate(res, prev, lg), nil
	}
	for _, pr := range parsed {
		if pr.ClubID != "" && pr.ClubID != clubID {
			return nil, fmt.Errorf("%w: %s declares club %s (%s), expected %s",
				ErrClubMismatch, res.Run.FileName, pr.ClubID, pr.ClubName, clubID)
		}
		if pr.ClubName != "" {
			lg = lg.With().Str("club_name", pr.ClubName).Logger()
		}
	}

	err = im.store.WithTx(ctx, func(tx store.Tx) error {
		for _, pr := range parsed {
			if pr.Family == report.FamilyClubOverview {
				rep, err := reconcile.SyncPlayers(ctx, tx, pr.Players)
				if err != nil {
					return fmt.Errorf("sync players: %w", err)
				}
				res.Players = rep
				continue
			}
			rep, err := im.rec.ReconcileAll(ctx, tx, pr.Transactions)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", pr.Family, err)
			}
			mergeReport(&res.Transactions, rep)
		}
		res.Run.Players = len(res.Players.Changes)
		res.Run.Transactions = len(res.Transactions.Outcomes)
		res.Run.Skipped += res.Transactions.Skipped
		res.Run.FinishedAt = im.now().UTC()
		return tx.RecordImport(ctx, res.Run)
	})
	if err != nil {
		lg.Error().Err(err).Str("run_id", res.Run.RunID).Msg("import rolled back")
		return nil, err
	}

	lg.Info().
		Str("run_id", res.Run.RunID).
		Int("players", res.Run.Players).
		Int("transactions", res.Run.Transactions).
		Int("skipped", res.Run.Skipped).
		Str("net_delta", res.Transactions.NetDelta.StringFixed(2)).
		Msg("import committed")
	logger.LogAudit("import_committed", map[string]interface{}{
		"run_id":   res.Run.RunID,
		"club_id":  clubID,
		"digest":   res.Run.Digest,
		"families": res.Run.Families,
	})
	return res, nil
}

// pendingFamilies returns the requested families, all of them when none are named, that no
// earlier run has applied.
func pendingFamilies(requested []report.Family, prev []models.ImportRun) []report.Family {
	if len(requested) == 0 {
		requested = report.ImportOrder()
	}
	done := make(map[string]bool)
	for _, run := range prev {
		for _, f := range run.Families {
			done[f] = true
		}
	}
	pending := make([]report.Family, 0, len(requested))
	for _, f := range requested {
		if !done[string(f)] {
			pending = append(pending, f)
		}
	}
	return pending
}

func (im *Importer) duplicate(res *ImportResult, prev []models.ImportRun, lg zerolog.Logger) *ImportResult {
	last := prev[len(prev)-1]
	res.Duplicate, res.PreviousRun = true, last.RunID
	lg.Info().Str("previous_run", last.RunID).Msg("report already imported, skipping")
	logger.LogAudit("import_skipped_duplicate", map[string]interface{}{
		"club_id": res.Run.ClubID, "digest": res.Run.Digest, "previous_run": last.RunID,
	})
	return res
}

// parse reads each requested family in import order. Families whose sheet is missing are
// skipped; any other parse failure aborts the file before anything is written.
func (im *Importer) parse(res *ImportResult, data []byte, families []report.Family) ([]*report.ParseResult, error) {
	wb, err := report.OpenBytes(res.Run.FileName, data)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	want := make(map[report.Family]bool)
	for _, f := range families {
		want[f] = true
	}
	var out []*report.ParseResult
	for _, f := range report.ImportOrder() {
		if len(want) > 0 && !want[f] {
			continue
		}
		schema, err := report.SchemaFor(f)
		if err != nil {
			return nil, err
		}
		pr, err := schema.ParseWorkbook(wb)
		if errors.Is(err, report.ErrSheetNotFound) {
			lg := logger.L()
			lg.Info().Str("family", string(f)).Str("file", res.Run.FileName).Msg("sheet not present, skipping family")
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Parse[f] = pr.Stats
		res.Run.Families = append(res.Run.Families, string(f))
		res.Run.Skipped += pr.Stats.Skipped()
		out = append(out, pr)
	}
	return out, nil
}

func mergeReport(dst *reconcile.Report, src reconcile.Report) {
	dst.Created += src.Created
	dst.Merged += src.Merged
	dst.Overwritten += src.Overwritten
	dst.Stale += src.Stale
	dst.Replayed += src.Replayed
	dst.Skipped += src.Skipped
	dst.NetDelta = dst.NetDelta.Add(src.NetDelta)
	dst.Outcomes = append(dst.Outcomes, src.Outcomes...)
}
