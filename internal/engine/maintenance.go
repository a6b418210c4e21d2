package engine

import (
	"context"
	"errors"

	"github.com/illarion/filevault/internal/index"
	"github.com/illarion/filevault/internal/vaulterr"
)

// VersionRef names one version of an identity
type VersionRef struct {
	ID      string
	Version uint64
}

// RepairReport lists what Repair changed
type RepairReport struct {
	Adopted        []VersionRef // committed entries added to the index
	Dropped        []VersionRef // index references without an entry
	RemovedRecords []string     // records left without versions
}

// Changed reports whether Repair modified anything
func (r *RepairReport) Changed() bool {
	return len(r.Adopted)+len(r.Dropped) > 0
}

// Repair reconciles the index with the version store after a crash. Entries
// the index does not reference are adopted, creating a record from the
// entry's source path when needed. References without an entry are dropped.
func (e *Engine) Repair(ctx context.Context) (*RepairReport, error) {
	stored, err := e.store.Identities()
	if err != nil {
		return nil, err
	}
	records, err := e.index.All()
	if err != nil {
		return nil, err
	}

	report := &RepairReport{}
	for id, versions := range stored {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.adopt(id, versions, report); err != nil {
			return report, err
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.dropDangling(rec.ID, report); err != nil {
			return report, err
		}
	}

	if report.Changed() {
		e.log.Warn("index repaired", "adopted", len(report.Adopted), "dropped", len(report.Dropped))
	}
	return report, nil
}

func (e *Engine) adopt(id string, versions []uint64, report *RepairReport) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.index.Get(id)
	if err != nil && !errors.Is(err, vaulterr.ErrNotFound) {
		return err
	}

	var sums map[uint64]string
	for _, v := range versions {
		if rec != nil && rec.HasVersion(v) {
			continue
		}
		if sums == nil {
			all, err := e.store.Summaries(id)
			if err != nil {
				return err
			}
			sums = make(map[uint64]string, len(all))
			for _, s := range all {
				sums[s.Version] = s.SourcePath
			}
		}

		attrs := index.Attributes{}
		if rec == nil {
			attrs.Path = sums[v]
		}
		if rec, err = e.index.Upsert(id, attrs, v); err != nil {
			return err
		}
		report.Adopted = append(report.Adopted, VersionRef{ID: id, Version: v})
		e.log.Info("adopted orphan version", "id", id, "version", v)
	}
	return nil
}

func (e *Engine) dropDangling(id string, report *RepairReport) error {
	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.index.Get(id)
	if errors.Is(err, vaulterr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := len(rec.Versions)
	for _, v := range rec.Versions {
		ok, err := e.store.Has(id, v)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := e.index.Remove(id, v); err != nil {
			return err
		}
		remaining--
		report.Dropped = append(report.Dropped, VersionRef{ID: id, Version: v})
		e.log.Info("dropped dangling reference", "id", id, "version", v)
	}
	if remaining == 0 {
		report.RemovedRecords = append(report.RemovedRecords, id)
	}
	return nil
}

// VerifyFailure is one version that failed authentication or digest checks
type VerifyFailure struct {
	ID      string
	Version uint64
	Path    string
	Err     error
}

// Verify decrypts every indexed version in memory and reports the failures.
// Plaintext is discarded. It stops on cancellation and on ErrLocked.
func (e *Engine) Verify(ctx context.Context) ([]VerifyFailure, error) {
	if e.Locked() {
		return nil, vaulterr.ErrLocked
	}
	records, err := e.index.All()
	if err != nil {
		return nil, err
	}

	var failures []VerifyFailure
	for _, rec := range records {
		for _, v := range rec.Versions {
			plaintext, err := e.Decrypt(ctx, rec.ID, v)
			switch {
			case err == nil:
				clear(plaintext)
			case errors.Is(err, vaulterr.ErrLocked), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return failures, err
			default:
				failures = append(failures, VerifyFailure{ID: rec.ID, Version: v, Path: rec.Path, Err: err})
			}
		}
	}
	return failures, nil
}
