// Package report writes the decisions of an update run as a TOML file.
package report

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/extsync/easyupdate/pkg/cache"
	"github.com/extsync/easyupdate/pkg/patch"
	"github.com/extsync/easyupdate/pkg/recipe"
	"github.com/extsync/easyupdate/pkg/resolve"
)

// Report is the TOML form of one update run. Durations are stored in
// nanoseconds.
type Report struct {
	RunID      string    `toml:"run_id"`
	Recipe     string    `toml:"recipe"`
	Output     string    `toml:"output,omitempty"`
	SourceHash string    `toml:"source_sha256"`
	OutputHash string    `toml:"output_sha256,omitempty"`
	Ecosystem  string    `toml:"ecosystem"`
	Toolchain  string    `toml:"toolchain"`
	StartedAt  time.Time `toml:"started_at"`
	ElapsedNs  int64     `toml:"elapsed_ns"`
	DryRun     bool      `toml:"dry_run,omitempty"`

	Summary   Summary    `toml:"summary"`
	Decisions []Decision `toml:"decisions"`
}

// Summary mirrors [resolve.Summary] plus the patch counts.
type Summary struct {
	Kept             int `toml:"kept"`
	Updated          int `toml:"updated"`
	Added            int `toml:"added"`
	Duplicate        int `toml:"duplicate"`
	Processed        int `toml:"processed"`
	Reordered        int `toml:"reordered"`
	Removed          int `toml:"removed"`
	Dropped          int `toml:"dropped"`
	ChecksumsDropped int `toml:"checksums_dropped"`
}

// Decision is one record of the walk.
type Decision struct {
	Name       string `toml:"name"`
	Decision   string `toml:"decision"`
	Version    string `toml:"version,omitempty"`
	OldVersion string `toml:"old_version,omitempty"`
	RequiredBy string `toml:"required_by,omitempty"`
	Depth      int    `toml:"depth"`
	Source     string `toml:"source,omitempty"`
}

// Input collects what a report is built from. Result is nil for runs that
// did not patch.
type Input struct {
	RunID     string
	StartedAt time.Time
	Document  *recipe.Document
	Run       *resolve.Run
	Result    *patch.Result
	Output    string
	DryRun    bool
}

// New builds a report.
func New(in Input) *Report {
	doc, run := in.Document, in.Run
	r := &Report{
		RunID:      in.RunID,
		Recipe:     doc.Path,
		Output:     in.Output,
		SourceHash: cache.Hash(doc.Source),
		Ecosystem:  run.Ecosystem,
		Toolchain:  doc.Toolchain.String(),
		StartedAt:  in.StartedAt.UTC(),
		ElapsedNs:  int64(run.Elapsed),
		DryRun:     in.DryRun,
	}

	s := run.Summary()
	r.Summary = Summary{
		Kept:      s.Kept,
		Updated:   s.Updated,
		Added:     s.Added,
		Duplicate: s.Duplicate,
		Processed: s.Processed,
		Reordered: s.Reordered,
		Removed:   s.Removed,
	}
	if in.Result != nil {
		r.OutputHash = cache.Hash(in.Result.Output)
		r.Summary.Dropped = in.Result.Counts.Dropped
		r.Summary.ChecksumsDropped = in.Result.Counts.ChecksumsDropped
	}

	for _, rec := range run.Records {
		d := Decision{Name: rec.Name, Decision: rec.Decision.String(), RequiredBy: rec.Origin.Parent, Depth: rec.Depth}
		if n := rec.Node; n != nil {
			d.Version = n.Version()
			d.Source = n.Source
			if rec.Decision == resolve.Update {
				d.OldVersion = n.OriginalVersion
			}
		}
		r.Decisions = append(r.Decisions, d)
	}
	return r
}

// Elapsed returns the resolution time.
func (r *Report) Elapsed() time.Duration { return time.Duration(r.ElapsedNs) }

// Marshal encodes r as TOML.
func (r *Report) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes r to path through a temporary file.
func Save(path string, r *Report) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming report: %w", err)
	}
	return nil
}

// Load reads a report written by [Save].
func Load(path string) (*Report, error) {
	var r Report
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return &r, nil
}
