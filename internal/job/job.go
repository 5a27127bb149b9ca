// Package job runs merges described by YAML job files and keeps a short run
// history in the same file.
package job

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/johnharveymath/oxcovid19db/internal/analysis"
	"github.com/johnharveymath/oxcovid19db/internal/merge"
	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/table"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

// maxHistory bounds the run records kept in a job file.
const maxHistory = 20

// Job is a merge persisted on disk.
type Job struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	How         merge.How   `yaml:"how,omitempty"`
	Left        Source      `yaml:"left"`
	Right       Source      `yaml:"right"`
	Output      string      `yaml:"output,omitempty"`
	Summary     bool        `yaml:"summary,omitempty"`
	History     []RunRecord `yaml:"history,omitempty"`

	// on-disk location of the job file
	path string
}

// RunRecord summarizes one execution.
type RunRecord struct {
	ID        string    `yaml:"id"`
	StartedAt time.Time `yaml:"started_at"`
	Duration  string    `yaml:"duration"`
	Rows      int       `yaml:"rows"`
	Output    string    `yaml:"output,omitempty"`
	Error     string    `yaml:"error,omitempty"`
}

// Load reads and validates a job file.
func Load(path string) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("job not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read job: %w", err)
	}
	var j Job
	if err := yaml.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	j.path = path
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Path returns the file the job was loaded from or saved to.
func (j *Job) Path() string { return j.path }

// Validate checks the join kind and both sources.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return errors.New("job name is required")
	}
	h, err := merge.ParseHow(string(j.How))
	if err != nil {
		return err
	}
	j.How = h
	if err := j.Left.Validate(); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := j.Right.Validate(); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	if j.Output != "" {
		if _, err := parser.Lookup(j.Output); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
	return nil
}

// SaveAs writes the job to path using an atomic write.
func (j *Job) SaveAs(path string) error {
	j.path = path
	return j.Save()
}

// Save writes the job back to its file.
func (j *Job) Save() error {
	if j.path == "" {
		return errors.New("job path not set")
	}
	b, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return utils.SafeWriteFile(j.path, b)
}

// Deps are the collaborators a run needs.
type Deps struct {
	Merger  *merge.Merger
	Querier Querier
	Parse   parser.Options
}

// Result is the outcome of one run.
type Result struct {
	ID       string
	Table    *table.Table
	Report   *analysis.Report
	Output   string
	Started  time.Time
	Duration time.Duration
}

// Run loads both sources, merges them and writes the output when one is set.
// The run is appended to History; call Save to persist it.
func (j *Job) Run(ctx context.Context, d Deps) (*Result, error) {
	res := &Result{ID: uuid.NewString(), Started: time.Now()}
	err := j.run(ctx, d, res)
	res.Duration = time.Since(res.Started)
	j.record(res, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (j *Job) run(ctx context.Context, d Deps, res *Result) error {
	if err := j.Validate(); err != nil {
		return err
	}
	base := ""
	if j.path != "" {
		base = filepath.Dir(j.path)
	}
	left, right, err := LoadPair(ctx, base, d.Querier, d.Parse, j.Left, j.Right)
	if err != nil {
		return err
	}
	out, err := d.Merger.Merge(ctx, left, right, j.How)
	if err != nil {
		return err
	}
	res.Table = out
	if j.Summary {
		if res.Report, err = analysis.Analyze(j.Name, out, analysis.DefaultOptions()); err != nil {
			return err
		}
	}
	if j.Output != "" {
		res.Output = utils.ResolveRelative(base, utils.ExpandHome(j.Output))
		if err := parser.WriteFile(res.Output, out); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) record(res *Result, err error) {
	rec := RunRecord{
		ID:        res.ID,
		StartedAt: res.Started.UTC().Truncate(time.Second),
		Duration:  res.Duration.Round(time.Millisecond).String(),
		Output:    res.Output,
	}
	if res.Table != nil {
		rec.Rows = res.Table.Len()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	j.History = append(j.History, rec)
	if len(j.History) > maxHistory {
		j.History = j.History[len(j.History)-maxHistory:]
	}
}
