// Package health computes the hydration health report of an enlistment
// directory: file counts, hydration percentages, the most hydrated
// subdirectories and an overall status.
package health

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/c4fun/VFSForGit/internal/aggregate"
	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
	"github.com/c4fun/VFSForGit/internal/scope"
)

// DefaultTopN is the number of subdirectories listed when Options.TopN is
// not set.
const DefaultTopN = 5

// Rounding selects how percentages are reduced to integers.
type Rounding int

const (
	// Floor truncates: 7 of 1211 files is 0%.
	Floor Rounding = iota
	// Nearest rounds half up: 7 of 1211 files is 1%.
	Nearest
)

// ParseRounding accepts "floor" and "nearest".
func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "", "floor":
		return Floor, nil
	case "nearest":
		return Nearest, nil
	default:
		return Floor, fmt.Errorf("unknown percent rounding %q", s)
	}
}

func (r Rounding) String() string {
	if r == Nearest {
		return "nearest"
	}
	return "floor"
}

// Percent returns count as a percentage of total, 0 when total is 0.
func (r Rounding) Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	if r == Nearest {
		return (count*200 + total) / (2 * total)
	}
	return count * 100 / total
}

// Options tunes a Reporter.
type Options struct {
	TopN       int
	Thresholds []Threshold
	Rounding   Rounding
}

// TopDirectory is one ranked subdirectory.
type TopDirectory struct {
	Name     string `json:"name"`
	Hydrated int    `json:"hydrated"`
}

// Report is the health of one directory.
type Report struct {
	// Directory is the normalized scope; "" is the repository root.
	Directory             string         `json:"directory"`
	TotalFiles            int            `json:"total_files"`
	TotalFilePercent      int            `json:"total_file_percent"`
	FastFiles             int            `json:"fast_files"`
	FastPercent           int            `json:"fast_percent"`
	SlowFiles             int            `json:"slow_files"`
	SlowPercent           int            `json:"slow_percent"`
	TotalHydrationPercent int            `json:"total_hydration_percent"`
	TopDirectories        []TopDirectory `json:"top_directories"`
	Status                string         `json:"status"`
}

// Reporter builds reports from a baseline tree and a ledger. It holds no
// mutable state and is safe for concurrent use.
type Reporter struct {
	tree   baseline.Tree
	ledger ledger.Reader
	opts   Options
}

// NewReporter validates opts and fills in defaults.
func NewReporter(t baseline.Tree, l ledger.Reader, opts Options) (*Reporter, error) {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = DefaultThresholds
	}
	if err := ValidateThresholds(opts.Thresholds); err != nil {
		return nil, err
	}
	opts.Thresholds = slices.Clone(opts.Thresholds)
	return &Reporter{tree: t, ledger: l, opts: opts}, nil
}

// Report computes the health of dir. dir is validated first; nothing is
// read when it is malformed.
func (r *Reporter) Report(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()

	normalized, err := scope.Normalize(dir)
	if err != nil {
		metrics.RecordReportError(errorKind(err))
		return nil, err
	}

	res, err := aggregate.Aggregate(ctx, r.tree, r.ledger, normalized)
	if err != nil {
		metrics.RecordReportError(errorKind(err))
		return nil, err
	}

	rep := r.build(res)
	metrics.RecordReport(rep.Directory, rep.Status, rep.TotalHydrationPercent, time.Since(start))
	logging.WithContext(ctx).Debug("health report",
		logging.String("directory", rep.Directory),
		logging.Int("hydrated_percent", rep.TotalHydrationPercent),
		logging.String("status", rep.Status),
		logging.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func (r *Reporter) build(res *aggregate.Result) *Report {
	s := res.Scope
	pct := r.opts.Rounding.Percent

	rep := &Report{
		Directory:             s.Path,
		TotalFiles:            s.TotalFiles,
		TotalFilePercent:      100,
		FastFiles:             s.Fast,
		FastPercent:           pct(s.Fast, s.TotalFiles),
		SlowFiles:             s.Slow,
		SlowPercent:           pct(s.Slow, s.TotalFiles),
		TotalHydrationPercent: pct(s.Hydrated(), s.TotalFiles),
		TopDirectories:        rankChildren(res.Children, r.opts.TopN),
	}
	rep.Status = Classify(r.opts.Thresholds, rep.TotalHydrationPercent)
	return rep
}

// rankChildren orders children by hydrated count, most first, ties by name,
// and keeps the first n.
func rankChildren(children []aggregate.Stat, n int) []TopDirectory {
	ranked := slices.Clone(children)
	slices.SortStableFunc(ranked, func(a, b aggregate.Stat) int {
		if c := cmp.Compare(b.Hydrated(), a.Hydrated()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	top := make([]TopDirectory, 0, min(n, len(ranked)))
	for _, c := range ranked[:min(n, len(ranked))] {
		top = append(top, TopDirectory{Name: c.Name, Hydrated: c.Hydrated()})
	}
	return top
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, scope.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, baseline.ErrNotFoundInCommit):
		return "not_found"
	case errors.Is(err, ledger.ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
