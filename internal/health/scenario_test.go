package health

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c4fun/VFSForGit/internal/baseline"
	"github.com/c4fun/VFSForGit/internal/ledger"
)

var scriptFiles = []string{
	"Scripts/CreateCommonAssemblyVersion.bat",
	"Scripts/CreateCommonCliAssemblyVersion.bat",
	"Scripts/CreateCommonVersionHeader.bat",
	"Scripts/RunFunctionalTests.bat",
	"Scripts/RunUnitTests.bat",
}

// enlistmentFiles returns the 1,211 files of the functional test repository
// layout.
func enlistmentFiles() []string {
	var files []string
	add := func(dir string, n int, named ...string) {
		files = append(files, named...)
		for i := len(named); i < n; i++ {
			files = append(files, fmt.Sprintf("%s/file%04d.txt", dir, i))
		}
	}
	for i := 0; i < 500; i++ {
		files = append(files, fmt.Sprintf("GVFS/GVFS.Common/Source%03d.cs", i))
		files = append(files, fmt.Sprintf("GVFS/GVFS.Mount/Source%03d.cs", i))
	}
	add("GVFlt_BugRegressionTest", 50)
	add("GVFlt_DeleteFileTest", 40)
	add("GVFlt_DeleteFolderTest", 40)
	add("GVFlt_EnumTest", 30)
	add("GVFlt_FileOperationTest", 40,
		"GVFlt_FileOperationTest/DeleteExistingFile.txt",
		"GVFlt_FileOperationTest/WriteAndVerify.txt")
	files = append(files, scriptFiles...)
	files = append(files, ".gitattributes", ".gitignore", "AuthoringTests.md", "License.md", "Readme.md", "GVFS.sln")
	return files
}

func placeholders(paths ...string) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(paths))
	for _, p := range paths {
		out = append(out, ledger.Entry{Path: p, Class: ledger.Placeholder})
	}
	return out
}

func modified(paths ...string) []ledger.Entry {
	out := make([]ledger.Entry, 0, len(paths))
	for _, p := range paths {
		out = append(out, ledger.Entry{Path: p, Class: ledger.Modified})
	}
	return out
}

// percents holds an expected percentage under floor and nearest rounding.
type percents struct{ floor, nearest int }

func (p percents) under(r Rounding) int {
	if r == Nearest {
		return p.nearest
	}
	return p.floor
}

type scenarioStep struct {
	name  string
	// apply derives this step's ledger from the previous step's.
	apply func(ledger.Slice) ledger.Slice
	dir   string

	total, fast, slow          int
	fastPct, slowPct, totalPct percents
	top                        []TopDirectory
	status                     string
}

func scenarioSteps() []scenarioStep {
	zeroTail := func(lead ...TopDirectory) []TopDirectory {
		rest := []string{"GVFS", "GVFlt_BugRegressionTest", "GVFlt_DeleteFileTest", "GVFlt_DeleteFolderTest", "GVFlt_EnumTest"}
		top := append([]TopDirectory{}, lead...)
		for _, name := range rest {
			if len(top) == DefaultTopN {
				break
			}
			top = append(top, TopDirectory{Name: name})
		}
		return top
	}

	return []scenarioStep{
		{
			name: "A fresh clone",
			apply: func(ledger.Slice) ledger.Slice {
				return ledger.Slice(placeholders(".gitignore")).With(modified(".gitattributes")...)
			},
			total: 1211, fast: 1, slow: 1,
			fastPct: percents{0, 0}, slowPct: percents{0, 0}, totalPct: percents{0, 0},
			top:    zeroTail(),
			status: "OK",
		},
		{
			name: "A2 readme read",
			apply: func(s ledger.Slice) ledger.Slice {
				return s.With(placeholders("Readme.md")...)
			},
			total: 1211, fast: 2, slow: 1,
			fastPct: percents{0, 0}, slowPct: percents{0, 0}, totalPct: percents{0, 0},
			top:    zeroTail(),
			status: "OK",
		},
		{
			name: "B scripts read",
			apply: func(s ledger.Slice) ledger.Slice {
				s = s.With(ledger.Entry{Path: "Scripts", Class: ledger.Placeholder, IsFolder: true})
				return s.With(placeholders(scriptFiles...)...)
			},
			total: 1211, fast: 7, slow: 1,
			fastPct: percents{0, 1}, slowPct: percents{0, 0}, totalPct: percents{0, 1},
			top:    zeroTail(TopDirectory{Name: "Scripts", Hydrated: 5}),
			status: "OK",
		},
		{
			name: "B2 file operation tests written",
			apply: func(s ledger.Slice) ledger.Slice {
				s = s.With(ledger.Entry{Path: "GVFlt_FileOperationTest", Class: ledger.Placeholder, IsFolder: true})
				s = s.With(placeholders("AuthoringTests.md")...)
				return s.With(modified(
					"GVFlt_FileOperationTest/DeleteExistingFile.txt",
					"GVFlt_FileOperationTest/WriteAndVerify.txt")...)
			},
			total: 1211, fast: 8, slow: 3,
			fastPct: percents{0, 1}, slowPct: percents{0, 0}, totalPct: percents{0, 1},
			top: zeroTail(
				TopDirectory{Name: "Scripts", Hydrated: 5},
				TopDirectory{Name: "GVFlt_FileOperationTest", Hydrated: 2}),
			status: "OK",
		},
		{
			name: "C scripts rewritten",
			apply: func(s ledger.Slice) ledger.Slice {
				return s.With(modified(scriptFiles...)...)
			},
			total: 1211, fast: 3, slow: 8,
			fastPct: percents{0, 0}, slowPct: percents{0, 1}, totalPct: percents{0, 1},
			top: zeroTail(
				TopDirectory{Name: "Scripts", Hydrated: 5},
				TopDirectory{Name: "GVFlt_FileOperationTest", Hydrated: 2}),
			status: "OK",
		},
		{
			name:  "D scoped to Scripts",
			apply: func(s ledger.Slice) ledger.Slice { return s },
			dir:   "Scripts/",
			total: 5, fast: 0, slow: 5,
			fastPct: percents{0, 0}, slowPct: percents{100, 100}, totalPct: percents{100, 100},
			top:    []TopDirectory{},
			status: "Highly Hydrated",
		},
	}
}

// runScenario feeds each step's ledger, derived explicitly from the previous
// one, to a fresh reporter and checks the report.
func runScenario(t *testing.T, tree baseline.Tree, rounding Rounding) {
	t.Helper()
	ctx := context.Background()

	var state ledger.Slice
	for _, step := range scenarioSteps() {
		state = step.apply(state)

		r, err := NewReporter(tree, state, Options{Rounding: rounding})
		require.NoError(t, err)
		rep, err := r.Report(ctx, step.dir)
		require.NoError(t, err, step.name)

		assert.Equal(t, step.total, rep.TotalFiles, step.name)
		assert.Equal(t, 100, rep.TotalFilePercent, step.name)
		assert.Equal(t, step.fast, rep.FastFiles, step.name)
		assert.Equal(t, step.slow, rep.SlowFiles, step.name)
		assert.Equal(t, step.fastPct.under(rounding), rep.FastPercent, step.name)
		assert.Equal(t, step.slowPct.under(rounding), rep.SlowPercent, step.name)
		assert.Equal(t, step.totalPct.under(rounding), rep.TotalHydrationPercent, step.name)
		assert.Equal(t, step.top, rep.TopDirectories, step.name)
		assert.Equal(t, step.status, rep.Status, step.name)
	}
}

func TestScenarioFloor(t *testing.T) {
	runScenario(t, baseline.FromPaths(enlistmentFiles()...), Floor)
}

func TestScenarioNearest(t *testing.T) {
	runScenario(t, baseline.FromPaths(enlistmentFiles()...), Nearest)
}

func TestScenarioEnlistmentSize(t *testing.T) {
	files := enlistmentFiles()
	assert.Len(t, files, 1211)

	seen := make(map[string]bool, len(files))
	for _, f := range files {
		assert.False(t, seen[f], "duplicate %s", f)
		seen[f] = true
	}
}
