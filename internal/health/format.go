package health

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/c4fun/VFSForGit/internal/scope"
)

// WriteText renders the report in the fixed layout of `gvfs health`.
func (r *Report) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Health of directory: %s\n", scope.Display(r.Directory))
	fmt.Fprintf(bw, "Total files in HEAD commit:           %s | %d%%\n", humanize.Comma(int64(r.TotalFiles)), r.TotalFilePercent)
	fmt.Fprintf(bw, "Files managed by VFS for Git (fast):  %s | %d%%\n", humanize.Comma(int64(r.FastFiles)), r.FastPercent)
	fmt.Fprintf(bw, "Files managed by git (slow):          %s | %d%%\n", humanize.Comma(int64(r.SlowFiles)), r.SlowPercent)
	fmt.Fprintf(bw, "Total hydration percentage:           %d%%\n", r.TotalHydrationPercent)
	fmt.Fprintf(bw, "\nMost hydrated top level directories:\n")
	for _, d := range r.TopDirectories {
		fmt.Fprintf(bw, "  %s | %s\n", humanize.Comma(int64(d.Hydrated)), d.Name)
	}
	fmt.Fprintf(bw, "\nRepository status: %s\n", r.Status)
	return bw.Flush()
}

// WriteJSON renders the report as one indented JSON object.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
