package tree

import (
	"testing"

	"github.com/c4fun/VFSForGit/pkg/models"
)

func sampleTree() *models.FileNode {
	return &models.FileNode{
		Path: "", IsDir: true,
		Children: []*models.FileNode{
			{Path: "a.txt", Name: "a.txt"},
			{Path: "dir", Name: "dir", IsDir: true, Children: []*models.FileNode{
				{Path: "dir/b.txt", Name: "b.txt"},
				{Path: "dir/sub", Name: "sub", IsDir: true, Children: []*models.FileNode{
					{Path: "dir/sub/c.txt", Name: "c.txt"},
					{Path: "dir/sub/d.txt", Name: "d.txt"},
				}},
			}},
			{Path: "empty", Name: "empty", IsDir: true},
		},
	}
}

func TestCountFiles(t *testing.T) {
	root := sampleTree()
	if got := CountFiles(root); got != 4 {
		t.Fatalf("CountFiles = %d, want 4", got)
	}

	tests := []struct {
		path string
		want int
	}{
		{"dir", 3},
		{"dir/sub", 2},
		{"dir/sub/c.txt", 1},
		{"empty", 0},
	}
	flat := Flatten(root)
	for _, tt := range tests {
		if got := flat[tt.path].FileCount; got != tt.want {
			t.Errorf("FileCount(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}

	if got := CountFiles(nil); got != 0 {
		t.Errorf("CountFiles(nil) = %d, want 0", got)
	}
}

func TestFlatten(t *testing.T) {
	flat := Flatten(sampleTree())
	if len(flat) != 8 {
		t.Errorf("Flatten returned %d nodes, want 8", len(flat))
	}
	for _, path := range []string{"", "a.txt", "dir", "dir/sub/c.txt", "empty"} {
		if _, ok := flat[path]; !ok {
			t.Errorf("Flatten missing path %q", path)
		}
	}

	if len(Flatten(nil)) != 0 {
		t.Error("Flatten(nil) should return empty map")
	}
}

func TestChildPath(t *testing.T) {
	tests := []struct {
		parent, name, want string
	}{
		{"", "file.txt", "file.txt"},
		{"dir", "file.txt", "dir/file.txt"},
		{"a/b", "c", "a/b/c"},
	}
	for _, tt := range tests {
		if got := ChildPath(tt.parent, tt.name); got != tt.want {
			t.Errorf("ChildPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestParentAndBase(t *testing.T) {
	tests := []struct {
		path, parent, base string
	}{
		{"a", "", "a"},
		{"a/b", "a", "b"},
		{"a/b/c.txt", "a/b", "c.txt"},
	}
	for _, tt := range tests {
		if got := Parent(tt.path); got != tt.parent {
			t.Errorf("Parent(%q) = %q, want %q", tt.path, got, tt.parent)
		}
		if got := Base(tt.path); got != tt.base {
			t.Errorf("Base(%q) = %q, want %q", tt.path, got, tt.base)
		}
	}
}

func TestWithinAndRel(t *testing.T) {
	tests := []struct {
		path, dir string
		within    bool
		rel       string
	}{
		{"Scripts/a.bat", "", true, "Scripts/a.bat"},
		{"Scripts/a.bat", "Scripts", true, "a.bat"},
		{"Scripts", "Scripts", true, ""},
		{"ScriptsOld/a.bat", "Scripts", false, ""},
		{"Script", "Scripts", false, ""},
		{"a/b/c", "a/b", true, "c"},
	}
	for _, tt := range tests {
		if got := Within(tt.path, tt.dir); got != tt.within {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.within)
		}
		rel, ok := Rel(tt.path, tt.dir)
		if ok != tt.within || rel != tt.rel {
			t.Errorf("Rel(%q, %q) = %q, %v; want %q, %v", tt.path, tt.dir, rel, ok, tt.rel, tt.within)
		}
	}
}

func TestFirstSegment(t *testing.T) {
	tests := []struct {
		rel    string
		seg    string
		nested bool
	}{
		{"a.txt", "a.txt", false},
		{"dir/a.txt", "dir", true},
		{"dir/sub/a.txt", "dir", true},
	}
	for _, tt := range tests {
		seg, nested := FirstSegment(tt.rel)
		if seg != tt.seg || nested != tt.nested {
			t.Errorf("FirstSegment(%q) = %q, %v; want %q, %v", tt.rel, seg, nested, tt.seg, tt.nested)
		}
	}
}
