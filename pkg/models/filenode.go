// Package models contains data types shared by the baseline readers and tools.
package models

// FileNode represents a file or directory of a baseline commit tree.
//
// Manifest shards store one directory with a single level of Children whose
// FileCount is precomputed; in-memory snapshot trees carry the full hierarchy.
type FileNode struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	IsDir     bool        `json:"is_dir"`
	FileCount int         `json:"file_count"`
	Children  []*FileNode `json:"children,omitempty"`
}
