package nodes

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/repo"
)

// PathInfo identifies one exportable node: which repository it lives in, its
// absolute path, and the node's mgnl:lastModified timestamp when the source
// document carried a parseable one.
type PathInfo struct {
	Repo         repo.RepoType
	Path         string
	LastModified *time.Time
}

const lastModifiedProperty = "mgnl:lastModified"

// node mirrors one entry of a nodes-API JSON document. The property list is
// open-ended; only mgnl:lastModified is ever inspected.
type node struct {
	Path       string     `json:"path"`
	Properties []property `json:"properties"`
	Nodes      []node     `json:"nodes"`
	Type       string     `json:"type"`
}

type property struct {
	Name   string `json:"name"`
	Values []any  `json:"values"`
}

// BuildPaths decodes a nodes-API document and flattens it depth-first into
// the list of nodes whose type matches the repository's leaf node type, or
// mgnl:folder when includeFolders is set. Any subtree rooted at a bracketed
// path like /gato[2] is pruned: JCR permits same-name siblings that Magnolia
// itself never shows, and exporting them would collide. Returns nil when
// nothing matched.
func BuildPaths(r io.Reader, rt repo.RepoType, includeFolders bool) ([]PathInfo, error) {
	root, err := decode(r)
	if err != nil {
		return nil, err
	}
	return root.flatten(rt, includeFolders), nil
}

// ReducePaths returns the nodes at exactly the given depth below the root,
// each carrying the maximum lastModified of itself and all descendants.
// Bracketed subtrees are pruned as in BuildPaths.
func ReducePaths(r io.Reader, rt repo.RepoType, level int) ([]PathInfo, error) {
	root, err := decode(r)
	if err != nil {
		return nil, err
	}
	return root.reduce(rt, level), nil
}

func decode(r io.Reader) (*node, error) {
	var root node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode node document: %w", err)
	}
	return &root, nil
}

func (n *node) flatten(rt repo.RepoType, includeFolders bool) []PathInfo {
	if strings.HasSuffix(n.Path, "]") {
		return nil
	}
	var paths []PathInfo
	if info := n.pathInfo(rt, includeFolders); info != nil {
		paths = append(paths, *info)
	}
	for i := range n.Nodes {
		paths = append(paths, n.Nodes[i].flatten(rt, includeFolders)...)
	}
	return paths
}

func (n *node) pathInfo(rt repo.RepoType, includeFolders bool) *PathInfo {
	if n.Type != rt.LeafNodeType() && !(includeFolders && n.Type == repo.FolderNodeType) {
		return nil
	}
	return &PathInfo{Repo: rt, Path: n.Path, LastModified: n.lastModified()}
}

// lastModified pulls the last element of the first mgnl:lastModified
// property's values array. Absent, non-string, or unparseable values all
// yield nil.
func (n *node) lastModified() *time.Time {
	for _, p := range n.Properties {
		if p.Name != lastModifiedProperty {
			continue
		}
		if len(p.Values) == 0 {
			return nil
		}
		s, ok := p.Values[len(p.Values)-1].(string)
		if !ok {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		return &t
	}
	return nil
}

func (n *node) reduce(rt repo.RepoType, level int) []PathInfo {
	if strings.HasSuffix(n.Path, "]") {
		return nil
	}
	if level == 0 {
		return []PathInfo{{Repo: rt, Path: n.Path, LastModified: n.maxLastModified()}}
	}
	var paths []PathInfo
	for i := range n.Nodes {
		paths = append(paths, n.Nodes[i].reduce(rt, level-1)...)
	}
	return paths
}

func (n *node) maxLastModified() *time.Time {
	max := n.lastModified()
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if strings.HasSuffix(child.Path, "]") {
			continue
		}
		if m := child.maxLastModified(); m != nil && (max == nil || m.After(*max)) {
			max = m
		}
	}
	return max
}
