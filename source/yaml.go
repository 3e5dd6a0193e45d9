package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lukemcguire/linkreaper/bookmark"
	"github.com/lukemcguire/linkreaper/urlutil"
)

// yamlRootID is the ID of the implicit top-level folder.
const yamlRootID = "root"

// yamlEntry is one item of a YAML bookmark list. Entries with a URL are
// bookmarks; entries without one are folders.
type yamlEntry struct {
	Name     string       `yaml:"name"`
	URL      string       `yaml:"url,omitempty"`
	Added    time.Time    `yaml:"added,omitempty"`
	Children []*yamlEntry `yaml:"children,omitempty"`
}

// YAML is a hand-maintained bookmark list:
//
//	- name: Dev
//	  children:
//	    - name: Go
//	      url: https://go.dev
//	      added: 2024-01-02T03:04:05Z
//
// IDs are derived from each entry's folder path and normalized URL, so they
// are stable across edits of unrelated entries.
type YAML struct {
	path string
	mu   sync.Mutex
}

// NewYAML returns a source for the YAML file at path.
func NewYAML(path string) *YAML {
	return &YAML{path: path}
}

// yamlIndex maps IDs to entries for one decoded file.
type yamlIndex struct {
	top     []*yamlEntry
	byID    map[string]*yamlEntry
	idOf    map[*yamlEntry]string
	parents map[string]*yamlEntry // nil value means the top level
}

// Tree returns the list as a tree under a root with ID "root".
func (y *YAML) Tree(ctx context.Context) (*bookmark.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	y.mu.Lock()
	defer y.mu.Unlock()

	idx, err := y.load()
	if err != nil {
		return nil, err
	}
	root := &bookmark.Node{ID: yamlRootID, Title: "Bookmarks"}
	for _, e := range idx.top {
		root.Children = append(root.Children, idx.node(e, yamlRootID))
	}
	return root, nil
}

// Remove deletes an entry and everything below it.
func (y *YAML) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	y.mu.Lock()
	defer y.mu.Unlock()

	idx, err := y.load()
	if err != nil {
		return err
	}
	entry, ok := idx.byID[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, bookmark.ErrNotFound)
	}

	if parent := idx.parents[id]; parent != nil {
		parent.Children = without(parent.Children, entry)
	} else {
		idx.top = without(idx.top, entry)
	}
	return y.save(idx.top)
}

// Create appends a bookmark to the folder parentID and returns its ID.
func (y *YAML) Create(ctx context.Context, parentID, title, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	y.mu.Lock()
	defer y.mu.Unlock()

	idx, err := y.load()
	if err != nil {
		return "", err
	}

	entry := &yamlEntry{Name: title, URL: url, Added: time.Now().UTC().Truncate(time.Second)}
	if parentID == yamlRootID {
		idx.top = append(idx.top, entry)
	} else {
		parent, ok := idx.byID[parentID]
		if !ok || parent.URL != "" {
			return "", fmt.Errorf("create in folder %s: %w", parentID, bookmark.ErrNotFound)
		}
		parent.Children = append(parent.Children, entry)
	}

	if err := y.save(idx.top); err != nil {
		return "", err
	}
	return indexYAML(idx.top).idOf[entry], nil
}

func (y *YAML) load() (*yamlIndex, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", y.path, err)
	}
	var top []*yamlEntry
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode %s: %w", y.path, err)
	}
	return indexYAML(top), nil
}

func (y *YAML) save(top []*yamlEntry) error {
	data, err := yaml.Marshal(top)
	if err != nil {
		return fmt.Errorf("encode bookmarks: %w", err)
	}
	return writeFileAtomic(y.path, data)
}

func indexYAML(top []*yamlEntry) *yamlIndex {
	idx := &yamlIndex{
		top:     top,
		byID:    make(map[string]*yamlEntry),
		idOf:    make(map[*yamlEntry]string),
		parents: make(map[string]*yamlEntry),
	}
	idx.add(top, nil, nil)
	return idx
}

func (idx *yamlIndex) add(entries []*yamlEntry, parent *yamlEntry, path []string) {
	for _, e := range entries {
		key := "folder:" + strings.Join(append(path, e.Name), "/")
		if e.URL != "" {
			key = strings.Join(path, "/") + "\x00" + urlutil.NormalizeOrRaw(e.URL)
		}
		id := entryID(key)
		for n := 2; idx.byID[id] != nil; n++ {
			id = fmt.Sprintf("%s-%d", entryID(key), n)
		}

		idx.byID[id] = e
		idx.idOf[e] = id
		idx.parents[id] = parent
		if e.URL == "" {
			idx.add(e.Children, e, append(path, e.Name))
		}
	}
}

func (idx *yamlIndex) node(e *yamlEntry, parentID string) *bookmark.Node {
	id := idx.idOf[e]
	n := &bookmark.Node{ID: id, ParentID: parentID, Title: e.Name, URL: e.URL, DateAdded: e.Added}
	if e.URL == "" {
		for _, child := range e.Children {
			n.Children = append(n.Children, idx.node(child, id))
		}
	}
	return n
}

func entryID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func without(entries []*yamlEntry, target *yamlEntry) []*yamlEntry {
	out := entries[:0]
	for _, e := range entries {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}
