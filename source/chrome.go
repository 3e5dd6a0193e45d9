package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukemcguire/linkreaper/bookmark"
)

const (
	chromeFolder = "folder"
	chromeURL    = "url"

	// chromeRootID is the synthetic root above the permanent folders.
	chromeRootID = "0"
)

// chromeRoots are the permanent folders, in display order.
var chromeRoots = []string{"bookmark_bar", "other", "synced"}

// webkitEpochDelta is the offset in microseconds between 1601-01-01 and
// the Unix epoch.
const webkitEpochDelta = 11644473600 * 1_000_000

type chromeNode struct {
	ID           string            `json:"id"`
	GUID         string            `json:"guid,omitempty"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	URL          string            `json:"url,omitempty"`
	DateAdded    string            `json:"date_added,omitempty"`
	DateLastUsed string            `json:"date_last_used,omitempty"`
	DateModified string            `json:"date_modified,omitempty"`
	MetaInfo     map[string]string `json:"meta_info,omitempty"`
	Children     []*chromeNode     `json:"children,omitempty"`
}

// MarshalJSON always writes "children" for folders, even empty ones;
// Chromium rejects folders without it.
func (n *chromeNode) MarshalJSON() ([]byte, error) {
	type node chromeNode
	if n.Type != chromeFolder {
		return json.Marshal((*node)(n))
	}
	children := n.Children
	if children == nil {
		children = []*chromeNode{}
	}
	return json.Marshal(struct {
		*node
		Children []*chromeNode `json:"children"`
	}{(*node)(n), children})
}

// chromeDoc is a decoded Bookmarks file. Unknown top-level keys and roots
// are kept as raw JSON and written back untouched.
type chromeDoc struct {
	raw   map[string]json.RawMessage
	roots map[string]json.RawMessage
	nodes map[string]*chromeNode // permanent folders by root key
}

// Chrome is a Chromium-family Bookmarks file. Edits rewrite the whole file;
// the browser must not be running while they happen or it will overwrite
// them on exit.
type Chrome struct {
	path string
	mu   sync.Mutex
}

// NewChrome returns a source for the Bookmarks file at path.
func NewChrome(path string) *Chrome {
	return &Chrome{path: path}
}

// Tree returns the bookmark tree under a synthetic root with ID "0".
func (c *Chrome) Tree(ctx context.Context) (*bookmark.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return nil, err
	}

	root := &bookmark.Node{ID: chromeRootID, Title: "Bookmarks"}
	for _, key := range chromeRoots {
		if n, ok := doc.nodes[key]; ok {
			root.Children = append(root.Children, toNode(n, chromeRootID))
		}
	}
	return root, nil
}

// Remove deletes a bookmark or folder. Permanent folders cannot be removed.
func (c *Chrome) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return err
	}
	for _, key := range chromeRoots {
		n, ok := doc.nodes[key]
		if !ok {
			continue
		}
		if n.ID == id {
			return fmt.Errorf("remove %s: %w", id, ErrPermanentFolder)
		}
		if removeChild(n, id) {
			return c.save(doc)
		}
	}
	return fmt.Errorf("remove %s: %w", id, bookmark.ErrNotFound)
}

// Create adds a URL bookmark at the end of the folder parentID.
func (c *Chrome) Create(ctx context.Context, parentID, title, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load()
	if err != nil {
		return "", err
	}

	var parent *chromeNode
	maxID := 0
	for _, key := range chromeRoots {
		n, ok := doc.nodes[key]
		if !ok {
			continue
		}
		walkChrome(n, func(node *chromeNode) {
			if id, err := strconv.Atoi(node.ID); err == nil && id > maxID {
				maxID = id
			}
			if node.ID == parentID && node.Type == chromeFolder {
				parent = node
			}
		})
	}
	if parent == nil {
		return "", fmt.Errorf("create in folder %s: %w", parentID, bookmark.ErrNotFound)
	}

	id := strconv.Itoa(maxID + 1)
	parent.Children = append(parent.Children, &chromeNode{
		ID:        id,
		GUID:      uuid.NewString(),
		Name:      title,
		Type:      chromeURL,
		URL:       url,
		DateAdded: formatChromeTime(time.Now()),
	})
	if err := c.save(doc); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Chrome) load() (*chromeDoc, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}

	doc := &chromeDoc{nodes: make(map[string]*chromeNode)}
	if err := json.Unmarshal(data, &doc.raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}
	if err := json.Unmarshal(doc.raw["roots"], &doc.roots); err != nil {
		return nil, fmt.Errorf("decode roots of %s: %w", c.path, err)
	}
	for _, key := range chromeRoots {
		raw, ok := doc.roots[key]
		if !ok {
			continue
		}
		var n chromeNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decode root %q: %w", key, err)
		}
		doc.nodes[key] = &n
	}
	return doc, nil
}

func (c *Chrome) save(doc *chromeDoc) error {
	for key, n := range doc.nodes {
		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode root %q: %w", key, err)
		}
		doc.roots[key] = raw
	}
	roots, err := json.Marshal(doc.roots)
	if err != nil {
		return fmt.Errorf("encode roots: %w", err)
	}
	doc.raw["roots"] = roots
	// The checksum covers the old contents; Chromium recomputes a missing one.
	delete(doc.raw, "checksum")

	data, err := json.MarshalIndent(doc.raw, "", "   ")
	if err != nil {
		return fmt.Errorf("encode bookmarks: %w", err)
	}
	return writeFileAtomic(c.path, data)
}

func toNode(n *chromeNode, parentID string) *bookmark.Node {
	node := &bookmark.Node{
		ID:        n.ID,
		ParentID:  parentID,
		Title:     n.Name,
		DateAdded: parseChromeTime(n.DateAdded),
	}
	if n.Type == chromeURL {
		node.URL = n.URL
		return node
	}
	for _, child := range n.Children {
		node.Children = append(node.Children, toNode(child, n.ID))
	}
	return node
}

func removeChild(n *chromeNode, id string) bool {
	for i, child := range n.Children {
		if child.ID == id {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
		if removeChild(child, id) {
			return true
		}
	}
	return false
}

func walkChrome(n *chromeNode, fn func(*chromeNode)) {
	fn(n)
	for _, child := range n.Children {
		walkChrome(child, fn)
	}
}

// parseChromeTime converts microseconds since 1601-01-01 UTC, as a decimal
// string, to a time. Empty or malformed values give the zero time.
func parseChromeTime(s string) time.Time {
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil || us <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(us - webkitEpochDelta).UTC()
}

func formatChromeTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro()+webkitEpochDelta, 10)
}
