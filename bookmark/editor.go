package bookmark

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNothingToUndo is returned by Editor.Undo when no deletion is pending.
var ErrNothingToUndo = errors.New("nothing to undo")

// Source is a bookmark store: a browser profile file or an export.
type Source interface {
	// Tree returns the full bookmark tree. The root node is a folder.
	Tree(ctx context.Context) (*Node, error)
	// Remove deletes the bookmark or folder with the given ID.
	Remove(ctx context.Context, id string) error
	// Create adds a URL bookmark under parentID and returns its new ID.
	Create(ctx context.Context, parentID, title, url string) (string, error)
}

// Restored pairs a recreated bookmark's new ID with the ID it had before
// it was deleted.
type Restored struct {
	OldID string
	NewID string
}

// Editor deletes bookmarks from a Source and remembers the last deletion so
// it can be undone.
type Editor struct {
	src Source

	mu      sync.Mutex
	deleted []Record
}

// NewEditor creates an Editor over src.
func NewEditor(src Source) *Editor {
	return &Editor{src: src}
}

// Delete removes each record from the source. The removed records replace
// any previously remembered deletion. It returns how many were removed; on
// error the records removed so far remain undoable.
func (e *Editor) Delete(ctx context.Context, records []*Record) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deleted = e.deleted[:0]
	for _, rec := range records {
		if err := e.src.Remove(ctx, rec.ID); err != nil {
			return len(e.deleted), fmt.Errorf("remove bookmark %s: %w", rec.ID, err)
		}
		e.deleted = append(e.deleted, *rec)
	}
	return len(e.deleted), nil
}

// Undo recreates the most recently deleted bookmarks under their original
// parents. Recreated bookmarks get new IDs from the source. On error the
// bookmarks not yet restored stay undoable.
func (e *Editor) Undo(ctx context.Context) ([]Restored, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.deleted) == 0 {
		return nil, ErrNothingToUndo
	}

	restored := make([]Restored, 0, len(e.deleted))
	for i, rec := range e.deleted {
		id, err := e.src.Create(ctx, rec.ParentID, rec.Title, rec.URL)
		if err != nil {
			e.deleted = e.deleted[i:]
			return restored, fmt.Errorf("restore bookmark %q: %w", rec.URL, err)
		}
		restored = append(restored, Restored{OldID: rec.ID, NewID: id})
	}
	e.deleted = nil
	return restored, nil
}

// CanUndo reports whether a deletion is pending undo.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.deleted) > 0
}

// Pending returns how many bookmarks the next Undo would restore.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.deleted)
}
