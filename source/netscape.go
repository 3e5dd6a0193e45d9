package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/lukemcguire/linkreaper/bookmark"
)

// Netscape is a bookmarks.html export in the Netscape bookmark file format
// written by every major browser. It is read-only.
type Netscape struct {
	path string
}

// NewNetscape returns a source for the export at path.
func NewNetscape(path string) *Netscape {
	return &Netscape{path: path}
}

// Tree parses the file. IDs are assigned in document order, the root being "0".
func (n *Netscape) Tree(ctx context.Context) (*bookmark.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(n.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", n.path, err)
	}
	defer f.Close()

	root, err := ParseNetscape(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", n.path, err)
	}
	return root, nil
}

// Remove always fails with ErrReadOnly.
func (n *Netscape) Remove(context.Context, string) error {
	return ErrReadOnly
}

// Create always fails with ErrReadOnly.
func (n *Netscape) Create(context.Context, string, string, string) (string, error) {
	return "", ErrReadOnly
}

// ParseNetscape reads a Netscape bookmark document. An <H3> names the folder
// whose contents are the <DL> that follows it; an <A> is a bookmark.
func ParseNetscape(r io.Reader) (*bookmark.Node, error) {
	tokenizer := html.NewTokenizer(r)

	root := &bookmark.Node{ID: "0", Title: "Bookmarks"}
	stack := []*bookmark.Node{root}
	nextID := 1

	var (
		pending *bookmark.Node   // folder named by the last <H3>, awaiting its <DL>
		text    *strings.Builder // collects the title of the open <H3> or <A>
		target  *bookmark.Node   // node that receives text
	)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return root, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			top := stack[len(stack)-1]
			switch token.Data {
			case "h3":
				pending = &bookmark.Node{
					ID:        strconv.Itoa(nextID),
					ParentID:  top.ID,
					DateAdded: unixAttr(token, "add_date"),
				}
				nextID++
				top.Children = append(top.Children, pending)
				target, text = pending, &strings.Builder{}
			case "a":
				link := &bookmark.Node{
					ID:        strconv.Itoa(nextID),
					ParentID:  top.ID,
					URL:       attr(token, "href"),
					DateAdded: unixAttr(token, "add_date"),
				}
				nextID++
				top.Children = append(top.Children, link)
				target, text = link, &strings.Builder{}
			case "dl":
				// The top-level <DL> has no heading; it re-enters the root.
				if pending != nil {
					stack = append(stack, pending)
					pending = nil
				} else {
					stack = append(stack, top)
				}
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "h3", "a":
				if target != nil {
					target.Title = strings.TrimSpace(text.String())
				}
				target, text = nil, nil
			case "dl":
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
			}

		case html.TextToken:
			if text != nil {
				text.Write(tokenizer.Text())
			}
		}
	}
}

func attr(token html.Token, key string) string {
	for _, a := range token.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// unixAttr parses an attribute holding seconds since the Unix epoch.
func unixAttr(token html.Token, key string) time.Time {
	secs, err := strconv.ParseInt(attr(token, key), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
