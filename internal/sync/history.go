// ABOUTME: JSON wire format for exporting and merging reading history
// ABOUTME: A History document carries the sync key and its read states

package sync

import (
	"encoding/json"
	"fmt"
	"io"
)

// History is the document exchanged between devices.
type History struct {
	Key    string        `json:"key"`
	States []RemoteState `json:"states"`
}

// WriteHistory encodes h as indented JSON.
func WriteHistory(w io.Writer, h History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return nil
}

// ReadHistory decodes a History document and normalizes its key.
func ReadHistory(r io.Reader) (History, error) {
	var h History
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&h); err != nil {
		return History{}, fmt.Errorf("decode history: %w", err)
	}
	if h.Key != "" {
		key, err := NormalizeKey(h.Key)
		if err != nil {
			return History{}, err
		}
		h.Key = key
	}
	for i, s := range h.States {
		if s.ArticleID == "" {
			return History{}, fmt.Errorf("decode history: state %d has no article_id", i)
		}
		if s.UpdatedAt.IsZero() {
			return History{}, fmt.Errorf("decode history: state %d has no updated_at", i)
		}
	}
	return h, nil
}
