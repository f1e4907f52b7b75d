package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxInputBytes bounds how much scan output is read
const maxInputBytes = 32 << 20

type postRef struct {
	ID string `json:"id"`
}

// scanDocument accepts scan output with or without the ok/data envelope
type scanDocument struct {
	OK   *bool `json:"ok"`
	Data *struct {
		Posts []postRef `json:"posts"`
	} `json:"data"`
	Posts []postRef `json:"posts"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// readPostIDs extracts post ids from scan output, a JSON array of ids or
// posts, or plain whitespace-separated ids
func readPostIDs(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no input to read post ids from")
	}

	var ids []string
	switch data[0] {
	case '{':
		var doc scanDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing scan output: %w", err)
		}
		if doc.OK != nil && !*doc.OK {
			msg := "unknown error"
			if doc.Error != nil {
				msg = doc.Error.Message
			}
			return nil, fmt.Errorf("input is a failed run: %s", msg)
		}
		posts := doc.Posts
		if doc.Data != nil {
			posts = doc.Data.Posts
		}
		ids = refIDs(posts)
	case '[':
		var plain []string
		if err := json.Unmarshal(data, &plain); err == nil {
			ids = plain
			break
		}
		var refs []postRef
		if err := json.Unmarshal(data, &refs); err != nil {
			return nil, fmt.Errorf("parsing id list: %w", err)
		}
		ids = refIDs(refs)
	default:
		ids = strings.Fields(string(data))
	}

	if len(ids) == 0 {
		return nil, errors.New("no post ids found in input")
	}
	return ids, nil
}

func refIDs(refs []postRef) []string {
	var ids []string
	for _, r := range refs {
		if id := strings.TrimSpace(r.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
