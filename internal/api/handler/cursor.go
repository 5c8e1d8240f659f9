package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Ecenturetech/ScriptTranscipt/internal/storage"
)

// DecodeVideoCursor parses an opaque listing cursor. An empty string means
// first page.
func DecodeVideoCursor(cursorStr string) (*storage.Cursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(decodedParts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.Cursor{
		CreatedAt: time.Unix(0, createdAt),
		ID:        decodedParts[1],
	}, nil
}

// EncodeVideoCursor renders a cursor pointing past the given row.
func EncodeVideoCursor(cursor *storage.Cursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.ID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
