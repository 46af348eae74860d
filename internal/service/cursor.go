package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftchat/chat-service/pkg/apperrors"
)

// pageCursor marks the last message of a page. Pagination is forward-only:
// the next page holds messages strictly older than (CreatedAt, ID), so pages
// stay stable while new messages are inserted at the head.
type pageCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

func encodeCursor(c pageCursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (pageCursor, error) {
	var c pageCursor
	if s == "" {
		return c, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	if c.CreatedAt.IsZero() || c.ID == "" {
		return c, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	return c, nil
}
