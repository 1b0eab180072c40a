// Package storage is the content repository: broadcastable posts, recipient
// records, and the batched sent-counter write path.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

// MediaKind enumerates the supported post payload kinds.
type MediaKind string

const (
	MediaText      MediaKind = "text"
	MediaAnimation MediaKind = "animation"
	MediaAudio     MediaKind = "audio"
	MediaDocument  MediaKind = "document"
	MediaPhoto     MediaKind = "photo"
	MediaSticker   MediaKind = "sticker"
	MediaVideo     MediaKind = "video"
	MediaVideoNote MediaKind = "video_note"
	MediaVoice     MediaKind = "voice"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaText, MediaAnimation, MediaAudio, MediaDocument, MediaPhoto,
		MediaSticker, MediaVideo, MediaVideoNote, MediaVoice:
		return true
	}
	return false
}

type PostStatus string

const (
	PostActive PostStatus = "active"
	PostPaused PostStatus = "paused"
)

// Post is a piece of broadcastable content. MediaRef is the provider-side
// file reference and is empty for plain-text posts. Sent is mutated only
// through BatchIncrementSent.
type Post struct {
	ID         int64
	Kind       MediaKind
	MediaRef   string
	Body       string
	MarkupJSON string
	Status     PostStatus
	Sent       int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recipient is an addressable subscriber keyed by chat ID.
type Recipient struct {
	ChatID    int64
	FirstName string
	LastName  string
	Username  string
	LangCode  string
	Blocked   bool
}

type Store interface {
	// ListActivePosts returns every post with status=active.
	ListActivePosts(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, p Post) (int64, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	SetPostStatus(ctx context.Context, id int64, status PostStatus) error
	// BatchIncrementSent adds each delta to its post's sent counter in a
	// single transaction.
	BatchIncrementSent(ctx context.Context, deltas map[int64]int64) error

	// UpsertRecipient inserts or refreshes a recipient; an upsert always
	// clears the blocked flag (a returning user is reachable again).
	UpsertRecipient(ctx context.Context, r Recipient) error
	SetRecipientBlocked(ctx context.Context, chatID int64, blocked bool) error
	// ListUnblockedRecipients returns chat IDs with blocked=false, skipping
	// any IDs in excluding.
	ListUnblockedRecipients(ctx context.Context, excluding []int64) ([]int64, error)

	Close() error
}
