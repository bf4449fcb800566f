// Package events defines the messages exchanged with the title fetcher over the event stream.
package events

import "time"

const (
	// TopicLinkEncoded carries LinkEncodedEvent after every successful encode.
	TopicLinkEncoded = "link.encoded"
	// TopicTitleResolved carries TitleResolvedEvent from the title fetcher.
	TopicTitleResolved = "link.title_resolved"
)

// LinkEncodedEvent is published after an encode request succeeds.
type LinkEncodedEvent struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"originalUrl"`
	Principal   string    `json:"principal,omitempty"`
	Title       string    `json:"title,omitempty"`
	Created     bool      `json:"created"`
	EncodedAt   time.Time `json:"encodedAt"`
}

// TitleResolvedEvent reports the page title found for a principal's link.
type TitleResolvedEvent struct {
	Code       string    `json:"code"`
	Principal  string    `json:"principal"`
	Title      string    `json:"title"`
	ResolvedAt time.Time `json:"resolvedAt"`
}
