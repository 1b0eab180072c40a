package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"blastbot/internal/storage"
	"blastbot/internal/transport"
)

// SendPost delivers one post, picking the send primitive for its media kind.
func (a *Adapter) SendPost(ctx context.Context, chatID int64, p storage.Post) (transport.Outcome, error) {
	what, err := sendable(p)
	if err != nil {
		return transport.OutcomeBadRequest, err
	}

	opts := &tele.SendOptions{}
	if rm := parseMarkup(p.MarkupJSON); rm != nil {
		opts.ReplyMarkup = rm
	}

	_, err = a.bot.Send(tele.ChatID(chatID), what, opts)
	return classify(err), err
}

// sendable maps a post onto the telebot value for bot.Send. Sticker and
// video-note payloads carry no caption field at the API level, so the post
// body is dropped for those two kinds.
func sendable(p storage.Post) (any, error) {
	if p.Kind == storage.MediaText {
		return p.Body, nil
	}
	f := tele.File{FileID: p.MediaRef}
	switch p.Kind {
	case storage.MediaAnimation:
		return &tele.Animation{File: f, Caption: p.Body}, nil
	case storage.MediaAudio:
		return &tele.Audio{File: f, Caption: p.Body}, nil
	case storage.MediaDocument:
		return &tele.Document{File: f, Caption: p.Body}, nil
	case storage.MediaPhoto:
		return &tele.Photo{File: f, Caption: p.Body}, nil
	case storage.MediaVideo:
		return &tele.Video{File: f, Caption: p.Body}, nil
	case storage.MediaVoice:
		return &tele.Voice{File: f, Caption: p.Body}, nil
	case storage.MediaSticker:
		return &tele.Sticker{File: f}, nil
	case storage.MediaVideoNote:
		return &tele.VideoNote{File: f}, nil
	}
	return nil, fmt.Errorf("unsupported media kind %q", p.Kind)
}

// parseMarkup decodes stored keyboard JSON. Telebot's ReplyMarkup covers both
// inline and reply keyboards, so one decode handles either shape. Invalid or
// empty markup degrades to no keyboard.
func parseMarkup(raw string) *tele.ReplyMarkup {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var rm tele.ReplyMarkup
	if err := json.Unmarshal([]byte(raw), &rm); err != nil {
		return nil
	}
	if len(rm.InlineKeyboard) == 0 && len(rm.ReplyKeyboard) == 0 {
		return nil
	}
	return &rm
}
