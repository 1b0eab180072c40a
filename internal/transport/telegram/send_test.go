package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"blastbot/internal/storage"
)

func TestSendableText(t *testing.T) {
	got, err := sendable(storage.Post{Kind: storage.MediaText, Body: "Hello"})
	if err != nil {
		t.Fatalf("sendable: %v", err)
	}
	if s, ok := got.(string); !ok || s != "Hello" {
		t.Fatalf("text post produced %T(%v), want plain string", got, got)
	}
}

func TestSendableCaptionedMedia(t *testing.T) {
	p := storage.Post{Kind: storage.MediaPhoto, MediaRef: "file-1", Body: "caption"}
	got, err := sendable(p)
	if err != nil {
		t.Fatalf("sendable: %v", err)
	}
	photo, ok := got.(*tele.Photo)
	if !ok {
		t.Fatalf("photo post produced %T", got)
	}
	if photo.FileID != "file-1" || photo.Caption != "caption" {
		t.Fatalf("photo = %+v, want file-1 with caption", photo)
	}
}

func TestSendableCaptionlessKinds(t *testing.T) {
	// Sticker and video-note payloads have no caption field; the body must
	// simply be dropped, not smuggled in.
	st, err := sendable(storage.Post{Kind: storage.MediaSticker, MediaRef: "s-1", Body: "ignored"})
	if err != nil {
		t.Fatalf("sendable sticker: %v", err)
	}
	if _, ok := st.(*tele.Sticker); !ok {
		t.Fatalf("sticker post produced %T", st)
	}

	vn, err := sendable(storage.Post{Kind: storage.MediaVideoNote, MediaRef: "v-1", Body: "ignored"})
	if err != nil {
		t.Fatalf("sendable video note: %v", err)
	}
	if _, ok := vn.(*tele.VideoNote); !ok {
		t.Fatalf("video-note post produced %T", vn)
	}
}

func TestSendableUnknownKind(t *testing.T) {
	if _, err := sendable(storage.Post{Kind: "hologram"}); err == nil {
		t.Fatalf("unknown media kind accepted")
	}
}

func TestParseMarkup(t *testing.T) {
	if rm := parseMarkup(""); rm != nil {
		t.Fatalf("empty markup produced %+v", rm)
	}
	if rm := parseMarkup("{not json"); rm != nil {
		t.Fatalf("invalid markup produced %+v", rm)
	}
	if rm := parseMarkup("{}"); rm != nil {
		t.Fatalf("empty object markup produced %+v", rm)
	}

	rm := parseMarkup(`{"inline_keyboard":[[{"text":"Open","url":"https://example.com"}]]}`)
	if rm == nil || len(rm.InlineKeyboard) != 1 || rm.InlineKeyboard[0][0].Text != "Open" {
		t.Fatalf("inline markup parsed as %+v", rm)
	}
}
