package services

import (
	"encoding/base64"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
)

func TestParseMessageDate(t *testing.T) {
	header := "Wed, 01 May 2024 10:30:00 +0000"
	got := parseMessageDate(header, 0)
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Bad header falls back to the internal timestamp.
	internal := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	got = parseMessageDate("not a date", internal.UnixMilli())
	if !got.Equal(internal) {
		t.Errorf("expected internal timestamp %v, got %v", internal, got)
	}

	// No usable source falls back to roughly now.
	got = parseMessageDate("", 0)
	if time.Since(got) > time.Minute {
		t.Errorf("expected fallback near now, got %v", got)
	}
}

func TestDecodeBase64URL(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("hello world"))
	if got, err := decodeBase64URL(padded); err != nil || got != "hello world" {
		t.Errorf("padded decode failed: %q, %v", got, err)
	}

	raw := base64.RawURLEncoding.EncodeToString([]byte("hello world"))
	if got, err := decodeBase64URL(raw); err != nil || got != "hello world" {
		t.Errorf("unpadded decode failed: %q, %v", got, err)
	}

	if _, err := decodeBase64URL("!!not base64!!"); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestExtractBodyParts_PrefersPlainText(t *testing.T) {
	encode := func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}

	part := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: encode("<p>hi</p>")},
			},
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: encode("hi")},
			},
		},
	}

	plain, html := extractBodyParts(part)
	if plain != "hi" {
		t.Errorf("expected plain body, got %q", plain)
	}
	if html != "<p>hi</p>" {
		t.Errorf("expected html body, got %q", html)
	}
}

func TestExtractBodyParts_NestedMultipart(t *testing.T) {
	encode := func(s string) string {
		return base64.URLEncoding.EncodeToString([]byte(s))
	}

	part := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: encode("nested plain")},
					},
				},
			},
			{
				MimeType: "application/pdf",
				Body:     &gmail.MessagePartBody{Data: encode("binary")},
			},
		},
	}

	plain, _ := extractBodyParts(part)
	if plain != "nested plain" {
		t.Errorf("expected nested plain body, got %q", plain)
	}
}

func TestNormalizeMessage_Headers(t *testing.T) {
	provider := &GmailProvider{}

	msg := &gmail.Message{
		Id:           "abc123",
		ThreadId:     "thread-1",
		InternalDate: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Hello"},
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "To", Value: "bob@example.com"},
			},
			Body: &gmail.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte("the body")),
			},
		},
	}

	raw := provider.normalizeMessage(msg)
	if raw.MessageID != "abc123" || raw.ThreadID != "thread-1" {
		t.Errorf("id fields wrong: %+v", raw)
	}
	if raw.Subject != "Hello" || raw.From != "Alice <alice@example.com>" || raw.To != "bob@example.com" {
		t.Errorf("header fields wrong: %+v", raw)
	}
	if raw.Body != "the body" {
		t.Errorf("expected decoded body, got %q", raw.Body)
	}
}
