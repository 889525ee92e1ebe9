package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/md-rashed-zaman/melinotify/internal/fault"
)

type mapProvider map[string][]byte

func (p mapProvider) Resolve(_ context.Context, ref string) ([]byte, error) {
	raw, ok := p[ref]
	if !ok {
		return nil, fmt.Errorf("unknown secret %q", ref)
	}
	return raw, nil
}

func testProvider() mapProvider {
	return mapProvider{
		"env://TG": []byte(`{"telegramBotToken": "bot-token", "telegramChatId": "-100123"}`),
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("unmarshaling body: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testProvider(), "env://TG", nil)
	if err := client.SendMessage(context.Background(), "pedido listo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["chat_id"] != "-100123" || gotBody["text"] != "pedido listo" || gotBody["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestSendMessageNon2xxIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok": false, "description": "Too Many Requests"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testProvider(), "env://TG", nil)
	err := client.SendMessage(context.Background(), "x")
	if !fault.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestSendDocument(t *testing.T) {
	var gotChatID, gotCaption, gotFilename string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botbot-token/sendDocument" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
			return
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("reading document part: %v", err)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		gotFile, _ = io.ReadAll(file)
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testProvider(), "env://TG", nil)
	err := client.SendDocument(context.Background(), Document{
		Bytes:    []byte("%PDF-label"),
		Filename: "etiqueta-77.pdf",
		Caption:  "Etiqueta de envío",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotChatID != "-100123" || gotCaption != "Etiqueta de envío" {
		t.Fatalf("unexpected form values: chat_id=%q caption=%q", gotChatID, gotCaption)
	}
	if gotFilename != "etiqueta-77.pdf" || string(gotFile) != "%PDF-label" {
		t.Fatalf("unexpected document part: %q %q", gotFilename, gotFile)
	}
}

func TestMissingCredentialsIsAuth(t *testing.T) {
	client := NewClient("http://unused", mapProvider{}, "env://TG", nil)
	if err := client.SendMessage(context.Background(), "x"); !fault.IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestParseCredentials(t *testing.T) {
	if _, err := ParseCredentials([]byte(`{"telegramBotToken": "t"}`)); err == nil {
		t.Fatalf("expected error for missing chat id")
	}
	creds, err := ParseCredentials([]byte(`{"telegramBotToken": "t", "telegramChatId": "c"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.BotToken != "t" || creds.ChatID != "c" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}
