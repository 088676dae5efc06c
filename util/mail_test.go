package util

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMailPayload(t *testing.T) {
	Settings.UseSendGrid = true
	Settings.FromEmail = "noreply@petrox.test"
	MailAPIKey = "test-key"

	var gotAuth string
	var gotPayload sgPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	orig := SendGridURL
	SendGridURL = srv.URL
	defer func() { SendGridURL = orig }()

	err := SendMail([]string{"a@x.com", "b@y.com"}, "Hello", "plain body", "<p>html body</p>")
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if len(gotPayload.Personalizations) != 2 {
		t.Fatalf("expected one personalization per recipient, got %d", len(gotPayload.Personalizations))
	}
	if gotPayload.Personalizations[0].To[0].Email != "a@x.com" {
		t.Errorf("first recipient = %q", gotPayload.Personalizations[0].To[0].Email)
	}
	if gotPayload.From.Email != "noreply@petrox.test" {
		t.Errorf("from = %q", gotPayload.From.Email)
	}
	if gotPayload.Subject != "Hello" {
		t.Errorf("subject = %q", gotPayload.Subject)
	}
	if len(gotPayload.Content) != 2 || gotPayload.Content[0].Type != "text/plain" {
		t.Errorf("content = %+v", gotPayload.Content)
	}
}

func TestSendMailErrorStatus(t *testing.T) {
	Settings.UseSendGrid = true

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	orig := SendGridURL
	SendGridURL = srv.URL
	defer func() { SendGridURL = orig }()

	if err := SendMail([]string{"a@x.com"}, "s", "b", ""); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendMailNoRecipients(t *testing.T) {
	if err := SendMail(nil, "s", "b", ""); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
}

func TestSendMailDisabled(t *testing.T) {
	Settings.UseSendGrid = false
	defer func() { Settings.UseSendGrid = true }()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	orig := SendGridURL
	SendGridURL = srv.URL
	defer func() { SendGridURL = orig }()

	if err := SendMail([]string{"a@x.com"}, "s", "b", ""); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("disabled sender must not hit the API")
	}
}

func TestRenderBroadcast(t *testing.T) {
	Settings.FrontendDomain = "https://petrox.test"

	html := renderBroadcastHTML("Subject", "Body text", "Open", "https://petrox.test/x")
	for _, want := range []string{"Subject", "Body text", `<a href="https://petrox.test/x">Open</a>`} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}

	text := renderBroadcastText("Subject", "Body text", "", "")
	if !strings.Contains(text, "Unsubscribe: https://petrox.test/unsubscribe") {
		t.Errorf("text missing unsubscribe link: %q", text)
	}
	if strings.Contains(text, "<a ") {
		t.Error("plain text should not contain markup")
	}
}
