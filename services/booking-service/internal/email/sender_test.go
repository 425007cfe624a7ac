package email

import (
	"context"
	"encoding/base64"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage_PlainText(t *testing.T) {
	raw := string(buildMessage("from@example.com", Message{To: "to@example.com", Subject: "Hi", Body: "hello"}, time.Unix(0, 0)))
	for _, want := range []string{"From: from@example.com\r\n", "To: to@example.com\r\n", "Subject: Hi\r\n", "text/plain; charset=utf-8", "\r\n\r\nhello\r\n"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestBuildMessage_HeadersStayOnOneLine(t *testing.T) {
	raw := string(buildMessage("from@example.com", Message{
		To:      "to@example.com\r\nCc: other@example.com",
		Subject: "New Booking: Intro - Ada\r\nBcc: victim@example.com\r\nX-Injected: yes",
		Body:    "hello",
	}, time.Unix(0, 0)))

	head, _, _ := strings.Cut(raw, "\r\n\r\n")
	for _, line := range strings.Split(head, "\r\n") {
		for _, bad := range []string{"Bcc:", "Cc:", "X-Injected:"} {
			if strings.HasPrefix(line, bad) {
				t.Fatalf("header %q escaped its value:\n%s", line, head)
			}
		}
	}
	if !strings.Contains(head, "Subject: New Booking: Intro - Ada  Bcc: victim@example.com  X-Injected: yes\r\n") {
		t.Fatalf("unexpected subject:\n%s", head)
	}
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	raw := string(buildMessage("from@example.com", Message{To: "to@example.com", Subject: "Café", Body: "x"}, time.Unix(0, 0)))
	if !strings.Contains(raw, "Subject: =?utf-8?q?Caf=C3=A9?=\r\n") {
		t.Fatalf("expected encoded subject:\n%s", raw)
	}
}

func TestBuildMessage_Attachment(t *testing.T) {
	data := []byte(strings.Repeat("BEGIN:VCALENDAR\r\n", 10))
	raw := string(buildMessage("from@example.com", Message{
		To: "to@example.com", Subject: "Invite", Body: "see attached",
		Attachments: []Attachment{{Filename: "invite.ics", ContentType: "text/calendar; method=REQUEST", Data: data}},
	}, time.Unix(0, 0)))

	if !strings.Contains(raw, "multipart/mixed; boundary=") {
		t.Fatalf("expected multipart message:\n%s", raw)
	}
	if !strings.Contains(raw, `filename="invite.ics"`) {
		t.Fatalf("expected attachment disposition:\n%s", raw)
	}
	for _, line := range strings.Split(raw, "\r\n") {
		if len(line) > 998 {
			t.Fatalf("line exceeds SMTP limit")
		}
	}
	enc := base64.StdEncoding.EncodeToString(data)
	if !strings.Contains(strings.ReplaceAll(raw, "\r\n", ""), enc) {
		t.Fatalf("attachment payload not found")
	}
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mailpit", Port: "1025", From: "bookings@example.com"})
	var gotAddr, gotFrom string
	var gotTo []string
	var gotAuth smtp.Auth
	s.send = func(addr string, a smtp.Auth, from string, to []string, _ []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo = addr, a, from, to
		return nil
	}
	if err := s.Send(context.Background(), Message{To: "guest@example.com", Subject: "x", Body: "y"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "mailpit:1025" || gotFrom != "bookings@example.com" || len(gotTo) != 1 || gotTo[0] != "guest@example.com" {
		t.Fatalf("unexpected envelope addr=%s from=%s to=%v", gotAddr, gotFrom, gotTo)
	}
	if gotAuth != nil {
		t.Fatalf("expected no auth without username")
	}

	authed := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "u", Password: "p"})
	if authed.auth == nil {
		t.Fatalf("expected auth when username is set")
	}
}

func TestSMTPSender_RespectsContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mailpit", Port: "1025"})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatalf("send must not run for a cancelled context")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, Message{To: "a@example.com"}); err == nil {
		t.Fatalf("expected context error")
	}
}
