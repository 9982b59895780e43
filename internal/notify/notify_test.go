package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/talentmetrics/internal/config"
)

func validMessage() Message {
	return Message{
		Receivers:  []string{"ops@example.com", "lead@example.com"},
		TemplateID: "d-123",
		Data:       map[string]any{"run_id": "abc", "flows": 3},
		Attachments: []Attachment{
			{Filename: "metrics_report.csv", Type: "text/csv", Content: []byte("a,b\n")},
		},
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Message)
		wantErr bool
	}{
		{"valid", func(*Message) {}, false},
		{"no receivers", func(m *Message) { m.Receivers = nil }, true},
		{"bad receiver", func(m *Message) { m.Receivers = []string{"not-an-email"} }, true},
		{"no template", func(m *Message) { m.TemplateID = "" }, true},
		{"attachment without name", func(m *Message) { m.Attachments[0].Filename = "" }, true},
		{"attachment without content", func(m *Message) { m.Attachments[0].Content = nil }, true},
		{"no attachments", func(m *Message) { m.Attachments = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validMessage()
			tt.mutate(&msg)
			err := msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, ok := New(config.NotifyConfig{}).(Noop); !ok {
		t.Error("New() without API key should return Noop")
	}

	n := New(config.NotifyConfig{APIKey: "SG.key", Sender: "reports@example.com"})
	sg, ok := n.(*SendGrid)
	if !ok {
		t.Fatalf("New() = %T, want *SendGrid", n)
	}
	if sg.Host != DefaultHost || sg.Sender != "reports@example.com" {
		t.Errorf("SendGrid = %+v", sg)
	}
}

type sentMail struct {
	From             struct{ Email string } `json:"from"`
	TemplateID       string                 `json:"template_id"`
	Personalizations []struct {
		To                  []struct{ Email string } `json:"to"`
		DynamicTemplateData map[string]any           `json:"dynamic_template_data"`
	} `json:"personalizations"`
	Attachments []struct {
		Content     string `json:"content"`
		Type        string `json:"type"`
		Filename    string `json:"filename"`
		Disposition string `json:"disposition"`
	} `json:"attachments"`
}

func TestSendGrid_Send(t *testing.T) {
	var (
		got  sentMail
		auth string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg := &SendGrid{APIKey: "SG.key", Sender: "reports@example.com", Host: srv.URL}
	if !sg.Send(context.Background(), validMessage()) {
		t.Fatal("Send() = false, want true")
	}

	if path != "/v3/mail/send" {
		t.Errorf("path = %q, want /v3/mail/send", path)
	}
	if auth != "Bearer SG.key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.From.Email != "reports@example.com" || got.TemplateID != "d-123" {
		t.Errorf("from/template = %q/%q", got.From.Email, got.TemplateID)
	}
	if len(got.Personalizations) != 1 || len(got.Personalizations[0].To) != 2 {
		t.Fatalf("personalizations = %+v", got.Personalizations)
	}
	if got.Personalizations[0].DynamicTemplateData["run_id"] != "abc" {
		t.Errorf("template data = %v", got.Personalizations[0].DynamicTemplateData)
	}
	if len(got.Attachments) != 1 {
		t.Fatalf("len(attachments) = %d, want 1", len(got.Attachments))
	}
	a := got.Attachments[0]
	if a.Content != base64.StdEncoding.EncodeToString([]byte("a,b\n")) || a.Disposition != "attachment" || a.Filename != "metrics_report.csv" {
		t.Errorf("attachment = %+v", a)
	}
}

func TestSendGrid_SendFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad key"}]}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	sg := &SendGrid{APIKey: "SG.bad", Sender: "reports@example.com", Host: srv.URL}
	if sg.Send(context.Background(), validMessage()) {
		t.Error("Send() = true for a rejected request")
	}

	calls := 0
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer counting.Close()

	sg.Host = counting.URL
	invalid := validMessage()
	invalid.TemplateID = ""
	if sg.Send(context.Background(), invalid) {
		t.Error("Send() = true for an invalid message")
	}
	if calls != 0 {
		t.Errorf("invalid message reached the API %d times", calls)
	}
}

func TestNoop_Send(t *testing.T) {
	if (Noop{}).Send(context.Background(), validMessage()) {
		t.Error("Noop.Send() = true, want false")
	}
}
