package extract

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsweep/internal/model"
)

func b64(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func leaf(mime, body string) *model.Part {
	return &model.Part{MimeType: mime, Data: b64(body)}
}

func TestFromMessage_HTMLBodyScenario(t *testing.T) {
	msg := &model.Message{
		ID:      "m1",
		Headers: model.Headers{{Name: "From", Value: "Newsletter <news@example.com>"}},
		Payload: leaf("text/html", `<a href="https://x.com/unsubscribe?id=1">unsubscribe</a>`),
	}

	links := FromMessage(msg)
	assert.Equal(t, []string{"https://x.com/unsubscribe?id=1"}, links.All())
	assert.Equal(t, "https://x.com/unsubscribe?id=1", links.Best())
}

func TestFromMessage_HeaderTokensKeepOnlyHTTP(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   []string
	}{
		{"mailto and https", "<mailto:unsub@list.example.com>, <https://list.example.com/u?x=1>", []string{"https://list.example.com/u?x=1"}},
		{"mailto only", "<mailto:unsub@list.example.com?subject=unsubscribe>", []string{}},
		{"two http", "<http://a.example.com/u>,<https://b.example.com/u>", []string{"http://a.example.com/u", "https://b.example.com/u"}},
		{"uppercase scheme is not http-prefixed", "<HTTPS://c.example.com/u>", []string{}},
		{"no brackets", "https://d.example.com/u", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := &model.Message{Headers: model.Headers{{Name: "list-UNSUBSCRIBE", Value: tc.header}}}
			links := FromMessage(msg)
			assert.Equal(t, tc.want, links.Header)
			assert.Empty(t, links.Body)
			assert.Equal(t, tc.want, links.All())
		})
	}
}

func TestFromMessage_NoLinks(t *testing.T) {
	msg := &model.Message{
		Headers: model.Headers{{Name: "Subject", Value: "hello"}},
		Payload: &model.Part{MimeType: "multipart/alternative", Parts: []*model.Part{
			leaf("text/plain", "Nothing to see at https://example.com/about"),
			leaf("text/html", `<p>Visit <a href="https://example.com/">us</a></p>`),
		}},
	}
	links := FromMessage(msg)
	assert.Empty(t, links.All())
	assert.Equal(t, "", links.Best())
}

func TestFromMessage_BodyPatterns(t *testing.T) {
	text := "Manage: https://a.example.com/opt-out?u=1 or https://b.example.com/OPTOUT\n" +
		"Remove me: https://c.example.com/remove/42\n" +
		`<a href='/relative/unsubscribe'>x</a> <a href="https://d.example.com/opt_out?a=1&amp;b=2">stop</a>`
	msg := &model.Message{Payload: leaf("text/plain", text)}

	links := FromMessage(msg)
	assert.Equal(t, []string{
		"https://a.example.com/opt-out?u=1",
		"https://b.example.com/OPTOUT",
		"https://c.example.com/remove/42",
		"https://d.example.com/opt_out?a=1&b=2",
	}, links.Body)
}

func TestFromMessage_AnchorTextAndNestedParts(t *testing.T) {
	html := `<html><body><p>Bye?</p><a href="https://mail.example.com/l/abc123">Unsubscribe from this list</a></body></html>`
	msg := &model.Message{
		Headers: model.Headers{{Name: "List-Unsubscribe", Value: "<https://list.example.com/one-click>"}},
		Payload: &model.Part{MimeType: "multipart/mixed", Parts: []*model.Part{
			{MimeType: "multipart/alternative", Parts: []*model.Part{
				leaf("text/plain", "plain version"),
				leaf("text/html", html),
			}},
			{MimeType: "application/pdf", Data: b64("https://pdf.example.com/unsubscribe")},
		}},
	}

	links := FromMessage(msg)
	assert.Equal(t, []string{"https://mail.example.com/l/abc123"}, links.Body)
	assert.Equal(t, "https://list.example.com/one-click", links.Best(), "header link is preferred")
	assert.Len(t, links.All(), 2)
}

func TestFlattenText_OrderAndBadData(t *testing.T) {
	root := &model.Part{MimeType: "multipart/mixed", Parts: []*model.Part{
		leaf("text/plain", "one "),
		{MimeType: "text/plain", Data: "!!not base64!!"},
		{MimeType: "multipart/alternative", Parts: []*model.Part{
			leaf("text/html", "<b>two</b> "),
		}},
		leaf("text/plain", "three"),
	}}
	assert.Equal(t, "one <b>two</b> three", FlattenText(root))
	assert.Equal(t, "", FlattenText(nil))
}

func TestFlattenText_PaddedBase64(t *testing.T) {
	p := &model.Part{MimeType: "text/plain", Data: base64.URLEncoding.EncodeToString([]byte("ab"))}
	require.Equal(t, "ab", FlattenText(p))
}

func TestLinks_DeterministicOrder(t *testing.T) {
	l := Links{Header: []string{"https://z.example.com"}, Body: []string{"https://a.example.com", "https://z.example.com"}}
	assert.Equal(t, []string{"https://a.example.com", "https://z.example.com"}, l.All())
	assert.Equal(t, 2, l.Len())
}
