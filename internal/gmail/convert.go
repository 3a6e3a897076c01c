package gmail

import (
	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsweep/internal/model"
)

func toModel(msg *gmailv1.Message) *model.Message {
	out := &model.Message{ID: msg.Id, Snippet: msg.Snippet}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		out.Headers = append(out.Headers, model.HeaderField{Name: h.Name, Value: h.Value})
	}
	out.Payload = toPart(msg.Payload)
	return out
}

// toPart copies the Gmail part tree; body data stays base64url encoded.
func toPart(p *gmailv1.MessagePart) *model.Part {
	if p == nil {
		return nil
	}
	part := &model.Part{MimeType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, sub := range p.Parts {
		if c := toPart(sub); c != nil {
			part.Parts = append(part.Parts, c)
		}
	}
	return part
}
