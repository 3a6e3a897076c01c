package imapmail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"mailsweep/internal/model"
)

// Parse turns a raw RFC 822 message into the shared message model. Leaf
// bodies are transfer-decoded, converted to UTF-8 and re-encoded as base64url
// so both providers hand the extractor the same shape.
func Parse(id string, raw []byte) (*model.Message, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}

	msg := &model.Message{ID: id}
	fields := e.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		msg.Headers = append(msg.Headers, model.HeaderField{Name: fields.Key(), Value: value})
	}

	part, err := toPart(e)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", id, err)
	}
	msg.Payload = part
	return msg, nil
}

func toPart(e *message.Entity) (*model.Part, error) {
	mediaType, _, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}
	part := &model.Part{MimeType: mediaType}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
				return part, err
			}
			p, err := toPart(child)
			if err != nil {
				return part, err
			}
			part.Parts = append(part.Parts, p)
		}
		return part, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		// Truncated or badly encoded bodies contribute nothing.
		return part, nil
	}
	if len(body) > 0 {
		part.Data = base64.URLEncoding.EncodeToString(body)
	}
	return part, nil
}
