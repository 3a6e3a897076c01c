package extract

import (
	"encoding/base64"
	"strings"

	"mailsweep/internal/model"
)

// FlattenText walks the part tree depth-first and concatenates the decoded
// text/plain and text/html leaves in traversal order. Undecodable leaves are
// skipped.
func FlattenText(part *model.Part) string {
	return strings.Join(leaves(part, isText), "")
}

// HTMLParts returns only the decoded text/html leaves, in traversal order.
func HTMLParts(part *model.Part) []string {
	return leaves(part, func(mime string) bool { return strings.EqualFold(mime, "text/html") })
}

// leaves returns the decoded payloads of the leaves under part whose MIME type
// satisfies match.
func leaves(part *model.Part, match func(string) bool) []string {
	if part == nil {
		return nil
	}
	if part.IsLeaf() {
		if !match(part.MimeType) {
			return nil
		}
		if s, ok := decodeBase64URL(part.Data); ok && s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, sub := range part.Parts {
		out = append(out, leaves(sub, match)...)
	}
	return out
}

func isText(mime string) bool {
	mime = strings.ToLower(mime)
	return mime == "text/plain" || mime == "text/html"
}

func decodeBase64URL(data string) (string, bool) {
	if data == "" {
		return "", false
	}
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		// Gmail uses unpadded base64url
		b, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", false
		}
	}
	return strings.ToValidUTF8(string(b), ""), true
}
