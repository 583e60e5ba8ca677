package mailbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractBody_TopLevelPayload(t *testing.T) {
	msg := &Message{
		ID: "m1",
		Payload: &Part{
			MimeType: "text/plain",
			Body:     &PartBody{Data: encode("Rs. 500.00 received")},
		},
	}
	if got := ExtractBody(msg); got != "Rs. 500.00 received" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractBody_PrefersPlainOverHTML(t *testing.T) {
	msg := &Message{
		Payload: &Part{
			MimeType: "multipart/alternative",
			Parts: []*Part{
				{MimeType: "text/html", Body: &PartBody{Data: encode("<b>Rs. 999.00</b>")}},
				{MimeType: "text/plain", Body: &PartBody{Data: encode("Rs. 500.00 received")}},
			},
		},
	}
	if got := ExtractBody(msg); got != "Rs. 500.00 received" {
		t.Fatalf("expected plain part to win, got %q", got)
	}
}

func TestExtractBody_HTMLOnlyStripped(t *testing.T) {
	html := `<html><body><p>Rs.   500.00</p>
	<p>received   from <b>someone</b></p></body></html>`
	msg := &Message{
		Payload: &Part{
			MimeType: "multipart/alternative",
			Parts: []*Part{
				{MimeType: "text/html", Body: &PartBody{Data: encode(html)}},
			},
		},
	}
	got := ExtractBody(msg)
	if got != "Rs. 500.00 received from someone" {
		t.Fatalf("expected tag-stripped collapsed text, got %q", got)
	}
	if strings.Contains(got, "<") {
		t.Fatalf("markup survived: %q", got)
	}
}

func TestExtractBody_RecursesIntoNestedParts(t *testing.T) {
	msg := &Message{
		Payload: &Part{
			MimeType: "multipart/mixed",
			Parts: []*Part{
				{MimeType: "application/pdf", Body: &PartBody{}},
				{
					MimeType: "multipart/alternative",
					Parts: []*Part{
						{MimeType: "text/plain", Body: &PartBody{Data: encode("nested Rs. 42.00")}},
					},
				},
			},
		},
	}
	if got := ExtractBody(msg); got != "nested Rs. 42.00" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractBody_LastResortAnyDecodablePart(t *testing.T) {
	msg := &Message{
		Payload: &Part{
			MimeType: "multipart/mixed",
			Parts: []*Part{
				{MimeType: "application/octet-stream", Body: &PartBody{Data: encode("raw payload text")}},
			},
		},
	}
	if got := ExtractBody(msg); got != "raw payload text" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractBody_Empty(t *testing.T) {
	if got := ExtractBody(nil); got != "" {
		t.Fatalf("nil message: got %q", got)
	}
	if got := ExtractBody(&Message{Payload: &Part{MimeType: "multipart/mixed"}}); got != "" {
		t.Fatalf("empty payload: got %q", got)
	}
}

func TestDecodeBase64URL_AlphabetSubstitution(t *testing.T) {
	// URL-safe alphabet with padding stripped, the provider's wire format.
	raw := base64.RawURLEncoding.EncodeToString([]byte("subject?>>payload"))
	got, err := decodeBase64URL(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "subject?>>payload" {
		t.Fatalf("got %q", got)
	}
}
