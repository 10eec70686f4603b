package ir

// ContentBlockType discriminates the variants of ContentBlock. Tagged
// union over a flat struct rather than an interface hierarchy — the
// variant set is closed and small.
type ContentBlockType string

const (
	ContentText      ContentBlockType = "text"
	ContentImageURL  ContentBlockType = "image_url"
	ContentJSON      ContentBlockType = "json"
	ContentReasoning ContentBlockType = "reasoning"
	ContentMetadata  ContentBlockType = "metadata"
	ContentBlob      ContentBlockType = "blob"
)

// ContentBlock is one tagged element of a message's content list.
type ContentBlock struct {
	Type ContentBlockType

	// Text holds the text for ContentText and the rendered body for
	// ContentReasoning.
	Text string

	// ImageURL and ImageMime apply to ContentImageURL. ImageURL may be
	// a data: URI (already decoded from a provider-native image
	// source) or a literal URL.
	ImageURL  string
	ImageMime string

	// JSONData holds the arbitrary payload for ContentJSON.
	JSONData interface{}

	// ReasoningSignature carries provider signature metadata attached
	// to a reasoning block (e.g. Gemini thought signatures surfaced
	// through the IR rather than the provider layer).
	ReasoningSignature string

	// Metadata holds opaque key-value data for ContentMetadata.
	Metadata map[string]interface{}

	// Blob holds raw bytes for ContentBlob.
	Blob []byte
}

// IsMeaningfulNonReasoning reports whether block carries user-visible
// content that is not a reasoning trace: non-empty trimmed text,
// non-empty image URL, or JSON with non-nil data. Used by the
// ensure-tool-call subsystem's "meaningful content" test.
func (b ContentBlock) IsMeaningfulNonReasoning() bool {
	switch b.Type {
	case ContentText:
		return trimmedNonEmpty(b.Text)
	case ContentImageURL:
		return b.ImageURL != ""
	case ContentJSON:
		return b.JSONData != nil
	default:
		return false
	}
}

func trimmedNonEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
