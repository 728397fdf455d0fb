// ABOUTME: Tagged-union message content: text, captioned image, or multimodal
// ABOUTME: Explicit encode/decode off a "type" discriminant; round-trip safe

package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Content type discriminants as stored in the content column.
const (
	ContentTypeText       = "text"
	ContentTypeImage      = "image"
	ContentTypeMultiModal = "multimodal"
)

// Image is a base64-encoded image with an optional caption.
type Image struct {
	Base64Image string `json:"base64_image"`
	Caption     string `json:"caption,omitempty"`
}

// Content is one part of a message payload. Exactly one shape is populated
// depending on Type:
//
//   - text: Text
//   - image: Image
//   - multimodal: Text plus Images
type Content struct {
	Type   string
	Text   string
	Image  Image
	Images []Image
}

// TextContent builds a plain text part.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ImageContent builds a single captioned image part.
func ImageContent(base64Image, caption string) Content {
	return Content{Type: ContentTypeImage, Image: Image{Base64Image: base64Image, Caption: caption}}
}

// MultiModalContent builds a mixed text-plus-images part.
func MultiModalContent(text string, images []Image) Content {
	return Content{Type: ContentTypeMultiModal, Text: text, Images: images}
}

// contentWire is the stored JSON shape shared by all variants.
type contentWire struct {
	Type        string  `json:"type"`
	Text        string  `json:"text,omitempty"`
	Base64Image string  `json:"base64_image,omitempty"`
	Caption     string  `json:"caption,omitempty"`
	Images      []Image `json:"images,omitempty"`
}

// MarshalJSON encodes the populated variant with its discriminant.
func (c Content) MarshalJSON() ([]byte, error) {
	w := contentWire{Type: c.Type}
	switch c.Type {
	case ContentTypeText:
		w.Text = c.Text
	case ContentTypeImage:
		w.Base64Image = c.Image.Base64Image
		w.Caption = c.Image.Caption
	case ContentTypeMultiModal:
		w.Text = c.Text
		w.Images = c.Images
	default:
		return nil, fmt.Errorf("%w: unknown content type %q", ErrMalformedContent, c.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a stored part, rejecting unknown discriminants.
func (c *Content) UnmarshalJSON(data []byte) error {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}

	switch w.Type {
	case ContentTypeText:
		*c = Content{Type: ContentTypeText, Text: w.Text}
	case ContentTypeImage:
		*c = Content{Type: ContentTypeImage, Image: Image{Base64Image: w.Base64Image, Caption: w.Caption}}
	case ContentTypeMultiModal:
		images := w.Images
		if images == nil {
			images = []Image{}
		}
		*c = Content{Type: ContentTypeMultiModal, Text: w.Text, Images: images}
	default:
		return fmt.Errorf("%w: unknown content type %q", ErrMalformedContent, w.Type)
	}
	return nil
}

// EncodeContent serializes message parts for the content column.
func EncodeContent(parts []Content) ([]byte, error) {
	if parts == nil {
		parts = []Content{}
	}
	return json.Marshal(parts)
}

// DecodeContent parses a stored content column back into message parts.
func DecodeContent(data []byte) ([]Content, error) {
	var parts []Content
	if err := json.Unmarshal(data, &parts); err != nil {
		if errors.Is(err, ErrMalformedContent) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}
	return parts, nil
}

// ChatEntry is the canonical flattened shape handed to model providers: a
// role-tagged object carrying the text and every image of one message.
// Images is always non-nil so the shape round-trips.
type ChatEntry struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Images  []Image `json:"images"`
}

// Normalize flattens a message into its canonical ChatEntry. Text parts
// concatenate in order; images keep their original order regardless of
// which variant carried them.
func (m *Message) Normalize() ChatEntry {
	entry := ChatEntry{Role: m.Role, Images: []Image{}}
	for _, part := range m.Content {
		switch part.Type {
		case ContentTypeText:
			entry.Content += part.Text
		case ContentTypeImage:
			entry.Images = append(entry.Images, part.Image)
		case ContentTypeMultiModal:
			entry.Content += part.Text
			entry.Images = append(entry.Images, part.Images...)
		}
	}
	return entry
}
