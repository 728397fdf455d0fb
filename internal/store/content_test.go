// ABOUTME: Tests for the polymorphic content codec
// ABOUTME: Covers round-trips for all variants and malformed payload rejection

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_TextRoundTrip(t *testing.T) {
	encoded, err := EncodeContent([]Content{TextContent("hello")})
	require.NoError(t, err)

	decoded, err := DecodeContent(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, ContentTypeText, decoded[0].Type)
	assert.Equal(t, "hello", decoded[0].Text)
}

func TestContent_ImageRoundTrip(t *testing.T) {
	encoded, err := EncodeContent([]Content{ImageContent("aGVsbG8=", "a greeting")})
	require.NoError(t, err)

	decoded, err := DecodeContent(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, ContentTypeImage, decoded[0].Type)
	assert.Equal(t, "aGVsbG8=", decoded[0].Image.Base64Image)
	assert.Equal(t, "a greeting", decoded[0].Image.Caption)
}

func TestContent_MixedRoundTripPreservesImageOrder(t *testing.T) {
	original := MultiModalContent("hello", []Image{
		{Base64Image: "Zmlyc3Q=", Caption: "first"},
		{Base64Image: "c2Vjb25k", Caption: "second"},
	})

	encoded, err := EncodeContent([]Content{original})
	require.NoError(t, err)

	decoded, err := DecodeContent(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)

	got := decoded[0]
	assert.Equal(t, ContentTypeMultiModal, got.Type)
	assert.Equal(t, "hello", got.Text)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "first", got.Images[0].Caption)
	assert.Equal(t, "second", got.Images[1].Caption)
}

func TestContent_MultiModalWithoutImagesDecodesEmpty(t *testing.T) {
	decoded, err := DecodeContent([]byte(`[{"type":"multimodal","text":"just text"}]`))
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.NotNil(t, decoded[0].Images)
	assert.Empty(t, decoded[0].Images)
}

func TestContent_UnknownVariantRejected(t *testing.T) {
	_, err := DecodeContent([]byte(`[{"type":"video","url":"x"}]`))
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestContent_GarbageRejected(t *testing.T) {
	_, err := DecodeContent([]byte(`{{{not json`))
	assert.ErrorIs(t, err, ErrMalformedContent)
}

func TestMessage_Normalize(t *testing.T) {
	msg := &Message{
		Role: RoleUser,
		Content: []Content{
			TextContent("look at "),
			MultiModalContent("these", []Image{
				{Base64Image: "YQ==", Caption: "one"},
				{Base64Image: "Yg==", Caption: "two"},
			}),
			ImageContent("Yw==", "three"),
		},
	}

	entry := msg.Normalize()
	assert.Equal(t, RoleUser, entry.Role)
	assert.Equal(t, "look at these", entry.Content)
	require.Len(t, entry.Images, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{
		entry.Images[0].Caption, entry.Images[1].Caption, entry.Images[2].Caption,
	})
}

func TestMessage_NormalizeTextOnlyHasEmptyImages(t *testing.T) {
	msg := &Message{Role: RoleAssistant, Content: []Content{TextContent("plain")}}

	entry := msg.Normalize()
	assert.NotNil(t, entry.Images)
	assert.Empty(t, entry.Images)
}
