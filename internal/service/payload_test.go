package service

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/histamine-helper/internal/domain"
)

func TestMultipartRoundTripKeepsImage(t *testing.T) {
	now := time.Now()
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	transcript := []domain.Message{
		domain.NewMessage(domain.RoleUser, "Is this histamine friendly?", img, now),
	}

	fields, err := BuildSendFields(transcript, passthrough)
	require.NoError(t, err)

	buf, contentType, err := EncodeMultipart(fields)
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)

	form, err := multipart.NewReader(buf, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	require.Len(t, form.Value[FieldMessages], 1)

	var messages []struct {
		Role    string       `json:"role"`
		Content ImageContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(form.Value[FieldMessages][0]), &messages))
	require.Len(t, messages, 1)

	decoded, err := base64.StdEncoding.DecodeString(messages[0].Content.Image)
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
	assert.Equal(t, "Is this histamine friendly?", messages[0].Content.Text)
}

func TestEncodeMultipartOrdersKeys(t *testing.T) {
	buf, contentType, err := EncodeMultipart(map[string]string{"b": "2", "a": "1", "c": "3"})
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Contains(t, params["boundary"], "Boundary-")

	var names []string
	mr := multipart.NewReader(buf, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, p.FormName())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBuildSendFieldsDropsUndecodableImage(t *testing.T) {
	transcript := []domain.Message{
		domain.NewMessage(domain.RoleUser, "what is this?", []byte("not an image"), time.Now()),
	}

	fields, err := BuildSendFields(transcript, NewImageResizer(1000, 40).Prepare)
	require.NoError(t, err)

	var messages []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(fields[FieldMessages]), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "what is this?", messages[0].Content)
}

func TestBuildTitleFieldsWithoutModel(t *testing.T) {
	fields, err := BuildTitleFields(nil, "label this", "")
	require.NoError(t, err)
	_, ok := fields[FieldModel]
	assert.False(t, ok)
	assert.JSONEq(t, `[{"role":"user","content":"label this"}]`, fields[FieldMessages])
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind ReplyKind
		text string
	}{
		{
			name: "completion",
			body: `{"choices":[{"message":{"role":"assistant","content":"Safe to eat"}}]}`,
			kind: ReplyCompletion,
			text: "Safe to eat",
		},
		{
			name: "empty content falls back to text",
			body: `{"choices":[{"message":{"content":""}}]}`,
			kind: ReplyText,
			text: `{"choices":[{"message":{"content":""}}]}`,
		},
		{
			name: "plain text",
			body: "Rate limit exceeded",
			kind: ReplyText,
			text: "Rate limit exceeded",
		},
		{
			name: "invalid utf8",
			body: string([]byte{0xc3, 0x28}),
			kind: ReplyUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := ParseReply([]byte(tt.body))
			assert.Equal(t, tt.kind, reply.Kind)
			assert.Equal(t, tt.text, reply.Text)
		})
	}
}
