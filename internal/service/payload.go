package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/set-night/histamine-helper/internal/domain"
)

// Multipart field names understood by the proxy.
const (
	FieldMessages = "messages"
	FieldModel    = "model"
)

// ImageContent is the content of a message that carries a photo.
type ImageContent struct {
	Text  string `json:"text"`
	Image string `json:"image"` // base64 JPEG
}

// ProxyMessage is one role/content pair. Content is a string or ImageContent.
type ProxyMessage struct {
	Role    domain.Role `json:"role"`
	Content interface{} `json:"content"`
}

// ImagePreparer turns captured image bytes into the JPEG that is sent upstream.
type ImagePreparer func(image []byte) ([]byte, error)

// BuildSendFields encodes the whole transcript, images included, into proxy form fields.
func BuildSendFields(transcript []domain.Message, prepare ImagePreparer) (map[string]string, error) {
	messages := make([]ProxyMessage, 0, len(transcript))
	for _, m := range transcript {
		pm := ProxyMessage{Role: m.Role, Content: m.Text}
		if m.HasImage() {
			jpegData, err := prepare(m.Image)
			if err != nil {
				slog.Warn("dropping image from proxy payload", "message_id", m.ID, "error", err)
			} else {
				pm.Content = ImageContent{
					Text:  m.Text,
					Image: base64.StdEncoding.EncodeToString(jpegData),
				}
			}
		}
		messages = append(messages, pm)
	}

	encoded, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	return map[string]string{FieldMessages: string(encoded)}, nil
}

// BuildTitleFields encodes the transcript as text only, followed by the naming instruction.
func BuildTitleFields(transcript []domain.Message, instruction, model string) (map[string]string, error) {
	messages := make([]ProxyMessage, 0, len(transcript)+1)
	for _, m := range transcript {
		messages = append(messages, ProxyMessage{Role: m.Role, Content: m.Text})
	}
	messages = append(messages, ProxyMessage{Role: domain.RoleUser, Content: instruction})

	encoded, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	fields := map[string]string{FieldMessages: string(encoded)}
	if model != "" {
		fields[FieldModel] = model
	}
	return fields, nil
}

type ReplyKind int

const (
	ReplyUnknown ReplyKind = iota
	ReplyCompletion
	ReplyText
)

type Reply struct {
	Kind ReplyKind
	Text string
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompletionContent extracts choices[0].message.content from an OpenAI-style body.
func CompletionContent(body []byte) (string, bool) {
	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}

// ParseReply classifies a proxy body. Any UTF-8 body that is not a completion is kept verbatim.
func ParseReply(body []byte) Reply {
	if content, ok := CompletionContent(body); ok {
		return Reply{Kind: ReplyCompletion, Text: content}
	}
	if utf8.Valid(body) {
		return Reply{Kind: ReplyText, Text: string(body)}
	}
	return Reply{Kind: ReplyUnknown}
}
