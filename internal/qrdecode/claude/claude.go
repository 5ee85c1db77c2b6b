// Package claude is a last-resort qrdecode strategy that asks a Claude
// vision model to transcribe the code.
package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/librarydesk/internal/qrdecode"
)

// Prompt asks for the payload only, so the reply can be used as a QR value.
const Prompt = `This photo should contain a QR code printed on a library book label.
Read the QR code and reply with its exact encoded text and nothing else.
If there is no QR code, reply NONE. If there is a QR code but it cannot be
read reliably, reply UNREADABLE.`

const maxTokens = 128

type Strategy struct {
	client *anthropic.Client
	model  string
}

// New returns a strategy for model. An empty baseURL uses the public API.
func New(apiKey, model, baseURL string) *Strategy {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Strategy{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (s *Strategy) Name() string {
	return "claude"
}

func (s *Strategy) Decode(ctx context.Context, in *qrdecode.Input) (string, error) {
	if in == nil || len(in.Data) == 0 {
		return "", qrdecode.ErrUnsupported
	}

	resp, err := s.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(in.MIME),
					base64.StdEncoding.EncodeToString(in.Data),
				)),
				anthropic.NewTextMessageContent(Prompt),
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			text = c.GetText()
			break
		}
	}
	return parseReply(text)
}

func parseReply(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`")
	text = strings.TrimSpace(text)
	switch strings.ToUpper(text) {
	case "", "NONE":
		return "", qrdecode.ErrNoCode
	case "UNREADABLE":
		return "", qrdecode.ErrUnreadable
	}
	return text, nil
}

// normaliseMIME maps upload types to the ones the Messages API accepts.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
