package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nwestfall/scribe/backend/internal/config"
	"github.com/nwestfall/scribe/backend/internal/model/knowledge"
)

// fallbackReply is returned when a well-formed envelope yields no text.
const fallbackReply = "No response generated"

const defaultTimeout = 60 * time.Second

// httpDoer lets tests swap the transport.
type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ReplySource tags which envelope case produced the reply text.
type ReplySource string

const (
	SourceResult   ReplySource = "result"
	SourceResponse ReplySource = "response"
	SourceText     ReplySource = "text"
	SourcePlain    ReplySource = "plain"
	SourceRaw      ReplySource = "raw"
	SourceNone     ReplySource = "none"
)

// Reply is the display text extracted from an agent response together with
// the fallback case that produced it.
type Reply struct {
	Text   string
	Source ReplySource
}

// replyEnvelope mirrors the loose response contract of the agent endpoint.
// Response is either a plain string or a structured object.
type replyEnvelope struct {
	Success     bool            `json:"success"`
	Response    json.RawMessage `json:"response"`
	RawResponse string          `json:"raw_response"`
}

type structuredReply struct {
	Result   string `json:"result"`
	Response string `json:"response"`
	Text     string `json:"text"`
}

// Client talks to the external chat agent endpoint: one request per turn,
// no retries, no streaming.
type Client struct {
	endpoint string
	agentID  string
	http     httpDoer
	log      *zap.Logger
}

// NewClient builds the agent client from configuration.
func NewClient(cfg config.AgentConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		endpoint: cfg.Endpoint,
		agentID:  cfg.AgentID,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// SendMessage assembles the turn payload for the conversation and sends it.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string, docs []knowledge.Document) (Reply, error) {
	return c.SendTurn(ctx, BuildTurnRequest(c.agentID, conversationID, text, docs))
}

// SendTurn posts one assembled turn to the agent endpoint and extracts the
// reply text from the response envelope.
func (c *Client) SendTurn(ctx context.Context, turn TurnRequest) (Reply, error) {
	payload, err := json.Marshal(turn)
	if err != nil {
		return Reply{}, fmt.Errorf("encode turn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("call agent endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read agent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Reply{}, buildStatusError(resp.StatusCode, body)
	}

	reply, err := resolveReply(body)
	if err != nil {
		return Reply{}, err
	}

	c.log.Debug("agent turn completed",
		zap.String("sessionId", turn.SessionID),
		zap.String("source", string(reply.Source)))
	return reply, nil
}

// buildStatusError reports a non-200 answer with a short body snippet.
func buildStatusError(statusCode int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		snippet = http.StatusText(statusCode)
	}
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	return fmt.Errorf("agent endpoint returned %d: %s", statusCode, snippet)
}

// resolveReply walks the ordered fallback cases over the decoded envelope.
// The first case yielding non-empty text wins; raw_response is reachable
// regardless of the success flag when the earlier cases come up empty.
func resolveReply(body []byte) (Reply, error) {
	var envelope replyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Reply{}, fmt.Errorf("decode agent response: %w", err)
	}

	if envelope.Success && len(envelope.Response) > 0 {
		var structured structuredReply
		if err := json.Unmarshal(envelope.Response, &structured); err == nil {
			switch {
			case structured.Result != "":
				return Reply{Text: structured.Result, Source: SourceResult}, nil
			case structured.Response != "":
				return Reply{Text: structured.Response, Source: SourceResponse}, nil
			case structured.Text != "":
				return Reply{Text: structured.Text, Source: SourceText}, nil
			}
		} else {
			var plain string
			if err := json.Unmarshal(envelope.Response, &plain); err == nil && plain != "" {
				return Reply{Text: plain, Source: SourcePlain}, nil
			}
		}
	}

	if envelope.RawResponse != "" {
		return Reply{Text: envelope.RawResponse, Source: SourceRaw}, nil
	}
	return Reply{Text: fallbackReply, Source: SourceNone}, nil
}
