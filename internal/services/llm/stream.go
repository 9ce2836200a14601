package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const sseDataPrefix = "data:"

type streamChunk struct {
	Choices []struct {
		Delta        chatCompletionMessage `json:"delta"`
		FinishReason string                `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamGenerate issues a streaming chat completion. Each content delta is
// passed to onChunk (when non-nil) as it arrives; the assembled text is
// returned. Failures before the first chunk are retried like Generate.
func (c *Client) StreamGenerate(ctx context.Context, systemPrompt, userPrompt string, onChunk func(string) error) (string, error) {
	const op = "llm stream"
	payload, err := c.buildRequest(op, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	payload.Temperature = c.cfg.Temperature
	payload.Stream = true

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, started, err := c.streamOnce(ctx, payload, onChunk)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				err = &emptyContentError{Op: op, Snippet: "<stream>"}
			} else {
				return strings.TrimSpace(text), nil
			}
		}
		if started {
			return "", fmt.Errorf("%s: interrupted: %w", op, err)
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) streamOnce(ctx context.Context, payload chatCompletionRequest, onChunk func(string) error) (string, bool, error) {
	req, err := c.newHTTPRequest(ctx, payload)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", false, newHTTPStatusError(resp, body)
	}
	return readEventStream(resp.Body, onChunk)
}

// readEventStream consumes an OpenAI-style SSE body. The bool result reports
// whether any content was delivered, which makes the call unsafe to retry.
func readEventStream(r io.Reader, onChunk func(string) error) (string, bool, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	started := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
		if data == "[DONE]" {
			break
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return out.String(), started, fmt.Errorf("llm stream: decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return out.String(), started, fmt.Errorf("llm stream: api error: %s", strings.TrimSpace(chunk.Error.Message))
		}
		for _, choice := range chunk.Choices {
			delta := choice.Delta.Content
			if delta == "" {
				continue
			}
			started = true
			out.WriteString(delta)
			if onChunk != nil {
				if err := onChunk(delta); err != nil {
					return out.String(), started, err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return out.String(), started, fmt.Errorf("llm stream: read: %w", err)
	}
	return out.String(), started, nil
}
