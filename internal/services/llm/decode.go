package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// DecodeLLMJSON decodes JSON from an LLM response, handling common formatting quirks:
// markdown fences, prose around the payload, and trailing commas.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}

	sanitizedErr := json.Unmarshal([]byte(sanitized), target)
	if sanitizedErr == nil {
		return nil
	}
	return fmt.Errorf("%w (sanitized payload snippet: %s)", sanitizedErr, summarizePayloadSnippet(sanitized))
}

// sanitizeJSONPayload strips fences, slices out whichever of object or array
// opens first, and drops trailing commas.
func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(StripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	objStart := strings.Index(trimmed, "{")
	arrStart := strings.Index(trimmed, "[")
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		if end := strings.LastIndex(trimmed, "}"); end > objStart {
			trimmed = trimmed[objStart : end+1]
		}
	case arrStart >= 0:
		if end := strings.LastIndex(trimmed, "]"); end > arrStart {
			trimmed = trimmed[arrStart : end+1]
		}
	}
	return strings.TrimSpace(trailingCommaPattern.ReplaceAllString(trimmed, "$1"))
}

// StripCodeFence removes a surrounding markdown code fence (```lang ... ```)
// and returns the trimmed body. Text without a leading fence is returned trimmed.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	if nl := strings.IndexAny(body, "\r\n"); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(lang, " \t") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimLeft(body, " \t")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
