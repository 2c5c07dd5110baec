package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultResponsesURL = "https://api.openai.com/v1/responses"

// OpenAIConfig configures the OpenAI-compatible responses endpoint and HTTP
// behavior.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

// OpenAINarrator calls an OpenAI-style responses endpoint to generate
// narration for a turn batch.
type OpenAINarrator struct {
	cfg OpenAIConfig
}

// NewOpenAINarrator builds a narrator backed by an OpenAI-style endpoint.
func NewOpenAINarrator(cfg OpenAIConfig) *OpenAINarrator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = defaultResponsesURL
	}
	return &OpenAINarrator{cfg: cfg}
}

// Narrate sends the turn context to the responses endpoint and returns the
// parsed narration.
//
// The collaborator is asked to reply with a JSON object containing the
// narration plus optional scene updates; a plain-text reply is accepted and
// treated as narration with no scene changes.
func (n *OpenAINarrator) Narrate(ctx context.Context, req Request) (Response, error) {
	apiKey := strings.TrimSpace(n.cfg.APIKey)
	model := strings.TrimSpace(n.cfg.Model)
	if apiKey == "" {
		return Response{}, fmt.Errorf("api key is required")
	}
	if model == "" {
		return Response{}, fmt.Errorf("model is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"input": buildPrompt(req),
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal narrate request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return Response{}, fmt.Errorf("build narrate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is never
	// echoed in errors or response payloads.
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := n.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("narrate request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return Response{}, fmt.Errorf("read narrate error body: %w", err)
		}
		return Response{}, fmt.Errorf("narrate request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Response{}, fmt.Errorf("decode narrate response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return Response{}, fmt.Errorf("narrate response missing output text")
	}

	return parseNarration(outputText), nil
}

// buildPrompt renders the turn context as the collaborator's input text.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are the game master of a shared tabletop adventure.\n")
	if req.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.Location)
	}
	if req.Scene != "" {
		fmt.Fprintf(&b, "Scene: %s\n", req.Scene)
	}
	if len(req.RecentStory) > 0 {
		b.WriteString("Recent events:\n")
		for _, entry := range req.RecentStory {
			fmt.Fprintf(&b, "- %s\n", entry)
		}
	}
	if len(req.Participants) > 0 {
		fmt.Fprintf(&b, "Party: %s\n", strings.Join(req.Participants, ", "))
	}
	if req.Continuation || len(req.Actions) == 0 {
		b.WriteString("No one acted this turn. Briefly advance the scene to keep the world moving.\n")
	} else {
		b.WriteString("This turn the party does the following:\n")
		for _, action := range req.Actions {
			fmt.Fprintf(&b, "- %s: %s\n", action.ParticipantName, action.Text)
		}
		b.WriteString("Narrate the outcome of these actions together.\n")
	}
	b.WriteString(`Reply with JSON: {"narration": "...", "scene_update": {"location": "...", "description": "...", "available_actions": ["..."]}, "npc_response": {"name": "...", "dialogue": "..."}}. Omit fields that do not change.`)
	return b.String()
}

// parseNarration accepts either the requested JSON shape or plain prose.
func parseNarration(outputText string) Response {
	var structured struct {
		Narration   string       `json:"narration"`
		SceneUpdate *SceneUpdate `json:"scene_update"`
		NPCResponse *NPCResponse `json:"npc_response"`
	}
	trimmed := strings.TrimSpace(outputText)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &structured); err == nil && strings.TrimSpace(structured.Narration) != "" {
			return Response{
				Narration:   strings.TrimSpace(structured.Narration),
				SceneUpdate: structured.SceneUpdate,
				NPCResponse: structured.NPCResponse,
			}
		}
	}
	return Response{Narration: trimmed}
}
