package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parley/internal/logging"
	"parley/internal/room"
)

const defaultRemoteTimeout = 30 * time.Second

const analysisSystemPrompt = "You are a helpful assistant. Analyze the following meeting transcript. " +
	"Return a JSON object with two keys: \"action_items\" (an array of strings) and \"summary\" " +
	"(a short paragraph). Do not include markdown formatting."

// Remote calls an OpenAI-style chat completions endpoint. Any transport or
// decode failure is returned to the caller, which falls back to the local
// heuristic rather than stalling the pipeline.
type Remote struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	Logger  *logging.Logger
}

type chatCompletionRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *Remote) Analyze(ctx context.Context, transcript []room.TranscriptEntry) (Analysis, error) {
	if r == nil || strings.TrimSpace(r.BaseURL) == "" {
		return Analysis{}, fmt.Errorf("remote summarizer is not configured")
	}

	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return Analysis{}, fmt.Errorf("encode transcript: %w", err)
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model: r.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: string(transcriptJSON)},
		},
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(r.BaseURL, "/") + "/chat/completions"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	response, err := client.Do(request)
	if err != nil {
		return Analysis{}, fmt.Errorf("summarizer request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return Analysis{}, fmt.Errorf("summarizer returned status %d: %s", response.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(response.Body).Decode(&completion); err != nil {
		return Analysis{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Analysis{}, fmt.Errorf("summarizer returned no choices")
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis payload: %w", err)
	}
	return analysis, nil
}
