package generation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
)

const (
	// DefaultComfyUIURL is used when no ComfyUI url is configured
	DefaultComfyUIURL = "http://127.0.0.1:8188"
	// DefaultRequestTimeout bounds a single submission to ComfyUI
	DefaultRequestTimeout = 30 * time.Second
)

//go:embed workflow/isometric.json
var isometricWorkflow string

// ComfyUI submits the isometric workflow to a ComfyUI server. The workflow's
// webhook node calls back with the generated image and prompt id.
type ComfyUI struct {
	baseURL    string
	webhookURL string
	httpClient *http.Client
	workflow   string
}

type NewComfyUIOptions struct {
	// BaseURL of the ComfyUI server, for example http://127.0.0.1:8188
	BaseURL string
	// WebhookURL is where the workflow posts the finished image
	WebhookURL string
	HTTPClient *http.Client
}

func NewComfyUI(opts NewComfyUIOptions) *ComfyUI {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultComfyUIURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &ComfyUI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		webhookURL: opts.WebhookURL,
		httpClient: httpClient,
		workflow:   isometricWorkflow,
	}
}

func (c *ComfyUI) Generate(ctx context.Context, prompt string) (types.MonumentID, error) {
	id := newMonumentID()

	workflow, err := renderWorkflow(c.workflow, prompt, id, c.webhookURL)
	if err != nil {
		return 0, fmt.Errorf("failed to render workflow: %v", err)
	}

	body, err := json.Marshal(map[string]json.RawMessage{"prompt": workflow})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal prompt request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/prompt", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to submit prompt: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("comfyui returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	log.Debug("Submitted generation %d for prompt %q", id, prompt)
	return id, nil
}

// renderWorkflow fills the template placeholders. String values are JSON
// escaped so that any prompt yields a valid document.
func renderWorkflow(template string, prompt string, id types.MonumentID, webhookURL string) (json.RawMessage, error) {
	idString := strconv.FormatUint(uint64(id), 10)
	replacer := strings.NewReplacer(
		"__PROMPT_ID__", escapeJSONString(idString),
		"__PROMPT__", escapeJSONString(prompt),
		"__WEBHOOK_URL__", escapeJSONString(webhookURL),
		"__SEED__", idString,
	)
	rendered := replacer.Replace(template)
	if !json.Valid([]byte(rendered)) {
		return nil, fmt.Errorf("rendered workflow is not valid JSON")
	}
	return json.RawMessage(rendered), nil
}

// escapeJSONString returns s encoded as the inside of a JSON string literal.
func escapeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

func newMonumentID() types.MonumentID {
	for {
		if id := types.MonumentID(rand.Uint32()); id != 0 {
			return id
		}
	}
}
