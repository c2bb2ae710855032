package volc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBase = "https://ark.cn-beijing.volces.com"
)

type ArkClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Mock       bool
}

func NewArkClientDefault() *ArkClient {
	apiKey := os.Getenv("ARK_API_KEY")
	return &ArkClient{
		BaseURL:    defaultBase,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		Mock:       strings.ToLower(os.Getenv("ARK_MOCK")) == "1" || strings.ToLower(os.Getenv("ARK_MOCK")) == "true",
	}
}

func NewArkClientWithTimeout(timeout time.Duration) *ArkClient {
	c := NewArkClientDefault()
	c.HTTPClient = &http.Client{Timeout: timeout}
	return c
}

type ImageGenParams struct {
	Model       string
	Prompt      string
	Size        string
	ImageInputs []string // 参考图，data URI或URL；带图即为编辑/参考模式
	MaxImages   int
}

// GenerateImage 生成单张图片，返回data URI或URL。
// 带ImageInputs时等同编辑模式：照片转卡通、角色图参考都走这里。
func (c *ArkClient) GenerateImage(ctx context.Context, p ImageGenParams) (string, error) {
	imgs, err := c.GenerateImages(ctx, p)
	if err != nil {
		return "", err
	}
	return imgs[0], nil
}

func (c *ArkClient) GenerateImages(ctx context.Context, p ImageGenParams) ([]string, error) {
	if c.Mock {
		// 1x1 PNG pixel base64
		pixel := "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
		return []string{"data:image/png;base64," + pixel}, nil
	}
	if p.Model == "" {
		p.Model = "doubao-seedream-4.0"
	}
	if p.Size == "" {
		p.Size = "1024x1024"
	}
	if p.MaxImages == 0 {
		p.MaxImages = 1
	}
	body := map[string]any{
		"model":           p.Model,
		"prompt":          p.Prompt,
		"size":            p.Size,
		"response_format": "b64_json",
	}
	if len(p.ImageInputs) > 0 {
		body["image"] = p.ImageInputs
	}

	var resp struct {
		Data []struct {
			URL    string `json:"url"`
			B64    string `json:"b64_json"`
			Format string `json:"format"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v3/images/generations", body, &resp); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.B64 != "" {
			fmtType := d.Format
			if fmtType == "" {
				fmtType = "png"
			}
			urls = append(urls, "data:image/"+fmtType+";base64,"+d.B64)
			continue
		}
		if d.URL != "" {
			urls = append(urls, d.URL)
		}
	}
	if len(urls) == 0 {
		return nil, errors.New("no images returned")
	}
	return urls, nil
}

// ChatCompletion 调用chat接口，返回首个choice的文本内容
func (c *ArkClient) ChatCompletion(ctx context.Context, model, system, prompt string) (string, error) {
	if c.Mock {
		return mockScript(), nil
	}
	if model == "" {
		return "", errors.New("model required")
	}
	messages := make([]map[string]any, 0, 2)
	if system != "" {
		messages = append(messages, map[string]any{"role": "system", "content": system})
	}
	messages = append(messages, map[string]any{"role": "user", "content": prompt})
	reqBody := map[string]any{
		"model":    model,
		"messages": messages,
	}
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "/api/v3/chat/completions", reqBody, &resp); err != nil {
		return "", err
	}
	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		if content == "" {
			content = resp.Choices[0].Delta.Content
		}
	}
	if content == "" {
		return "", errors.New("empty chat content")
	}
	return content, nil
}

// ChatJSON 调用chat接口并把返回内容按JSON解析到out
func (c *ArkClient) ChatJSON(ctx context.Context, model, prompt string, out any) error {
	content, err := c.ChatCompletion(ctx, model, "", prompt)
	if err != nil {
		return err
	}
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return json.Unmarshal([]byte(cleaned), out)
}

func (c *ArkClient) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	logrus.Debugf("POST %s (%d bytes)", req.URL.String(), len(b))
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}

// mockScript Mock模式下返回的脚本，标题+12节，满足下游切分逻辑
func mockScript() string {
	var b strings.Builder
	b.WriteString("Title: The Mock Adventure\n\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "Stanza %d\n", i)
		b.WriteString("In a land of make believe,\n")
		b.WriteString("A mock line two appears,\n")
		b.WriteString("So tests have text to weave,\n")
		b.WriteString("Across the mock frontiers.\n\n")
	}
	return b.String()
}
