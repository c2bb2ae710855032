// Package service 封装对外部生成接口的编排：
// 故事脚本、角色插画、角色映射图、12页绘本插画。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"storybook/internal/model"
	"storybook/internal/volc"
)

var (
	// ErrEmptyScript 接口响应里没有脚本内容，流程级致命错误
	ErrEmptyScript = errors.New("script content absent from response")
	// ErrAllPagesFailed 12页全部生成失败，流程级致命错误
	ErrAllPagesFailed = errors.New("all page illustrations failed")
)

// Options 生成服务的策略配置
type Options struct {
	ChatModel            string
	ImageModel           string
	MaxAttempts          int           // 每次外部调用的尝试上限
	RetryDelay           time.Duration // 重试间隔，固定值，不区分错误类型
	PageDelay            time.Duration // 页间延迟，照顾外部限流
	Concurrency          int           // 页生成并发度，1为严格顺序
	TextReferenceBaseURL string        // 文字排版参考图的资源地址
}

func (o *Options) withDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
}

// StorybookService 绘本生成服务
type StorybookService struct {
	ark       *volc.ArkClient
	chatModel *einoark.ChatModel
	opts      Options
}

// NewStorybookService 创建生成服务。
// eino的chat model创建失败时退回裸chat接口，不阻断启动。
func NewStorybookService(ctx context.Context, arkClient *volc.ArkClient, opts Options) *StorybookService {
	opts.withDefaults()
	s := &StorybookService{ark: arkClient, opts: opts}
	if !arkClient.Mock {
		chatModel, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
			APIKey:     arkClient.APIKey,
			HTTPClient: arkClient.HTTPClient,
			Model:      opts.ChatModel,
		})
		if err != nil {
			logrus.Warnf("创建chat model失败，退回裸chat接口: %v", err)
		} else {
			s.chatModel = chatModel
		}
	}
	return s
}

// runLLM 通过eino图执行一次chat调用
func (s *StorybookService) runLLM(ctx context.Context, instruction, userPrompt string) (string, error) {
	if s.chatModel == nil {
		return s.ark.ChatCompletion(ctx, s.opts.ChatModel, instruction, userPrompt)
	}

	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode("model", s.chatModel); err != nil {
		return "", fmt.Errorf("failed to add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "model"); err != nil {
		return "", fmt.Errorf("failed to add edge: %w", err)
	}
	runnable, err := graph.Compile(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to compile graph: %w", err)
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: instruction},
		{Role: schema.User, Content: userPrompt},
	}
	res, err := runnable.Invoke(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("graph invocation failed: %w", err)
	}
	return res.Content, nil
}

// withRetry 固定间隔的有界重试，不按错误类型区分策略
func (s *StorybookService) withRetry(ctx context.Context, op backoff.Operation) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), uint64(s.opts.MaxAttempts-1))
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// GenerateScript 生成故事脚本：标题+12节押韵短诗。
// 结构不标准的输出原样返回给用户手工编辑，只有内容为空才算失败。
func (s *StorybookService) GenerateScript(ctx context.Context, details *model.StoryDetails) (string, error) {
	if details == nil || details.ChildName == "" {
		return "", errors.New("childName required")
	}
	var script string
	err := s.withRetry(ctx, func() error {
		content, err := s.runLLM(ctx, scriptSystemPrompt, scriptPrompt(details))
		if err != nil {
			return err
		}
		script = content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	if strings.TrimSpace(script) == "" {
		return "", ErrEmptyScript
	}
	return script, nil
}

// GenerateCharacterIllustration 生成角色插画。
// photo变体走带参考图的编辑模式，description变体走纯文本生成，
// 两种请求形态的产出一致：一张data URI图片。
func (s *StorybookService) GenerateCharacterIllustration(ctx context.Context, childData *model.ChildData, details *model.StoryDetails) (string, error) {
	if !childData.Valid() {
		return "", errors.New("invalid childData")
	}

	var prompt string
	var inputs []string
	switch childData.Kind {
	case model.ChildDataPhoto:
		prompt = characterPromptFromPhoto(details)
		inputs = []string{childData.Photo}
	case model.ChildDataDescription:
		prompt = characterPromptFromDescription(childData.Description, details)
	default:
		return "", fmt.Errorf("unsupported childData kind: %s", childData.Kind)
	}

	var image string
	err := s.withRetry(ctx, func() error {
		img, err := s.ark.GenerateImage(ctx, volc.ImageGenParams{
			Model:       s.opts.ImageModel,
			Prompt:      prompt,
			ImageInputs: inputs,
		})
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate character illustration: %w", err)
	}
	return image, nil
}

// GenerateCharacterMap 用角色插画生成角色映射参考图
func (s *StorybookService) GenerateCharacterMap(ctx context.Context, characterIllustration string, details *model.StoryDetails) (string, error) {
	if characterIllustration == "" {
		return "", errors.New("character illustration required")
	}
	var image string
	err := s.withRetry(ctx, func() error {
		img, err := s.ark.GenerateImage(ctx, volc.ImageGenParams{
			Model:       s.opts.ImageModel,
			Prompt:      characterMapPrompt(details),
			ImageInputs: []string{characterIllustration},
		})
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate character map: %w", err)
	}
	return image, nil
}

// ProgressFunc 每生成完一页回调一次，pageNumber取1..12
type ProgressFunc func(pageNumber int, image string)

// GeneratePages 生成全部12页插画。
// 默认严格顺序：每页以上一页的成品作为风格参考（第1页用文字排版参考图），
// 页与页之间插入固定延迟。单页重试耗尽不中断批次，只有12页全挂才返回错误。
// 返回值pages固定12个元素，失败页为空串并记录在pageErrs里。
func (s *StorybookService) GeneratePages(ctx context.Context, stanzas []string, characterMap string, details *model.StoryDetails, progress ProgressFunc) (pages []string, pageErrs map[int]error, err error) {
	if len(stanzas) != model.PageCount {
		return nil, nil, fmt.Errorf("expected %d stanzas, got %d", model.PageCount, len(stanzas))
	}
	if characterMap == "" {
		return nil, nil, errors.New("character map required")
	}
	if details == nil || details.ChildName == "" {
		return nil, nil, errors.New("childName required")
	}

	if s.opts.Concurrency > 1 {
		return s.generatePagesWindowed(ctx, stanzas, characterMap, details, progress)
	}
	return s.generatePagesSequential(ctx, stanzas, characterMap, details, progress)
}

func (s *StorybookService) generatePagesSequential(ctx context.Context, stanzas []string, characterMap string, details *model.StoryDetails, progress ProgressFunc) ([]string, map[int]error, error) {
	pages := make([]string, model.PageCount)
	pageErrs := make(map[int]error)

	prev := ""
	for i, stanza := range stanzas {
		n := i + 1
		// 第1页没有上一页，用文字排版参考图；没配置就退回角色映射图
		styleRef := prev
		if styleRef == "" {
			styleRef = textReferenceImage(s.opts.TextReferenceBaseURL, cartoonStyle(details))
		}
		image, err := s.generatePage(ctx, stanza, characterMap, styleRef, details, n)
		if err != nil {
			logrus.Warnf("第%d页生成失败: %v", n, err)
			pageErrs[n] = err
			continue
		}
		pages[i] = image
		prev = image
		logrus.Infof("第%d页生成完成", n)
		if progress != nil {
			progress(n, image)
		}
		if n < model.PageCount {
			select {
			case <-ctx.Done():
				return pages, pageErrs, ctx.Err()
			case <-time.After(s.opts.PageDelay):
			}
		}
	}

	if len(pageErrs) == model.PageCount {
		return pages, pageErrs, ErrAllPagesFailed
	}
	return pages, pageErrs, nil
}

// generatePagesWindowed 有界并发的变体。失去逐页链式参考，
// 全部页只对照角色映射图，适合对一致性要求不高的场景。
func (s *StorybookService) generatePagesWindowed(ctx context.Context, stanzas []string, characterMap string, details *model.StoryDetails, progress ProgressFunc) ([]string, map[int]error, error) {
	pages := make([]string, model.PageCount)
	pageErrs := make(map[int]error)

	sem := make(chan struct{}, s.opts.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, stanza := range stanzas {
		wg.Add(1)
		go func(i int, stanza string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			n := i + 1
			image, err := s.generatePage(ctx, stanza, characterMap, "", details, n)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logrus.Warnf("第%d页生成失败: %v", n, err)
				pageErrs[n] = err
				return
			}
			pages[i] = image
			if progress != nil {
				progress(n, image)
			}
		}(i, stanza)
	}
	wg.Wait()

	if len(pageErrs) == model.PageCount {
		return pages, pageErrs, ErrAllPagesFailed
	}
	return pages, pageErrs, nil
}

// RegeneratePage 重新生成指定页，用于单页失败后的手工重试
func (s *StorybookService) RegeneratePage(ctx context.Context, stanza, characterMap string, details *model.StoryDetails, pageNumber int) (string, error) {
	if strings.TrimSpace(stanza) == "" {
		return "", errors.New("stanza required")
	}
	if pageNumber < 1 || pageNumber > model.PageCount {
		return "", fmt.Errorf("invalid page number: %d", pageNumber)
	}
	return s.generatePage(ctx, stanza, characterMap, "", details, pageNumber)
}

// generatePage 生成单页插画，角色映射图必传，styleRef可选
func (s *StorybookService) generatePage(ctx context.Context, stanza, characterMap, styleRef string, details *model.StoryDetails, pageNumber int) (string, error) {
	inputs := []string{characterMap}
	if styleRef != "" && styleRef != characterMap {
		inputs = append(inputs, styleRef)
	}
	var image string
	err := s.withRetry(ctx, func() error {
		img, err := s.ark.GenerateImage(ctx, volc.ImageGenParams{
			Model:       s.opts.ImageModel,
			Prompt:      pagePrompt(stanza, details, pageNumber),
			ImageInputs: inputs,
		})
		if err != nil {
			return err
		}
		image = img
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate page %d: %w", pageNumber, err)
	}
	return image, nil
}
