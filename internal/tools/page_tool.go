package tools

import (
	"context"
	"encoding/json"
	"errors"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/model"
	"storybook/internal/service"
)

// PageTool 实现eino框架的绘本页插画生成工具。
// 以角色一致性参考图为输入，为单个诗节生成对应页面插画。
type PageTool struct {
	svc *service.StorybookService
}

// PageToolArgs 页面插画请求参数
type PageToolArgs struct {
	Stanza       string `json:"stanza"`        // 诗节正文
	CharacterMap string `json:"character_map"` // 角色一致性参考图data URI
	PageNumber   int    `json:"page_number"`   // 页码，1到12
	ChildName    string `json:"child_name"`
	CartoonStyle string `json:"cartoon_style,omitempty"`
}

// PageToolResp 页面插画响应
type PageToolResp struct {
	PageNumber int    `json:"page_number"`
	Image      string `json:"image"`
	Message    string `json:"message"`
}

func NewPageTool(svc *service.StorybookService) *PageTool {
	return &PageTool{svc: svc}
}

// Info 获取页面插画工具信息
func (t *PageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"stanza":        {Type: schema.String, Required: true, Desc: "诗节正文"},
		"character_map": {Type: schema.String, Required: true, Desc: "角色一致性参考图data URI"},
		"page_number":   {Type: schema.Integer, Required: true, Desc: "页码，1到12"},
		"child_name":    {Type: schema.String, Required: true, Desc: "孩子名字"},
		"cartoon_style": {Type: schema.String, Required: false, Desc: "卡通风格"},
	}
	return &schema.ToolInfo{
		Name:        "page_generate",
		Desc:        "根据诗节与角色参考图生成绘本单页插画",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行页面插画生成任务
func (t *PageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args PageToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if args.Stanza == "" || args.CharacterMap == "" {
		return "", errors.New("stanza and character_map are required")
	}
	if args.PageNumber < 1 || args.PageNumber > model.PageCount {
		return "", errors.New("page_number out of range")
	}

	details := &model.StoryDetails{ChildName: args.ChildName, CartoonStyle: args.CartoonStyle}
	image, err := t.svc.RegeneratePage(ctx, args.Stanza, args.CharacterMap, details, args.PageNumber)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(PageToolResp{PageNumber: args.PageNumber, Image: image, Message: "页面插画生成完成"})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*PageTool)(nil)
