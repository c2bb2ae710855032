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

// CharacterTool 实现eino框架的角色插画生成工具。
// 带photo走照片编辑模式，否则按外貌描述生成。
type CharacterTool struct {
	svc *service.StorybookService
}

// CharacterToolArgs 角色插画请求参数
type CharacterToolArgs struct {
	Photo        string `json:"photo,omitempty"` // 孩子照片data URI，可选
	Gender       string `json:"gender,omitempty"`
	Age          string `json:"age,omitempty"`
	HairColor    string `json:"hair_color,omitempty"`
	HairStyle    string `json:"hair_style,omitempty"`
	EyeColor     string `json:"eye_color,omitempty"`
	SkinTone     string `json:"skin_tone,omitempty"`
	ChildName    string `json:"child_name"`
	CartoonStyle string `json:"cartoon_style,omitempty"`
}

// CharacterToolResp 角色插画响应
type CharacterToolResp struct {
	Image   string `json:"image"`   // data URI
	Message string `json:"message"` // 提示信息
}

func NewCharacterTool(svc *service.StorybookService) *CharacterTool {
	return &CharacterTool{svc: svc}
}

// Info 获取角色插画工具信息
func (t *CharacterTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"photo":         {Type: schema.String, Required: false, Desc: "孩子照片data URI，提供时走照片编辑模式"},
		"gender":        {Type: schema.String, Required: false, Desc: "性别"},
		"age":           {Type: schema.String, Required: false, Desc: "年龄"},
		"hair_color":    {Type: schema.String, Required: false, Desc: "发色"},
		"hair_style":    {Type: schema.String, Required: false, Desc: "发型"},
		"eye_color":     {Type: schema.String, Required: false, Desc: "眼睛颜色"},
		"skin_tone":     {Type: schema.String, Required: false, Desc: "肤色"},
		"child_name":    {Type: schema.String, Required: true, Desc: "孩子名字"},
		"cartoon_style": {Type: schema.String, Required: false, Desc: "卡通风格"},
	}
	return &schema.ToolInfo{
		Name:        "character_generate",
		Desc:        "根据照片或外貌描述生成孩子的卡通角色插画",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行角色插画生成任务
func (t *CharacterTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args CharacterToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}

	childData := &model.ChildData{}
	if args.Photo != "" {
		childData.Kind = model.ChildDataPhoto
		childData.Photo = args.Photo
	} else {
		childData.Kind = model.ChildDataDescription
		childData.Description = &model.ChildDescription{
			Gender:    args.Gender,
			Age:       args.Age,
			HairColor: args.HairColor,
			HairStyle: args.HairStyle,
			EyeColor:  args.EyeColor,
			SkinTone:  args.SkinTone,
		}
	}
	if !childData.Valid() {
		return "", errors.New("photo or description fields required")
	}

	details := &model.StoryDetails{ChildName: args.ChildName, CartoonStyle: args.CartoonStyle}
	image, err := t.svc.GenerateCharacterIllustration(ctx, childData, details)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(CharacterToolResp{Image: image, Message: "角色插画生成完成"})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*CharacterTool)(nil)
