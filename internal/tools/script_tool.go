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

// ScriptTool 实现eino框架的故事脚本生成工具
type ScriptTool struct {
	svc *service.StorybookService
}

// ScriptToolArgs 脚本生成请求参数
type ScriptToolArgs struct {
	ChildName    string `json:"child_name"`              // 孩子名字
	ChildLikes   string `json:"child_likes"`             // 孩子的喜好
	Lesson       string `json:"lesson,omitempty"`        // 故事要传达的道理，可选
	CartoonStyle string `json:"cartoon_style,omitempty"` // 卡通风格
}

// ScriptToolResp 脚本生成响应
type ScriptToolResp struct {
	Title   string   `json:"title"`   // 故事标题
	Script  string   `json:"script"`  // 完整脚本
	Stanzas []string `json:"stanzas"` // 切分后的12节
	Message string   `json:"message"` // 提示信息
}

// NewScriptTool 创建脚本生成工具实例
func NewScriptTool(svc *service.StorybookService) *ScriptTool {
	return &ScriptTool{svc: svc}
}

// Info 获取脚本生成工具信息
func (t *ScriptTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"child_name":    {Type: schema.String, Required: true, Desc: "孩子名字"},
		"child_likes":   {Type: schema.String, Required: true, Desc: "孩子的喜好"},
		"lesson":        {Type: schema.String, Required: false, Desc: "故事要传达的道理"},
		"cartoon_style": {Type: schema.String, Required: false, Desc: "卡通风格，如disney、ghibli"},
	}
	return &schema.ToolInfo{
		Name:        "script_generate",
		Desc:        "为孩子生成12节押韵的绘本故事脚本",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行脚本生成任务
func (t *ScriptTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args ScriptToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", err
	}
	if args.ChildName == "" {
		return "", errors.New("child_name required")
	}

	details := &model.StoryDetails{
		ChildName:    args.ChildName,
		ChildLikes:   args.ChildLikes,
		Lesson:       args.Lesson,
		CartoonStyle: args.CartoonStyle,
	}
	script, err := t.svc.GenerateScript(ctx, details)
	if err != nil {
		return "", err
	}

	resp := ScriptToolResp{
		Title:   service.ExtractTitle(script),
		Script:  script,
		Stanzas: service.SplitStanzas(script),
		Message: "脚本生成完成",
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// 确保ScriptTool实现了einotool.InvokableTool接口
var _ einotool.InvokableTool = (*ScriptTool)(nil)
