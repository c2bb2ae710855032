package model

import "time"

// Step 向导步骤
type Step string

const (
	StepStart        Step = "start"        // 选择输入方式
	StepUpload       Step = "upload"       // 上传照片
	StepForm         Step = "form"         // 填写外貌描述
	StepDetails      Step = "details"      // 填写故事信息
	StepScript       Step = "script"       // 生成/编辑故事脚本
	StepIllustration Step = "illustration" // 生成角色插画
	StepCompile      Step = "compile"      // 逐页生成绘本插画
	StepPreview      Step = "preview"      // 绘本预览
	StepCheckout     Step = "checkout"     // 结算
)

// PageCount 绘本固定页数
const PageCount = 12

// ValidStep 判断是否为合法步骤值
func ValidStep(s Step) bool {
	switch s {
	case StepStart, StepUpload, StepForm, StepDetails, StepScript,
		StepIllustration, StepCompile, StepPreview, StepCheckout:
		return true
	}
	return false
}

// ChildDataKind 孩子信息的输入方式
type ChildDataKind string

const (
	ChildDataPhoto       ChildDataKind = "photo"       // 上传照片
	ChildDataDescription ChildDataKind = "description" // 外貌描述表单
)

// ChildDescription 孩子外貌描述表单
type ChildDescription struct {
	Gender    string `json:"gender,omitempty"`
	Age       string `json:"age,omitempty"`
	HairColor string `json:"hairColor,omitempty"`
	HairStyle string `json:"hairStyle,omitempty"`
	EyeColor  string `json:"eyeColor,omitempty"`
	SkinTone  string `json:"skinTone,omitempty"`
}

// Empty 判断表单是否完全为空
func (d *ChildDescription) Empty() bool {
	if d == nil {
		return true
	}
	return d.Gender == "" && d.Age == "" && d.HairColor == "" &&
		d.HairStyle == "" && d.EyeColor == "" && d.SkinTone == ""
}

// ChildData 孩子信息，photo与description两种变体二选一。
// 照片数据只进blob存储，持久化文本状态时会被剥离。
type ChildData struct {
	Kind        ChildDataKind     `json:"kind"`
	Photo       string            `json:"photo,omitempty"`       // data URI，仅kind=photo
	Description *ChildDescription `json:"description,omitempty"` // 仅kind=description
}

// Valid 变体标签和对应载荷都存在才算有效
func (c *ChildData) Valid() bool {
	if c == nil {
		return false
	}
	switch c.Kind {
	case ChildDataPhoto:
		return c.Photo != ""
	case ChildDataDescription:
		return !c.Description.Empty()
	}
	return false
}

// StoryDetails 故事信息表单
type StoryDetails struct {
	ChildName    string `json:"childName"`
	ChildLikes   string `json:"childLikes,omitempty"`
	Lesson       string `json:"lesson,omitempty"`
	CartoonStyle string `json:"cartoonStyle,omitempty"`
	StoryTheme   string `json:"storyTheme,omitempty"`
}

// CompiledBook 预览完成后产出的绘本记录
type CompiledBook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	PageCount   int       `json:"pageCount"`
	DateCreated time.Time `json:"dateCreated"`
}

// WizardState 向导聚合状态，整个会话期间逐步填充。
// 回退导航不清除下游数据，完整重置才会清空全部字段。
type WizardState struct {
	Step                  Step          `json:"step"`
	History               []Step        `json:"history"`
	ChildData             *ChildData    `json:"childData,omitempty"`
	StoryDetails          *StoryDetails `json:"storyDetails,omitempty"`
	StoryScript           string        `json:"storyScript,omitempty"`
	CharacterIllustration string        `json:"characterIllustration,omitempty"`
	CharacterMap          string        `json:"characterMap,omitempty"`
	BookIllustrations     []string      `json:"bookIllustrations,omitempty"`
	CompiledBook          *CompiledBook `json:"compiledBook,omitempty"`
	StorageError          bool          `json:"storageError,omitempty"`
}

// NewWizardState 创建初始状态
func NewWizardState() *WizardState {
	return &WizardState{
		Step:    StepStart,
		History: []Step{StepStart},
	}
}

// TextState 持久化到KV存储的文本状态记录。
// 二进制产物走blob存储，不出现在这里；photo变体的childData剥离载荷后只保留标签。
type TextState struct {
	Step         Step          `json:"step"`
	History      []Step        `json:"history"`
	ChildData    *ChildData    `json:"childData,omitempty"`
	StoryDetails *StoryDetails `json:"storyDetails,omitempty"`
	StoryScript  string        `json:"storyScript,omitempty"`
	CompiledBook *CompiledBook `json:"compiledBook,omitempty"`
	StorageError bool          `json:"storageError,omitempty"`
}
