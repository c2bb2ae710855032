package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storybook/internal/model"
)

func fullState() *model.WizardState {
	pages := make([]string, model.PageCount)
	for i := range pages {
		pages[i] = "data:image/png;base64,page"
	}
	return &model.WizardState{
		Step:    model.StepCheckout,
		History: []model.Step{model.StepStart},
		ChildData: &model.ChildData{
			Kind:  model.ChildDataPhoto,
			Photo: "data:image/png;base64,photo",
		},
		StoryDetails:          &model.StoryDetails{ChildName: "Mia"},
		StoryScript:           "Title: T\n\nStanza 1\nline",
		CharacterIllustration: "data:image/png;base64,char",
		CharacterMap:          "data:image/png;base64,map",
		BookIllustrations:     pages,
		CompiledBook:          &model.CompiledBook{ID: "book-1"},
	}
}

func TestCanEnter(t *testing.T) {
	empty := model.NewWizardState()

	// 前三个步骤无条件可进
	assert.True(t, CanEnter(model.StepStart, empty))
	assert.True(t, CanEnter(model.StepUpload, empty))
	assert.True(t, CanEnter(model.StepForm, empty))

	// 其余步骤在空状态下全部拒绝
	for _, step := range []model.Step{
		model.StepDetails, model.StepScript, model.StepIllustration,
		model.StepCompile, model.StepPreview, model.StepCheckout,
	} {
		assert.False(t, CanEnter(step, empty), "step %s", step)
	}

	// 数据齐全时全部放行
	full := fullState()
	for _, step := range []model.Step{
		model.StepStart, model.StepDetails, model.StepScript,
		model.StepIllustration, model.StepCompile, model.StepPreview, model.StepCheckout,
	} {
		assert.True(t, CanEnter(step, full), "step %s", step)
	}
}

func TestCanEnterCumulative(t *testing.T) {
	// 只有childData时能进details，不能进script
	st := model.NewWizardState()
	st.ChildData = &model.ChildData{Kind: model.ChildDataDescription, Description: &model.ChildDescription{HairColor: "brown"}}
	assert.True(t, CanEnter(model.StepDetails, st))
	assert.False(t, CanEnter(model.StepScript, st))

	st.StoryDetails = &model.StoryDetails{ChildName: "Leo"}
	assert.True(t, CanEnter(model.StepScript, st))
	assert.False(t, CanEnter(model.StepIllustration, st))

	st.StoryScript = "Stanza 1\nline"
	assert.True(t, CanEnter(model.StepIllustration, st))
	assert.False(t, CanEnter(model.StepCompile, st))

	st.CharacterIllustration = "img"
	assert.True(t, CanEnter(model.StepCompile, st))
	assert.False(t, CanEnter(model.StepPreview, st))
}

func TestCanEnterPreviewRequiresAllPages(t *testing.T) {
	st := fullState()
	st.BookIllustrations[6] = "" // 缺第7页
	assert.False(t, CanEnter(model.StepPreview, st))

	st.BookIllustrations = st.BookIllustrations[:10]
	assert.False(t, CanEnter(model.StepPreview, st))
}

func TestCanEnterChildDataVariants(t *testing.T) {
	st := model.NewWizardState()

	// 标签为photo但没有照片载荷，不算有数据
	st.ChildData = &model.ChildData{Kind: model.ChildDataPhoto}
	assert.False(t, CanEnter(model.StepDetails, st))

	// 标签为description但表单全空，同样不算
	st.ChildData = &model.ChildData{Kind: model.ChildDataDescription, Description: &model.ChildDescription{}}
	assert.False(t, CanEnter(model.StepDetails, st))
}

func TestResolveCascade(t *testing.T) {
	// 空状态下checkout一路级联回退到start
	empty := model.NewWizardState()
	assert.Equal(t, model.StepStart, Resolve(model.StepCheckout, empty))

	// 缺页的preview回退到compile
	st := fullState()
	st.CompiledBook = nil
	st.BookIllustrations[0] = ""
	assert.Equal(t, model.StepCompile, Resolve(model.StepPreview, st))

	// 只缺角色插画时compile回退到illustration
	st.CharacterIllustration = ""
	assert.Equal(t, model.StepIllustration, Resolve(model.StepCompile, st))

	// 条件满足时原地不动
	full := fullState()
	assert.Equal(t, model.StepCheckout, Resolve(model.StepCheckout, full))
	assert.Equal(t, model.StepStart, Resolve(model.StepStart, empty))
}
