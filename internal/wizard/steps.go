// Package wizard 实现向导的步骤状态机：
// 前进/回退/跳转导航，进入条件校验，以及缺数据时的静默回退。
package wizard

import "storybook/internal/model"

// 各步骤的数据完整性判断

func hasChildData(cd *model.ChildData) bool {
	return cd.Valid()
}

func hasStoryDetails(sd *model.StoryDetails) bool {
	return sd != nil && sd.ChildName != ""
}

func hasScript(script string) bool {
	return script != ""
}

func hasIllustration(illustration string) bool {
	return illustration != ""
}

func hasBookIllustrations(pages []string) bool {
	if len(pages) != model.PageCount {
		return false
	}
	for _, p := range pages {
		if p == "" {
			return false
		}
	}
	return true
}

// CanEnter 判断当前数据是否满足进入目标步骤的条件。
// 条件逐级累积：后面的步骤要求前面全部数据就位。
func CanEnter(step model.Step, st *model.WizardState) bool {
	switch step {
	case model.StepStart, model.StepUpload, model.StepForm:
		return true
	case model.StepDetails:
		return hasChildData(st.ChildData)
	case model.StepScript:
		return hasChildData(st.ChildData) && hasStoryDetails(st.StoryDetails)
	case model.StepIllustration:
		return hasChildData(st.ChildData) && hasStoryDetails(st.StoryDetails) &&
			hasScript(st.StoryScript)
	case model.StepCompile:
		return hasChildData(st.ChildData) && hasStoryDetails(st.StoryDetails) &&
			hasScript(st.StoryScript) && hasIllustration(st.CharacterIllustration)
	case model.StepPreview:
		return hasBookIllustrations(st.BookIllustrations)
	case model.StepCheckout:
		return st.CompiledBook != nil
	}
	return false
}

// redirectTarget 步骤缺数据时的回退目标
var redirectTarget = map[model.Step]model.Step{
	model.StepDetails:      model.StepStart,
	model.StepScript:       model.StepDetails,
	model.StepIllustration: model.StepScript,
	model.StepCompile:      model.StepIllustration,
	model.StepPreview:      model.StepCompile,
	model.StepCheckout:     model.StepPreview,
}

// Resolve 从step开始沿回退表级联，返回最近一个条件满足的步骤。
// start总是满足条件，所以必然收敛。
func Resolve(step model.Step, st *model.WizardState) model.Step {
	for !CanEnter(step, st) {
		next, ok := redirectTarget[step]
		if !ok {
			return model.StepStart
		}
		step = next
	}
	return step
}
