package service

import (
	"fmt"

	"storybook/internal/model"
)

// 脚本生成的system指令
const scriptSystemPrompt = "You are an expert children's story writer who specializes in creating engaging, intriguing stories following specific structural requirements. Your task is to create a story script. Provide just the script and it's title, nothing more."

// scriptPrompt 故事脚本提示词：标题+12节，每节4行A/B/A/B押韵
func scriptPrompt(details *model.StoryDetails) string {
	lesson := ""
	if details.Lesson != "" {
		lesson = fmt.Sprintf("The story should teach a lesson about %s.", details.Lesson)
	}
	return fmt.Sprintf(`Create a children's story script about a character named %s who loves %s. %s
Only output the script and it's title, nothing more. Write exactly 12 stanzas, with each stanza containing 4 lines that follow an A/B/A/B rhyme scheme. At the top of the script, write the title of the story. An output example is below:
Title: The Magic of the Stars

Stanza 1
In a town where the stars sparkled bright,
Lived a boy with dreams of the sky.
He'd gaze at the moon, filled with pure delight,
Wishing one day he could soar up high.

Stanza 2
...`, details.ChildName, details.ChildLikes, lesson)
}

// characterPromptFromPhoto 照片转卡通的提示词，照片作为参考图传入
func characterPromptFromPhoto(details *model.StoryDetails) string {
	style := cartoonStyle(details)
	return fmt.Sprintf("Use the provided image to represent a friendly, approachable cartoon character in a %s style (%s). Maintain key features but adapt to the cartoon style.",
		style, StyleDescription(style))
}

// characterPromptFromDescription 按外貌描述生成角色的提示词
func characterPromptFromDescription(desc *model.ChildDescription, details *model.StoryDetails) string {
	style := cartoonStyle(details)
	return fmt.Sprintf("Create a friendly, approachable cartoon character with the following features: %s hair, %s eyes, %s skin tone, %s years old, %s. Style: %s (%s). The character should be smiling.",
		orUnspecified(desc.HairColor), orUnspecified(desc.EyeColor), orUnspecified(desc.SkinTone),
		orUnspecified(desc.Age), orUnspecified(desc.Gender), style, StyleDescription(style))
}

// characterMapPrompt 角色映射图提示词：把故事里的角色拼成一张参考图
func characterMapPrompt(details *model.StoryDetails) string {
	style := cartoonStyle(details)
	return fmt.Sprintf("Using the provided character illustration as the main character, create a single character map reference sheet showing every character of a children's story on one image, each in a neutral standing pose with their name label. Keep the %s style (%s) consistent across all characters.",
		style, StyleDescription(style))
}

// pagePrompt 单页插画提示词，节内文字要求渲染进画面
func pagePrompt(stanza string, details *model.StoryDetails, pageNumber int) string {
	style := cartoonStyle(details)
	theme := details.StoryTheme
	if theme == "" {
		theme = "adventure"
	}
	return fmt.Sprintf(`Create a %s style (%s) storybook illustration for a children's story.
I've attached a character map reference with all the characters in a story, and your stanza is only one page of the story.

Instead of including all the characters in the character map, only include characters that are explicity mentioned in the stanza.

Scene description: Illustrate the following stanza for page %d: ###%s###

The scene and layout should be colorful, engaging, and appropriate for a children's book about %s.

The entire text from the stanza must be included in the illustration. The text should start at the top of the
image and blend into the scene. I've attached a reference image as an example of how the text should be placed.

Make sure the all the characters are clearly recognizable and consistent with the reference image.`,
		style, StyleDescription(style), pageNumber, stanza, theme)
}

func cartoonStyle(details *model.StoryDetails) string {
	if details != nil && details.CartoonStyle != "" {
		return details.CartoonStyle
	}
	return "cartoon"
}

func orUnspecified(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
