package service

import "fmt"

// StyleDescription 各卡通风格的画面描述，拼进图片提示词
func StyleDescription(style string) string {
	switch style {
	case "disney":
		return "Soft rounded characters, big expressive eyes, warm pastel colors, subtle shading. Like classic Bambi or Cinderella illustrations. Wholesome, magical, and heartwarming."
	case "seuss":
		return "Wobbly ink lines, exaggerated features, tall skinny or short round characters, unusual architecture, bright primary colors, and playful surreal landscapes. Whimsical and quirky."
	case "anime":
		return "Big sparkling eyes, soft blush cheeks, simple linework, bright pastel tones, and expressive facial reactions. Cute proportions like chibi or early Pokémon style"
	case "modern":
		return "Simple vector shapes, bold outlines, bright solid colors, minimal shadows. Inspired by shows like Peppa Pig or Cocomelon. Fun, clear, and toddler-friendly."
	case "ghibli":
		return "Hand-painted look with soft lighting, expressive faces, detailed nature backgrounds, and gentle colors. Magical realism with a warm, peaceful feeling."
	default:
		return "General cartoon style, friendly and appealing."
	}
}

// textReferenceImage 第1页用的文字排版参考图地址。
// 未配置baseURL时返回空串，调用方退回角色映射图。
func textReferenceImage(baseURL, style string) string {
	if baseURL == "" {
		return ""
	}
	if style == "" {
		style = "cartoon"
	}
	return fmt.Sprintf("%s/text-layout-%s.png", baseURL, style)
}
