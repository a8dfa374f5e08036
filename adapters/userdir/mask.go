package userdir

import "strings"

// MaskFullname 將出價者姓名部分遮蔽後回傳，供公開的出價紀錄使用
// 最後一段名字保留頭尾字元，其餘段落全部以星號取代
func MaskFullname(fullname string) string {
	trimmed := strings.TrimSpace(fullname)
	if trimmed == "" {
		return fullname
	}

	parts := strings.Fields(trimmed)
	masked := make([]string, 0, len(parts))
	for _, part := range parts[:len(parts)-1] {
		masked = append(masked, strings.Repeat("*", len([]rune(part))))
	}
	masked = append(masked, maskLastPart(parts[len(parts)-1]))
	return strings.Join(masked, " ")
}

func maskLastPart(part string) string {
	runes := []rune(part)
	switch len(runes) {
	case 1:
		return part
	case 2:
		return string(runes[0]) + "*"
	default:
		return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
	}
}
