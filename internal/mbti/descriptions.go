package mbti

// typeDescriptions maps each of the 16 types to its display description.
var typeDescriptions = map[string]string{
	"INTJ": "建筑师 - 富有想象力和战略性的思想家",
	"INTP": "逻辑学家 - 具有创造性的发明家",
	"ENTJ": "指挥官 - 大胆、富有想象力的强大领导者",
	"ENTP": "辩论家 - 聪明好奇的思想家",
	"INFJ": "提倡者 - 安静而神秘的鼓舞他人",
	"INFP": "调停者 - 诗意善良的利他主义者",
	"ENFJ": "主人公 - 富有魅力鼓舞他人的领导者",
	"ENFP": "竞选者 - 热情创造性的自由精神",
	"ISTJ": "物流师 - 实际事实的可靠工作者",
	"ISFJ": "守护者 - 非常专注的温暖保护者",
	"ESTJ": "总经理 - 优秀的管理者",
	"ESFJ": "执政官 - 极有同情心的受欢迎的人",
	"ISTP": "鉴赏家 - 大胆而实际的实验者",
	"ISFP": "探险家 - 灵活迷人的艺术家",
	"ESTP": "企业家 - 聪明、精力充沛的感知者",
	"ESFP": "表演者 - 自发的、精力充沛的娱乐者",
}

// TypeDescription returns the display description for a 4-letter type label,
// or an empty string for unknown or empty labels.
func TypeDescription(label string) string {
	return typeDescriptions[label]
}
