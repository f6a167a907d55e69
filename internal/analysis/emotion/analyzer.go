package emotion

import "strings"

type rule struct {
	label    Label
	keywords []string
}

// rules 按优先级排列，第一个命中的规则胜出。
var rules = []rule{
	{Happy, []string{
		"happy", "happiness", "joy", "glad", "excited", "exciting", "great day", "awesome", "wonderful",
		"delighted", "cheerful", "amazing", "fantastic", "smile", "laugh", "yay", "thrilled",
	}},
	{Sadness, []string{
		"sad", "depressed", "feeling down", "cry", "crying", "tears", "lonely", "heartbroken",
		"miserable", "upset", "grief", "sorrow", "hopeless", "gloomy",
	}},
	{Anger, []string{
		"angry", "furious", "annoyed", "i hate", "hatred", "rage", "irritated", "frustrated",
		"pissed", "mad at", "so mad", "outraged",
	}},
	{Fear, []string{
		"afraid", "scared", "fear", "terrified", "anxious", "nervous", "worried", "panic", "frightened",
	}},
	{Love, []string{
		"love", "adore", "cherish", "affection", "romantic", "crush", "sweetheart", "in love",
	}},
	{Surprise, []string{
		"surprised", "surprise", "shocked", "unexpected", "astonished", "can't believe", "unbelievable", "wow",
	}},
	{Disgust, []string{
		"disgust", "disgusting", "gross", "nasty", "revolting", "yuck", "sick of", "repulsive",
	}},
}

// Guess 根据关键词规则推断情绪。对任意输入都返回规范情绪，空文本或无命中时为 Neutral。
func Guess(text string) Label {
	normalized := strings.ToLower(text)
	if strings.TrimSpace(normalized) == "" {
		return Neutral
	}

	for _, r := range rules {
		for _, word := range r.keywords {
			if strings.Contains(normalized, word) {
				return r.label
			}
		}
	}
	return Neutral
}
