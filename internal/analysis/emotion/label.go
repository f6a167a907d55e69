package emotion

// Label 表示系统对外报告的规范情绪类别。
type Label string

const (
	Happy    Label = "happy"
	Sadness  Label = "sadness"
	Anger    Label = "anger"
	Fear     Label = "fear"
	Love     Label = "love"
	Surprise Label = "surprise"
	Disgust  Label = "disgust"
	Neutral  Label = "neutral"
)

var canonical = []Label{Happy, Sadness, Anger, Fear, Love, Surprise, Disgust, Neutral}

// Labels 按固定顺序返回封闭的规范情绪集合。
func Labels() []Label {
	return append([]Label(nil), canonical...)
}

// Valid 判断 l 是否属于规范集合。
func (l Label) Valid() bool {
	for _, c := range canonical {
		if l == c {
			return true
		}
	}
	return false
}
