package artwork

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/moodart/backend/internal/analysis/emotion"
)

// DefaultTableVersion 是内置展示表的版本号。
const DefaultTableVersion = "builtin-v1"

// Presentation 把一张插画与一句安慰回复配对。
type Presentation struct {
	Asset    string `json:"asset" yaml:"asset"`
	Response string `json:"response" yaml:"response"`
}

// Table 是带版本号的情绪到展示内容映射。
type Table struct {
	Version string                         `yaml:"version"`
	Items   map[emotion.Label]Presentation `yaml:"presentations"`
}

// Seed 返回内置插画集，资源位于 /static/art 下。
func Seed() Table {
	return Table{
		Version: DefaultTableVersion,
		Items: map[emotion.Label]Presentation{
			emotion.Happy: {
				Asset:    "/static/art/happy.jpg",
				Response: "That's wonderful to hear! Hold on to this feeling and let it carry you through the day.",
			},
			emotion.Sadness: {
				Asset:    "/static/art/sad.jpg",
				Response: "I'm sorry you're feeling this way. It's okay to be sad, and you don't have to go through it alone.",
			},
			emotion.Anger: {
				Asset:    "/static/art/angry.jpg",
				Response: "It sounds like something really got to you. Take a slow breath; your feelings are valid.",
			},
			emotion.Fear: {
				Asset:    "/static/art/fear.jpg",
				Response: "Feeling afraid is hard. You're safe right now, so take it one small step at a time.",
			},
			emotion.Love: {
				Asset:    "/static/art/love.jpg",
				Response: "What a warm feeling! Cherish the people and moments that fill you with love.",
			},
			emotion.Surprise: {
				Asset:    "/static/art/surprise.jpg",
				Response: "Wow, that sounds unexpected! Give yourself a moment to take it all in.",
			},
			emotion.Disgust: {
				Asset:    "/static/art/disgust.jpg",
				Response: "That sounds really unpleasant. It's fine to step away from what bothers you.",
			},
			emotion.Neutral: {
				Asset:    "/static/art/calm.jpg",
				Response: "Thanks for sharing. Take a calm moment for yourself today.",
			},
		},
	}
}

// LoadTable 从 YAML 文件读取展示表并校验。
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read art table: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return Table{}, fmt.Errorf("parse art table %s: %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return Table{}, fmt.Errorf("art table %s: %w", path, err)
	}
	return table, nil
}

// Validate 要求版本号非空、键均为规范情绪，且必须包含 neutral 作为兜底。
func (t Table) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("version is required")
	}
	for label, item := range t.Items {
		if !label.Valid() {
			return fmt.Errorf("unknown emotion %q", label)
		}
		if strings.TrimSpace(item.Asset) == "" {
			return fmt.Errorf("emotion %q has no asset", label)
		}
	}
	if _, ok := t.Items[emotion.Neutral]; !ok {
		return fmt.Errorf("neutral presentation is required")
	}
	return nil
}
