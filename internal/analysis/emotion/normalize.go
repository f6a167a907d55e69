package emotion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTableVersion 是内置归一化表的版本号。
const DefaultTableVersion = "builtin-v1"

// Table 把引擎输出的原始标签映射到规范情绪。
type Table struct {
	Version string           `yaml:"version"`
	Labels  map[string]Label `yaml:"labels"`
}

// DefaultTable 覆盖 j-hartmann distilroberta 的标签以及大模型常见的别名。
func DefaultTable() Table {
	return Table{
		Version: DefaultTableVersion,
		Labels: map[string]Label{
			"joy":         Happy,
			"happy":       Happy,
			"happiness":   Happy,
			"optimism":    Happy,
			"sadness":     Sadness,
			"sad":         Sadness,
			"grief":       Sadness,
			"anger":       Anger,
			"angry":       Anger,
			"annoyance":   Anger,
			"fear":        Fear,
			"scared":      Fear,
			"nervousness": Fear,
			"love":        Love,
			"caring":      Love,
			"surprise":    Surprise,
			"surprised":   Surprise,
			"disgust":     Disgust,
			"neutral":     Neutral,
			"calm":        Neutral,
		},
	}
}

// LoadTable 从 YAML 文件读取归一化表并校验。
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read label table: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return Table{}, fmt.Errorf("parse label table %s: %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return Table{}, fmt.Errorf("label table %s: %w", path, err)
	}
	return table, nil
}

// Validate 拒绝缺少版本号或目标不是规范情绪的表。
func (t Table) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("version is required")
	}
	for raw, label := range t.Labels {
		if !label.Valid() {
			return fmt.Errorf("raw label %q maps to unknown emotion %q", raw, label)
		}
	}
	return nil
}

// Normalizer 通过只读映射表归一化原始标签。
type Normalizer struct {
	version string
	labels  map[string]Label
}

// NewNormalizer 复制 t 并把键转为小写，丢弃非规范目标。
func NewNormalizer(t Table) *Normalizer {
	labels := make(map[string]Label, len(t.Labels))
	for raw, label := range t.Labels {
		if !label.Valid() {
			continue
		}
		labels[strings.ToLower(strings.TrimSpace(raw))] = label
	}
	return &Normalizer{version: t.Version, labels: labels}
}

// Normalize 返回 raw 对应的规范情绪，未收录时为 Neutral。
func (n *Normalizer) Normalize(raw string) Label {
	if label, ok := n.labels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return label
	}
	return Neutral
}

// Version 返回当前使用的表版本。
func (n *Normalizer) Version() string {
	return n.version
}
