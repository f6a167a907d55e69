package artwork

import "github.com/zhouzirui/moodart/backend/internal/analysis/emotion"

// Catalog 是启动时构建的只读展示表。
type Catalog struct {
	version string
	items   map[emotion.Label]Presentation
}

// NewCatalog 校验并复制 t。
func NewCatalog(t Table) (*Catalog, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	items := make(map[emotion.Label]Presentation, len(t.Items))
	for label, item := range t.Items {
		items[label] = item
	}
	return &Catalog{version: t.Version, items: items}, nil
}

// Present 返回 label 对应的展示内容，缺失时使用 neutral。
func (c *Catalog) Present(label emotion.Label) Presentation {
	if item, ok := c.items[label]; ok {
		return item
	}
	return c.items[emotion.Neutral]
}

// Version 返回当前使用的表版本。
func (c *Catalog) Version() string {
	return c.version
}
