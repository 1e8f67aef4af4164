package stats

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// Render 定義輸出行為
type Render[T any] interface {
	Write(w io.Writer, t *T) error
}

// Json渲染
type JSONRender[T any] struct{}

func (JSONRender[T]) Write(w io.Writer, t *T) error {
	return json.NewEncoder(w).Encode(t)
}

// YAML渲染
type YAMLRender[T any] struct{}

func (YAMLRender[T]) Write(w io.Writer, t *T) error {
	// 不管欄位，只要是陣列（YAML Sequence），就維持外層預設展開；
	// 只有「最內層的一維陣列」或「本身就是一維陣列」時才輸出成 flow style：[..., ...]
	return forceReadableList(w, t)
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		return

	case yaml.SequenceNode:
		// 含子 sequence 或 mapping 的是外層維度，保持展開
		nested := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				nested = true
				break
			}
		}
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		if !nested {
			n.Style = yaml.FlowStyle
		}
		return

	default:
		return
	}
}
