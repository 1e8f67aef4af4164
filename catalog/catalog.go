// Package catalog 主題（theme）目錄：固定、可列舉的外觀集合。
//
// 主題以扁平目錄中的 YAML/JSON 檔宣告（通常由 themes.FS 以 go:embed 提供），
// New 會一次載入、檢查重複、依 order 排序並凍結；凍結後只能讀取。
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/zintix-labs/hanoilab/errs"
	"gopkg.in/yaml.v3"
)

var (
	ErrDupID   = errs.NewFatal("duplicate theme id")
	ErrDupName = errs.NewFatal("duplicate theme name")
	ErrEmpty   = errs.NewFatal("theme catalog is empty")
)

// Colors 各元件的顏色；值為 "#rrggbb" 或 ANSI 色號 "0".."255"（lipgloss.Color 可直接使用）。
type Colors struct {
	Disk     string `yaml:"disk" json:"disk"`
	Pole     string `yaml:"pole" json:"pole"`
	Base     string `yaml:"base" json:"base"`
	Selected string `yaml:"selected" json:"selected"`
	Text     string `yaml:"text" json:"text"`
	Accent   string `yaml:"accent" json:"accent"`
}

type Theme struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Order  int    `yaml:"order" json:"order"`
	Colors Colors `yaml:"colors" json:"colors"`
}

var (
	idPattern    = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{6}|[0-9]{1,3})$`)
)

func (t Theme) validate() error {
	if !idPattern.MatchString(t.ID) {
		return errs.NewFatal(fmt.Sprintf("invalid theme id: %q", t.ID))
	}
	if strings.TrimSpace(t.Name) == "" {
		return errs.NewFatal(fmt.Sprintf("theme %s: name required", t.ID))
	}
	fields := []struct{ key, val string }{
		{"disk", t.Colors.Disk},
		{"pole", t.Colors.Pole},
		{"base", t.Colors.Base},
		{"selected", t.Colors.Selected},
		{"text", t.Colors.Text},
		{"accent", t.Colors.Accent},
	}
	for _, f := range fields {
		if !colorPattern.MatchString(f.val) {
			return errs.NewFatal(fmt.Sprintf("theme %s: invalid color %s=%q", t.ID, f.key, f.val))
		}
	}
	return nil
}

type Catalog struct {
	byID   map[string]Theme
	byName map[string]Theme
	order  []string // 依 Order（相同時依 ID）排序
	config *multiFS
	frozen bool
}

// New 從一或多個扁平 FS 載入所有主題並凍結。
func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	c := &Catalog{
		byID:   map[string]Theme{},
		byName: map[string]Theme{},
		order:  make([]string, 0, 8),
		config: multFS,
	}
	themes := make([]Theme, 0, len(multFS.index))
	for _, name := range multFS.names() {
		t, err := c.load(name)
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	if err := c.Register(themes...); err != nil {
		return nil, err
	}
	if len(c.order) == 0 {
		return nil, ErrEmpty
	}
	c.Freeze()
	return c, nil
}

// Register 加入主題；整批檢查通過才寫入。
func (c *Catalog) Register(themes ...Theme) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenID := map[string]struct{}{}
	seenName := map[string]struct{}{}
	for i := range themes {
		themes[i].ID = strings.ToLower(strings.TrimSpace(themes[i].ID))
		themes[i].Name = strings.TrimSpace(themes[i].Name)
		t := themes[i]
		if err := t.validate(); err != nil {
			return err
		}
		name := strings.ToLower(t.Name)
		if _, ok := c.byID[t.ID]; ok {
			return ErrDupID
		}
		if _, ok := c.byName[name]; ok {
			return ErrDupName
		}
		if _, ok := seenID[t.ID]; ok {
			return ErrDupID
		}
		if _, ok := seenName[name]; ok {
			return ErrDupName
		}
		seenID[t.ID] = struct{}{}
		seenName[name] = struct{}{}
	}
	for _, t := range themes {
		c.byID[t.ID] = t
		c.byName[strings.ToLower(t.Name)] = t
		c.order = append(c.order, t.ID)
	}
	slices.SortFunc(c.order, func(a, b string) int {
		if d := c.byID[a].Order - c.byID[b].Order; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return nil
}

func (c *Catalog) Get(id string) (Theme, bool) {
	t, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return t, ok
}

func (c *Catalog) GetByName(name string) (Theme, bool) {
	t, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *Catalog) IDs() []string {
	if len(c.order) == 0 {
		return nil
	}
	return append([]string(nil), c.order...)
}

func (c *Catalog) All() []Theme {
	out := make([]Theme, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Default 排序後的第一個主題。
func (c *Catalog) Default() Theme {
	if len(c.order) == 0 {
		return Theme{}
	}
	return c.byID[c.order[0]]
}

// Next 循環到下一個主題；未知 id 回到預設主題。
func (c *Catalog) Next(id string) Theme {
	if len(c.order) == 0 {
		return Theme{}
	}
	i := slices.Index(c.order, strings.ToLower(strings.TrimSpace(id)))
	if i < 0 {
		return c.Default()
	}
	return c.byID[c.order[(i+1)%len(c.order)]]
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func (c *Catalog) load(file string) (Theme, error) {
	if err := validFileName(file); err != nil {
		return Theme{}, err
	}
	src, ok := c.config.GetFS(file)
	if !ok {
		return Theme{}, errs.NewWarn("file name dose not exist in catalog")
	}
	raw, err := fs.ReadFile(src, file)
	if err != nil {
		return Theme{}, errs.Wrap(err, "catalog read file error")
	}
	t, err := parseThemeByExt(file, raw)
	if err != nil {
		return Theme{}, errs.WrapWithExtra(err, "catalog parse file error", file)
	}
	return t, nil
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty theme filename")
	}
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid theme filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	lower := strings.ToLower(file)
	if !(strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")) {
		return errs.NewFatal(fmt.Sprintf("invalid theme filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid theme filename: %q (cannot start with '.')", file))
	}
	return nil
}

func parseThemeByExt(filename string, raw []byte) (Theme, error) {
	var t Theme
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return Theme{}, errs.Wrap(err, "yaml decode")
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return Theme{}, errs.Wrap(err, "json decode")
		}
	default:
		return Theme{}, errs.NewFatal(fmt.Sprintf("unsupported theme format: %q", filename))
	}
	return t, nil
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 16),
	}

	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只允許根目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("theme FS must be flat (no subdirectories): %q", path))
			}
			lower := strings.ToLower(path)
			if !(strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate theme file %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// names 依檔名排序，讓載入順序穩定。
func (m *multiFS) names() []string {
	out := make([]string, 0, len(m.index))
	for n := range m.index {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
