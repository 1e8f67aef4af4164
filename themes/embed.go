package themes

import (
	"embed"
)

// FS 內建主題 YAML（扁平目錄），交給 catalog.New 載入。
//
//go:embed *.yaml
var FS embed.FS
