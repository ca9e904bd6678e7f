package workflow

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

// 项目产物文件名
const (
	FileHTML = "index.html"
	FileCSS  = "styles.css"
	FileJS   = "app.js"
)

// 草稿缺失时写入的占位内容
const (
	PlaceholderHTML = "<!-- HTML generation failed -->"
	PlaceholderCSS  = "/* CSS generation failed */"
	PlaceholderJS   = "// JavaScript generation failed"
)

// GeneratedAppsDir 生成项目的根目录名
const GeneratedAppsDir = "generated_apps"

// defaultProjectSlug 默认会话使用的项目目录名
const defaultProjectSlug = "current_project"

// ArtifactFiles 按生成顺序排列的产物文件
var ArtifactFiles = []string{FileHTML, FileCSS, FileJS}

// Placeholder 返回文件对应的占位内容
func Placeholder(filename string) string {
	switch filename {
	case FileHTML:
		return PlaceholderHTML
	case FileCSS:
		return PlaceholderCSS
	case FileJS:
		return PlaceholderJS
	}
	return ""
}

// MissingFileMarker 单个文件不存在时的标记
func MissingFileMarker(filename string) string {
	return "// " + filename + " not found"
}

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ProjectSlug 会话对应的项目目录名
// default 会话沿用 current_project，其他会话按 ID 隔离
// ID 含非法字符时追加哈希后缀，避免清洗后重名
func ProjectSlug(sessionID string) string {
	if sessionID == "" || sessionID == DefaultSessionID {
		return defaultProjectSlug
	}
	slug := strings.Trim(slugUnsafe.ReplaceAllString(sessionID, "-"), "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug != sessionID {
		sum := sha1.Sum([]byte(sessionID))
		suffix := hex.EncodeToString(sum[:])[:8]
		if slug == "" {
			slug = suffix
		} else {
			slug = slug + "-" + suffix
		}
	}
	return "session-" + slug
}
