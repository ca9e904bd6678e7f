package project

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName 项目级忽略规则文件
const IgnoreFileName = ".webforgeignore"

// 始终忽略的条目
var defaultIgnoreLines = []string{
	IgnoreFileName,
	".*.tmp",
	"*.zip",
	"node_modules/",
}

// IgnoreRules 索引和打包时使用的忽略规则
type IgnoreRules struct {
	matcher *ignore.GitIgnore
}

// LoadIgnoreRules 读取 dir 下的 .webforgeignore 并合并默认规则
func LoadIgnoreRules(dir string) *IgnoreRules {
	lines := append([]string{}, defaultIgnoreLines...)
	if extra, err := readIgnoreFile(filepath.Join(dir, IgnoreFileName)); err == nil {
		lines = append(lines, extra...)
	}
	return &IgnoreRules{matcher: ignore.CompileIgnoreLines(lines...)}
}

// Ignored 判断相对路径是否被忽略
func (r *IgnoreRules) Ignored(relPath string) bool {
	if r == nil || r.matcher == nil {
		return false
	}
	return r.matcher.MatchesPath(filepath.ToSlash(relPath))
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// IsCodeFile 是否为参与索引的代码文件
func IsCodeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".css", ".js":
		return true
	}
	return false
}
