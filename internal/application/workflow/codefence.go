package workflow

import (
	"regexp"
	"strings"
)

var (
	// openingFence 独占一行的任意标签，或紧跟代码的已知标签
	openingFence = regexp.MustCompile("(?i)^```(?:[\\w+#.-]*[ \t]*\r?\n|(?:(?:html|css|javascript|js)\\b)?)")
	closingFence = regexp.MustCompile("\\s*```\\s*$")
	// lineFence 行首的代码块标记
	lineFence = regexp.MustCompile("(?m)^[ \t]*```")
)

// stripCodeFences 去掉首尾的 Markdown 代码块标记和空白
// 以代码块开头且结尾不是标记时，丢弃最后一个行首标记之后的说明文字
func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	opened := false
	if loc := openingFence.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
		opened = true
	}

	switch {
	case closingFence.MatchString(s):
		s = closingFence.ReplaceAllString(s, "")
	case opened:
		if locs := lineFence.FindAllStringIndex(s, -1); len(locs) > 0 {
			s = s[:locs[len(locs)-1][0]]
		}
	}
	return strings.TrimSpace(s)
}
