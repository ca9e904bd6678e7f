package workflow

import (
	"fmt"
	"strings"

	domain "github.com/webforge/backend/internal/domain/workflow"
)

// fenced 把一段代码包进指定语言的 Markdown 代码块
func fenced(lang, code string) string {
	return "```" + lang + "\n" + code + "\n```"
}

// buildPrompt 生成阶段的提示词，同一状态总是得到同一提示词
func buildPrompt(stage domain.Stage, state domain.State) string {
	request := state.LatestUserMessage()

	var b strings.Builder
	switch stage {
	case domain.StageCreateHTML:
		fmt.Fprintf(&b, "You are a senior front-end engineer. Build a website for this request: %q.\n", request)
		b.WriteString("Write the complete `index.html` for it. Link `styles.css` and `app.js` from the page.\n")
		b.WriteString("Reply with the raw HTML document only, without Markdown or commentary.")

	case domain.StageCreateCSS:
		fmt.Fprintf(&b, "You are a senior front-end engineer building a website for this request: %q.\n", request)
		b.WriteString("The HTML already exists. Write the complete `styles.css` that styles it.\n\n")
		b.WriteString("HTML:\n")
		b.WriteString(fenced("html", state.DraftHTML))
		b.WriteString("\n\nReply with the raw CSS only, without Markdown or commentary.")

	case domain.StageCreateJS:
		fmt.Fprintf(&b, "You are a senior front-end engineer building a website for this request: %q.\n", request)
		b.WriteString("The HTML and CSS already exist. Write the complete `app.js` that adds the interactive behaviour.\n\n")
		b.WriteString("HTML:\n")
		b.WriteString(fenced("html", state.DraftHTML))
		b.WriteString("\n\nCSS:\n")
		b.WriteString(fenced("css", state.DraftCSS))
		b.WriteString("\n\nReply with the raw JavaScript only, without Markdown or commentary.")

	case domain.StageEditHTML:
		writeEditHeader(&b, request, state.RetrievedContext)
		b.WriteString("Rewrite the HTML below so it fulfils the instruction and stays consistent with the styles and scripts in the related code.\n\n")
		b.WriteString("Current HTML (to modify):\n")
		b.WriteString(fenced("html", state.DraftHTML))
		b.WriteString("\n\nReply with the full updated HTML document only, without Markdown or commentary.")

	case domain.StageEditCSS:
		writeEditHeader(&b, request, state.RetrievedContext)
		b.WriteString("Rewrite the CSS below so it fulfils the instruction and styles the HTML shown.\n\n")
		b.WriteString("HTML:\n")
		b.WriteString(fenced("html", state.DraftHTML))
		b.WriteString("\n\nCurrent CSS (to modify):\n")
		b.WriteString(fenced("css", state.DraftCSS))
		b.WriteString("\n\nReply with the full updated CSS only, without Markdown or commentary.")

	case domain.StageEditJS:
		writeEditHeader(&b, request, state.RetrievedContext)
		b.WriteString("Rewrite the JavaScript below so it fulfils the instruction and works with the HTML and CSS shown.\n\n")
		b.WriteString("HTML:\n")
		b.WriteString(fenced("html", state.DraftHTML))
		b.WriteString("\n\nCSS:\n")
		b.WriteString(fenced("css", state.DraftCSS))
		b.WriteString("\n\nCurrent JavaScript (to modify):\n")
		b.WriteString(fenced("javascript", state.DraftJS))
		b.WriteString("\n\nReply with the full updated JavaScript only, without Markdown or commentary.")
	}
	return b.String()
}

func writeEditHeader(b *strings.Builder, request, retrieved string) {
	b.WriteString("You are a senior front-end engineer changing an existing website.\n")
	fmt.Fprintf(b, "Instruction: %q\n\n", request)
	b.WriteString("Related code from the project:\n")
	b.WriteString(fenced("", retrieved))
	b.WriteString("\n\n")
}
