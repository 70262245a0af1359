package ingest

import (
	"regexp"
	"strings"

	"github.com/ppiankov/attributa/internal/model"
)

type block struct {
	kind model.ContentType
	text string
}

var (
	latexEnvBegin = regexp.MustCompile(`^\\begin\{([a-zA-Z*]+)\}`)
	latexCommand  = regexp.MustCompile(`\\[a-zA-Z]+`)
	inlineMath    = regexp.MustCompile(`\$[^$\n]+\$|\\\([^\n]+?\\\)`)
	inlineCode    = regexp.MustCompile("`[^`\n]+`")
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// splitBlocks walks the text line by line. Fenced code, display math and
// LaTeX environments become their own blocks; everything else is split
// on blank lines and classified.
func splitBlocks(text string) []block {
	lines := strings.Split(text, "\n")
	var (
		blocks []block
		para   []string
	)

	flush := func() {
		if len(para) == 0 {
			return
		}
		p := strings.TrimSpace(strings.Join(para, "\n"))
		para = nil
		if p != "" {
			blocks = append(blocks, block{kind: classifyParagraph(p), text: p})
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~"):
			flush()
			fence := trimmed[:3]
			body, next := collectUntil(lines, i+1, func(l string) bool {
				return strings.HasPrefix(strings.TrimSpace(l), fence)
			})
			if body != "" {
				blocks = append(blocks, block{kind: model.ContentCode, text: body})
			}
			i = next

		case trimmed == "$$" || trimmed == `\[`:
			flush()
			closer := "$$"
			if trimmed == `\[` {
				closer = `\]`
			}
			body, next := collectUntil(lines, i+1, func(l string) bool {
				return strings.TrimSpace(l) == closer
			})
			if body != "" {
				blocks = append(blocks, block{kind: model.ContentLatex, text: body})
			}
			i = next

		case strings.HasPrefix(trimmed, "$$") && strings.HasSuffix(trimmed, "$$") && len(trimmed) > 4:
			flush()
			blocks = append(blocks, block{kind: model.ContentLatex, text: trimmed})

		case latexEnvBegin.MatchString(trimmed):
			flush()
			env := latexEnvBegin.FindStringSubmatch(trimmed)[1]
			end := `\end{` + env + `}`
			if strings.Contains(trimmed, end) {
				blocks = append(blocks, block{kind: model.ContentLatex, text: trimmed})
				continue
			}
			body, next := collectUntil(lines, i+1, func(l string) bool {
				return strings.Contains(l, end)
			})
			full := trimmed + "\n" + body
			if next < len(lines) {
				full += "\n" + strings.TrimSpace(lines[next])
			}
			blocks = append(blocks, block{kind: model.ContentLatex, text: strings.TrimSpace(full)})
			i = next

		case trimmed == "":
			flush()

		default:
			para = append(para, line)
		}
	}
	flush()

	return blocks
}

// collectUntil joins lines from start until stop matches; it returns the
// body and the index of the closing line (len(lines) if unterminated)
func collectUntil(lines []string, start int, stop func(string) bool) (string, int) {
	j := start
	for j < len(lines) && !stop(lines[j]) {
		j++
	}
	return strings.TrimRight(strings.Join(lines[start:min(j, len(lines))], "\n"), "\n "), j
}

// classifyParagraph decides the content type of a free-standing paragraph
func classifyParagraph(p string) model.ContentType {
	lines := strings.Split(p, "\n")
	codeLines := 0
	for _, l := range lines {
		if looksLikeCode(l) {
			codeLines++
		}
	}
	if float64(codeLines)/float64(len(lines)) >= 0.6 {
		return model.ContentCode
	}

	words := len(wordPattern.FindAllString(p, -1))
	commands := len(latexCommand.FindAllString(p, -1))
	if commands >= 3 && words > 0 && float64(commands)/float64(words) >= 0.2 {
		return model.ContentLatex
	}

	if inlineCode.MatchString(p) || inlineMath.MatchString(p) {
		return model.ContentMixed
	}
	return model.ContentProse
}

var (
	codeKeywords = regexp.MustCompile(`^(func|def|return|import|from|package|var|const|let|class|public|private|fn|if|for|while|SELECT|INSERT|UPDATE)\b`)
	codeSymbols  = []string{"=>", ":=", "==", "!=", "&&", "||", "#include", "console.", "printf(", "print("}
)

func looksLikeCode(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
		return true
	}

	t := strings.TrimSpace(line)
	if strings.HasSuffix(t, ";") || strings.HasSuffix(t, "{") || t == "}" || strings.HasSuffix(t, "):") {
		return true
	}
	if codeKeywords.MatchString(t) {
		return true
	}
	for _, sym := range codeSymbols {
		if strings.Contains(t, sym) {
			return true
		}
	}
	return false
}

// mergeProse joins adjacent prose blocks while the result stays within target characters
func mergeProse(blocks []block, target int) []block {
	var out []block
	for _, b := range blocks {
		if n := len(out); n > 0 && b.kind == model.ContentProse && out[n-1].kind == model.ContentProse {
			joined := out[n-1].text + "\n\n" + b.text
			if len([]rune(joined)) <= target {
				out[n-1].text = joined
				continue
			}
		}
		out = append(out, b)
	}
	return out
}
