package shaderc

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
)

var identifier = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

type condition struct {
	active     bool // lines are emitted
	parentLive bool
	seenElse   bool
	line       int
}

/**
 * @brief Preprocess applies #define, #undef, #ifdef, #ifndef, #else and
 * #endif to source.
 *
 * defines are NAME or NAME=VALUE. Defined values replace whole identifiers
 * in emitted lines. Directive lines and skipped lines are replaced by empty
 * lines so that compiler diagnostics keep their line numbers.
 */
func Preprocess(source string, defines []string) (string, error) {
	macros := make(map[string]string, len(defines))
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if !isIdentifier(name) {
			return "", fmt.Errorf("invalid definition %q", d)
		}
		macros[name] = strings.TrimSpace(value)
	}

	var (
		out   strings.Builder
		stack []condition
	)
	live := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	sc := bufio.NewScanner(strings.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if live() {
				out.WriteString(expand(line, macros))
			}
			out.WriteByte('\n')
			continue
		}

		directive, rest, _ := strings.Cut(strings.TrimSpace(trimmed[1:]), " ")
		rest = strings.TrimSpace(rest)
		switch directive {
		case "define":
			if live() {
				name, value, _ := strings.Cut(rest, " ")
				if !isIdentifier(name) {
					return "", fmt.Errorf("line %d: invalid #define %q", lineNo, rest)
				}
				macros[name] = strings.TrimSpace(value)
			}
		case "undef":
			if live() {
				delete(macros, rest)
			}
		case "ifdef", "ifndef":
			if !isIdentifier(rest) {
				return "", fmt.Errorf("line %d: #%s needs a name", lineNo, directive)
			}
			_, defined := macros[rest]
			parent := live()
			stack = append(stack, condition{
				active:     parent && defined == (directive == "ifdef"),
				parentLive: parent,
				line:       lineNo,
			})
		case "else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #ifdef", lineNo)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", fmt.Errorf("line %d: duplicate #else", lineNo)
			}
			top.seenElse = true
			top.active = top.parentLive && !top.active
		case "endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #ifdef", lineNo)
			}
			stack = stack[:len(stack)-1]
		default:
			// Not ours, e.g. GLSL #version or #extension.
			if live() {
				out.WriteString(line)
			}
		}
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("line %d: unterminated conditional", stack[len(stack)-1].line)
	}
	return out.String(), nil
}

func expand(line string, macros map[string]string) string {
	if len(macros) == 0 {
		return line
	}
	return identifier.ReplaceAllStringFunc(line, func(word string) string {
		if v, ok := macros[word]; ok && v != "" {
			return v
		}
		return word
	})
}

func isIdentifier(s string) bool {
	return s != "" && identifier.FindString(s) == s
}
