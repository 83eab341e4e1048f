package stage

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
)

const emptyView = `<span style="color: #666">No terminal output at this point</span>`

// ViewToHTML converts a rendered terminal view to HTML. SGR sequences become
// styled spans; every other escape sequence (cursor movement, clears, titles)
// is dropped. Text is escaped, so the result is safe inside a template.
func ViewToHTML(view string) template.HTML {
	view = strings.ReplaceAll(view, "\r", "")
	if strings.TrimSpace(view) == "" {
		return template.HTML(emptyView)
	}

	var b strings.Builder
	open := 0
	start := 0

	for i := 0; i < len(view); {
		if view[i] != '\x1b' || i+1 >= len(view) || view[i+1] != '[' {
			i++
			continue
		}

		b.WriteString(html.EscapeString(view[start:i]))

		// CSI parameters run until the final byte in 0x40-0x7e.
		j := i + 2
		for j < len(view) && (view[j] < 0x40 || view[j] > 0x7e) {
			j++
		}
		if j == len(view) {
			start = j
			break
		}
		if view[j] == 'm' {
			open = writeSGR(&b, view[i+2:j], open)
		}
		i = j + 1
		start = i
	}
	if start < len(view) {
		b.WriteString(html.EscapeString(view[start:]))
	}

	for ; open > 0; open-- {
		b.WriteString("</span>")
	}
	return template.HTML(b.String())
}

// writeSGR writes the HTML for one "select graphic rendition" sequence and
// returns the number of spans left open.
func writeSGR(b *strings.Builder, params string, open int) int {
	decls, reset := sgrStyle(params)
	if reset {
		for ; open > 0; open-- {
			b.WriteString("</span>")
		}
	}
	if len(decls) > 0 {
		fmt.Fprintf(b, `<span style="%s">`, strings.Join(decls, "; "))
		open++
	}
	return open
}

// sgrStyle maps SGR parameters to CSS declarations. reset reports whether the
// sequence clears the current style before applying its own.
func sgrStyle(params string) (decls []string, reset bool) {
	if params == "" {
		return nil, true
	}

	codes := strings.Split(params, ";")
	for i := 0; i < len(codes); i++ {
		code, err := strconv.Atoi(codes[i])
		if err != nil {
			continue
		}

		switch {
		case code == 0:
			reset = true
			decls = decls[:0]
		case code == 1:
			decls = append(decls, "font-weight: bold")
		case code == 2:
			decls = append(decls, "opacity: 0.7")
		case code == 3:
			decls = append(decls, "font-style: italic")
		case code == 4:
			decls = append(decls, "text-decoration: underline")
		case code >= 30 && code <= 37:
			decls = append(decls, "color: "+xtermColor(code-30))
		case code >= 90 && code <= 97:
			decls = append(decls, "color: "+xtermColor(code-90+8))
		case code >= 40 && code <= 47:
			decls = append(decls, "background: "+xtermColor(code-40))
		case code >= 100 && code <= 107:
			decls = append(decls, "background: "+xtermColor(code-100+8))
		case code == 38 || code == 48:
			property := "color"
			if code == 48 {
				property = "background"
			}
			color, used := extendedColor(codes[i+1:])
			if color != "" {
				decls = append(decls, property+": "+color)
			}
			i += used
		}
	}
	return decls, reset
}

// extendedColor reads the arguments of a 38 or 48 code: "5;n" for the 256
// color palette or "2;r;g;b" for true color. It returns the CSS color and how
// many arguments it consumed.
func extendedColor(args []string) (string, int) {
	if len(args) == 0 {
		return "", 0
	}

	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return max(0, min(n, 255))
	}

	switch args[0] {
	case "5":
		if len(args) < 2 {
			return "", len(args)
		}
		return xtermColor(num(args[1])), 2
	case "2":
		if len(args) < 4 {
			return "", len(args)
		}
		return fmt.Sprintf("#%02x%02x%02x", num(args[1]), num(args[2]), num(args[3])), 4
	}
	return "", 1
}

var basicColors = [16]string{
	"#000000", "#800000", "#008000", "#808000", "#000080", "#800080", "#008080", "#c0c0c0",
	"#808080", "#ff0000", "#00ff00", "#ffff00", "#0000ff", "#ff00ff", "#00ffff", "#ffffff",
}

// xtermColor returns the CSS color of entry n of the xterm 256 color palette.
func xtermColor(n int) string {
	switch {
	case n < 16:
		return basicColors[max(n, 0)]
	case n < 232:
		n -= 16
		level := func(v int) int {
			if v == 0 {
				return 0
			}
			return 55 + 40*v
		}
		return fmt.Sprintf("#%02x%02x%02x", level(n/36), level(n/6%6), level(n%6))
	default:
		gray := 8 + 10*(min(n, 255)-232)
		return fmt.Sprintf("#%02x%02x%02x", gray, gray, gray)
	}
}
