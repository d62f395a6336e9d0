package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/pkg/resp"
)

// PlainFormatter renders replies the way redis-cli does on a terminal.
type PlainFormatter struct{}

// Format writes v followed by a newline.
func (f *PlainFormatter) Format(w io.Writer, v resp.Value) error {
	_, err := io.WriteString(w, renderPlain(v)+"\n")
	return err
}

func renderPlain(v resp.Value) string {
	switch v.Kind() {
	case resp.KindSimpleString:
		return v.Str()
	case resp.KindError:
		return "(error) " + v.Str()
	case resp.KindInteger:
		return "(integer) " + strconv.FormatInt(v.Int(), 10)
	case resp.KindBulk:
		return quoteBulk(v.Bytes())
	case resp.KindNilBulk, resp.KindNilArray:
		return "(nil)"
	case resp.KindArray:
		return renderArray(v)
	default:
		return "(invalid)"
	}
}

// renderArray numbers each element and indents continuation lines of nested
// arrays under their element.
func renderArray(v resp.Value) string {
	if v.Len() == 0 {
		return "(empty array)"
	}

	width := len(strconv.Itoa(v.Len()))
	var b strings.Builder
	for i, e := range v.All() {
		if i > 0 {
			b.WriteByte('\n')
		}
		prefix := fmt.Sprintf("%*d) ", width, i+1)
		pad := strings.Repeat(" ", len(prefix))
		for j, line := range strings.Split(renderPlain(e), "\n") {
			if j == 0 {
				b.WriteString(prefix)
			} else {
				b.WriteByte('\n')
				b.WriteString(pad)
			}
			b.WriteString(line)
		}
	}
	return b.String()
}

// quoteBulk quotes b with the escapes redis-cli uses.
func quoteBulk(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	sb.WriteByte('"')
	for _, c := range b {
		switch c {
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// RawFormatter prints payloads without decoration, one per line.
type RawFormatter struct{}

// Format writes v. Nil replies print an empty line.
func (f *RawFormatter) Format(w io.Writer, v resp.Value) error {
	if v.Kind() == resp.KindArray {
		for _, e := range v.All() {
			if err := f.Format(w, e); err != nil {
				return err
			}
		}
		return nil
	}
	var line []byte
	if !v.IsNil() {
		line = v.Bytes()
	}
	_, err := w.Write(append(line, '\n'))
	return err
}
