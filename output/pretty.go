package output

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

type PrettyPrinter struct {
	writer        io.Writer
	plain         Printer
	aurora        aurora.Aurora
	headerPalette *HeaderPalette
	jsonPalette   *JSONPalette
	indentWidth   int
}

type PrettyPrinterConfig struct {
	Writer      io.Writer
	EnableColor bool
}

type HeaderPalette struct {
	Method         aurora.Color
	URL            aurora.Color
	Proto          aurora.Color
	SuccessStatus  aurora.Color
	RedirectStatus aurora.Color
	ErrorStatus    aurora.Color
	FieldName      aurora.Color
	FieldValue     aurora.Color
	FieldSeparator aurora.Color
}

var defaultHeaderPalette = HeaderPalette{
	Method:         aurora.GreenFg | aurora.BoldFm,
	URL:            aurora.CyanFg,
	Proto:          aurora.BlueFg,
	SuccessStatus:  aurora.GreenFg | aurora.BoldFm,
	RedirectStatus: aurora.BrownFg | aurora.BoldFm,
	ErrorStatus:    aurora.RedFg | aurora.BoldFm,
	FieldName:      aurora.GrayFg,
	FieldValue:     aurora.CyanFg,
	FieldSeparator: aurora.GrayFg,
}

type JSONPalette struct {
	Name    aurora.Color
	String  aurora.Color
	Number  aurora.Color
	Boolean aurora.Color
	Null    aurora.Color
	Symbol  aurora.Color
}

var defaultJSONPalette = JSONPalette{
	Name:    aurora.BlueFg | aurora.BoldFm,
	String:  aurora.BrownFg,
	Number:  aurora.CyanFg,
	Boolean: aurora.MagentaFg,
	Null:    aurora.RedFg,
	Symbol:  aurora.GrayFg,
}

func NewPrettyPrinter(config PrettyPrinterConfig) Printer {
	return &PrettyPrinter{
		writer:        config.Writer,
		plain:         NewPlainPrinter(config.Writer),
		aurora:        aurora.NewAurora(config.EnableColor),
		headerPalette: &defaultHeaderPalette,
		jsonPalette:   &defaultJSONPalette,
		indentWidth:   4,
	}
}

func (p *PrettyPrinter) PrintStatusLine(proto string, status string, statusCode int) error {
	statusColor := p.headerPalette.SuccessStatus
	switch {
	case statusCode >= 400:
		statusColor = p.headerPalette.ErrorStatus
	case statusCode >= 300:
		statusColor = p.headerPalette.RedirectStatus
	}
	fmt.Fprintf(p.writer, "%s %s\n",
		p.aurora.Colorize(proto, p.headerPalette.Proto),
		p.aurora.Colorize(status, statusColor))
	return nil
}

func (p *PrettyPrinter) PrintRequestLine(req *http.Request) error {
	fmt.Fprintf(p.writer, "%s %s %s\n",
		p.aurora.Colorize(req.Method, p.headerPalette.Method),
		p.aurora.Colorize(req.URL.String(), p.headerPalette.URL),
		p.aurora.Colorize(requestProto(req), p.headerPalette.Proto))
	return nil
}

func (p *PrettyPrinter) PrintHeader(header http.Header) error {
	for _, name := range sortedNames(header) {
		for _, value := range header[name] {
			fmt.Fprintf(p.writer, "%s%s %s\n",
				p.aurora.Colorize(name, p.headerPalette.FieldName),
				p.aurora.Colorize(":", p.headerPalette.FieldSeparator),
				p.aurora.Colorize(value, p.headerPalette.FieldValue))
		}
	}

	fmt.Fprintln(p.writer)
	return nil
}

func isJSON(contentType string) bool {
	contentType = strings.TrimSpace(contentType)

	semicolon := strings.Index(contentType, ";")
	if semicolon != -1 {
		contentType = strings.TrimSpace(contentType[:semicolon])
	}

	// e.g. application/problem+json (RFC 7807)
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

func (p *PrettyPrinter) PrintBody(body io.Reader, contentType string) error {
	// Fallback to PlainPrinter when the body is not JSON
	if !isJSON(contentType) {
		return p.plain.PrintBody(body, contentType)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return errors.Wrap(err, "reading body")
	}

	// Print as is when the body is not well-formed
	if len(bytes.TrimSpace(data)) == 0 || !gjson.ValidBytes(data) {
		_, err := p.writer.Write(data)
		return errors.Wrap(err, "printing body")
	}

	var sb strings.Builder
	p.formatJSON(&sb, gjson.ParseBytes(data), 0)
	sb.WriteByte('\n')
	if _, err := io.WriteString(p.writer, sb.String()); err != nil {
		return errors.Wrap(err, "printing body")
	}
	return nil
}

func (p *PrettyPrinter) formatJSON(sb *strings.Builder, v gjson.Result, depth int) {
	switch {
	case v.IsObject():
		var names, values []gjson.Result
		v.ForEach(func(name, value gjson.Result) bool {
			names = append(names, name)
			values = append(values, value)
			return true
		})
		if len(names) == 0 {
			sb.WriteString(p.symbol("{}"))
			return
		}
		sb.WriteString(p.symbol("{"))
		sb.WriteByte('\n')
		for i := range names {
			p.indent(sb, depth+1)
			sb.WriteString(p.aurora.Colorize(quote(names[i].String()), p.jsonPalette.Name).String())
			sb.WriteString(p.symbol(":"))
			sb.WriteByte(' ')
			p.formatJSON(sb, values[i], depth+1)
			if i < len(names)-1 {
				sb.WriteString(p.symbol(","))
			}
			sb.WriteByte('\n')
		}
		p.indent(sb, depth)
		sb.WriteString(p.symbol("}"))
	case v.IsArray():
		elems := v.Array()
		if len(elems) == 0 {
			sb.WriteString(p.symbol("[]"))
			return
		}
		sb.WriteString(p.symbol("["))
		sb.WriteByte('\n')
		for i, elem := range elems {
			p.indent(sb, depth+1)
			p.formatJSON(sb, elem, depth+1)
			if i < len(elems)-1 {
				sb.WriteString(p.symbol(","))
			}
			sb.WriteByte('\n')
		}
		p.indent(sb, depth)
		sb.WriteString(p.symbol("]"))
	default:
		var color aurora.Color
		text := v.Raw
		switch v.Type {
		case gjson.String:
			color = p.jsonPalette.String
			text = quote(v.String())
		case gjson.Number:
			color = p.jsonPalette.Number
		case gjson.True, gjson.False:
			color = p.jsonPalette.Boolean
		default:
			color = p.jsonPalette.Null
		}
		sb.WriteString(p.aurora.Colorize(text, color).String())
	}
}

func (p *PrettyPrinter) symbol(s string) string {
	return p.aurora.Colorize(s, p.jsonPalette.Symbol).String()
}

func (p *PrettyPrinter) indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat(" ", depth*p.indentWidth))
}

// quote encodes s as a JSON string, leaving non-ASCII characters and HTML
// metacharacters unescaped.
func quote(s string) string {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
