package output

import (
	"io"
	"net/http"
)

type Printer interface {
	PrintStatusLine(proto string, status string, statusCode int) error
	PrintRequestLine(req *http.Request) error
	PrintHeader(header http.Header) error
	PrintBody(body io.Reader, contentType string) error
}

// NewPrinter returns the printer selected by options.
func NewPrinter(writer io.Writer, options *Options) Printer {
	if options.EnableFormat {
		return NewPrettyPrinter(PrettyPrinterConfig{
			Writer:      writer,
			EnableColor: options.EnableColor,
		})
	}
	return NewPlainPrinter(writer)
}
