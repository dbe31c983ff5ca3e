package httpchain

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/HexmosTech/httpchain/exchange"
	"github.com/HexmosTech/httpchain/flags"
	"github.com/HexmosTech/httpchain/input"
	"github.com/HexmosTech/httpchain/output"
	"github.com/HexmosTech/httpchain/reqerr"
	"github.com/HexmosTech/httpchain/request"
	"github.com/HexmosTech/httpchain/response"
	"github.com/HexmosTech/httpchain/version"
)

// Main runs the ht command line.
func Main() error {
	args, flagSet, options, err := flags.Parse(os.Args)
	if err != nil {
		if reqerr.Is(err, reqerr.InvalidArgument) && flagSet != nil {
			flagSet.PrintUsage(os.Stderr)
		}
		return err
	}

	if options.PrintVersion {
		fmt.Printf("httpchain %s\n", version.Current())
		return nil
	}
	if options.PrintLicenses {
		version.PrintLicenses(os.Stdout)
		return nil
	}

	logger := newLogger(os.Stderr, options.Verbose)

	// Parse positional arguments
	in, err := input.ParseArgs(args, os.Stdin, &options.InputOptions)
	if err != nil {
		if reqerr.Is(err, reqerr.InvalidArgument) {
			flagSet.PrintUsage(os.Stderr)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()

	return Exchange(ctx, in, options, writer, os.Stderr, logger)
}

func newLogger(w *os.File, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

// Exchange sends the request described by in and prints it and its response
// to out as options ask. Download progress goes to progress.
func Exchange(ctx context.Context, in *input.Input, options *flags.OptionSet, out io.Writer, progress io.Writer, logger *slog.Logger) error {
	client, err := exchange.NewClient(&options.ExchangeOptions)
	if err != nil {
		return err
	}
	printer := output.NewPrinter(out, &options.OutputOptions)
	doer := &printingDoer{
		client:  client,
		printer: printer,
		out:     out,
		options: &options.OutputOptions,
	}

	r := request.New(in.URL.String()).
		InjectClient(func(string) exchange.Doer { return doer }).
		WithLogger(logger).
		OnError(func(resp *http.Response) {
			logger.WarnContext(ctx, "server returned an error status", "status", resp.Status)
		})
	if err := configure(r, in, options); err != nil {
		return err
	}

	resp, err := r.Do(ctx, string(in.Method))
	if err != nil {
		return err
	}

	outputOptions := &options.OutputOptions
	if outputOptions.PrintResponseHeader {
		if err := printer.PrintStatusLine(resp.Proto, resp.Status, resp.StatusCode); err != nil {
			return err
		}
		if err := printer.PrintHeader(resp.Header); err != nil {
			return err
		}
	}

	if outputOptions.Download {
		defer resp.Body.Close()
		fileWriter := output.NewFileWriter(in.URL, outputOptions, progress)
		_, err := fileWriter.Download(resp)
		return err
	}

	body, err := response.ReadStream(ctx, resp)
	if err != nil {
		return err
	}
	if outputOptions.PrintResponseBody {
		if err := printer.PrintBody(body, resp.Header.Get("Content-Type")); err != nil {
			return err
		}
	}
	return nil
}

// configure translates command line items into builder calls.
func configure(r *request.Request, in *input.Input, options *flags.OptionSet) error {
	if len(in.Parameters) > 0 {
		fields, err := resolveFields(in.Parameters)
		if err != nil {
			return err
		}
		r.WithQuery(fields)
	}
	if len(in.Header.Fields) > 0 {
		fields, err := resolveFields(in.Header.Fields)
		if err != nil {
			return err
		}
		r.WithHeader(fields)
	}

	if options.Auth.Enabled {
		r.WithBasicAuth(options.Auth.UserName, options.Auth.Password)
	}
	if options.BearerToken != "" {
		r.WithBearerToken(options.BearerToken)
	}

	switch in.Body.BodyType {
	case input.JSONBody:
		obj, err := buildJSONObject(&in.Body)
		if err != nil {
			return err
		}
		r.WithJSONBody(obj)
	case input.FormBody:
		fields, err := resolveFields(in.Body.Fields)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			r.WithFormData(fields)
		}
		for _, file := range in.Body.Files {
			content, err := os.ReadFile(file.Value)
			if err != nil {
				return errors.Wrapf(err, "reading file of '%s'", file.Name)
			}
			r.AddFormFile(bytes.NewReader(content), file.Name, filepath.Base(file.Value))
		}
	case input.RawBody:
		r.WithRawBody(in.Body.Raw, "application/json")
	}
	return r.Err()
}

func buildJSONObject(body *input.Body) (map[string]interface{}, error) {
	obj := map[string]interface{}{}
	for _, field := range body.Fields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		obj[field.Name] = value
	}
	for _, field := range body.RawJSONFields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(value)) {
			return nil, reqerr.Errorf(reqerr.InvalidArgument, "invalid JSON value of '%s'", field.Name)
		}
		obj[field.Name] = json.RawMessage(value)
	}
	return obj, nil
}

func resolveFields(fields []input.Field) ([]input.Field, error) {
	resolved := make([]input.Field, 0, len(fields))
	for _, field := range fields {
		value, err := resolveFieldValue(field)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, input.Field{Name: field.Name, Value: value})
	}
	return resolved, nil
}

func resolveFieldValue(field input.Field) (string, error) {
	if !field.IsFile {
		return field.Value, nil
	}
	data, err := os.ReadFile(field.Value)
	if err != nil {
		return "", errors.Wrapf(err, "reading field value of '%s'", field.Name)
	}
	return string(data), nil
}

// printingDoer prints the outgoing request, with the client defaults applied,
// before handing it to client.
type printingDoer struct {
	client  *exchange.Client
	printer output.Printer
	out     io.Writer
	options *output.Options
}

func (d *printingDoer) Do(req *http.Request) (*http.Response, error) {
	d.client.Prepare(req)
	if d.options.PrintRequestHeader {
		if err := d.printer.PrintRequestLine(req); err != nil {
			return nil, err
		}
		if err := d.printer.PrintHeader(req.Header); err != nil {
			return nil, err
		}
	}
	if d.options.PrintRequestBody && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "reading request body")
		}
		if err := d.printer.PrintBody(body, req.Header.Get("Content-Type")); err != nil {
			return nil, err
		}
		fmt.Fprintln(d.out)
		fmt.Fprintln(d.out)
	}
	return d.client.Do(req)
}
