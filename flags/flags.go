package flags

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pborman/getopt"
	"github.com/pkg/errors"

	"github.com/HexmosTech/httpchain/exchange"
	"github.com/HexmosTech/httpchain/input"
	"github.com/HexmosTech/httpchain/output"
	"github.com/HexmosTech/httpchain/reqerr"
)

var reNumber = regexp.MustCompile(`^[0-9.]+$`)

// askPasswordFunc is replaced in tests.
var askPasswordFunc = askPassword

type FlagSet interface {
	PrintUsage(w io.Writer)
}

type AuthOptions struct {
	Enabled  bool
	UserName string
	Password string
}

type OptionSet struct {
	InputOptions    input.Options
	ExchangeOptions exchange.Options
	OutputOptions   output.Options
	Auth            AuthOptions
	BearerToken     string
	Verbose         bool
	PrintVersion    bool
	PrintLicenses   bool
}

type terminalInfo struct {
	stdinIsTerminal  bool
	stdoutIsTerminal bool
}

// Parse parses os.Args style arguments (args[0] is the program name) and
// returns the positional arguments left over.
func Parse(args []string) ([]string, FlagSet, *OptionSet, error) {
	return parse(args, terminalInfo{
		stdinIsTerminal:  isatty.IsTerminal(os.Stdin.Fd()),
		stdoutIsTerminal: isatty.IsTerminal(os.Stdout.Fd()),
	})
}

func parse(args []string, terminalInfo terminalInfo) ([]string, FlagSet, *OptionSet, error) {
	inputOptions := input.Options{}
	outputOptions := output.Options{}
	exchangeOptions := exchange.Options{}
	optionSet := &OptionSet{}
	var ignoreStdin bool
	printFlag := "\000" // "\000" is a special value that indicates user did not specified --print
	prettyFlag := "\000"
	timeout := "30s"
	verifyFlag := "yes"
	authFlag := ""

	flagSet := getopt.New()
	flagSet.SetParameters("[METHOD] URL [REQUEST_ITEM [REQUEST_ITEM ...]]")
	flagSet.BoolVarLong(&inputOptions.Form, "form", 'f', "serialize data items as multipart/form-data")
	flagSet.StringVarLong(&printFlag, "print", 'p', "specifies what the output should contain (HBhb)")
	flagSet.StringVarLong(&prettyFlag, "pretty", 0, "controls output formatting (all, format, none)")
	flagSet.BoolVarLong(&ignoreStdin, "ignore-stdin", 0, "do not attempt to read stdin")
	flagSet.StringVarLong(&timeout, "timeout", 0, "Timeout seconds that you allow the whole operation to take")
	flagSet.BoolVarLong(&exchangeOptions.FollowRedirects, "follow", 'F', "follow 30x Location redirects")
	flagSet.StringVarLong(&verifyFlag, "verify", 0, "verify TLS certificates (yes, no)")
	flagSet.BoolVarLong(&exchangeOptions.ForceHTTP1, "http1", 0, "force HTTP/1.1 protocol")
	flagSet.StringVarLong(&authFlag, "auth", 'a', "username[:password] for basic authentication")
	flagSet.StringVarLong(&optionSet.BearerToken, "bearer", 0, "bearer token for the Authorization header")
	flagSet.BoolVarLong(&outputOptions.Download, "download", 'd', "save the response body to a file")
	flagSet.StringVarLong(&outputOptions.OutputFile, "output", 'o', "file to save the response body to (with --download)")
	flagSet.BoolVarLong(&outputOptions.Overwrite, "overwrite", 0, "overwrite an existing file (with --download)")
	flagSet.BoolVarLong(&optionSet.Verbose, "verbose", 'v', "print the whole exchange and debug logs")
	flagSet.BoolVarLong(&optionSet.PrintVersion, "version", 0, "print version and exit")
	flagSet.BoolVarLong(&optionSet.PrintLicenses, "licenses", 0, "print licenses of the dependencies and exit")
	if err := flagSet.Getopt(args, nil); err != nil {
		return nil, flagSet, nil, reqerr.Wrapf(reqerr.InvalidArgument, err, "parsing flags")
	}

	// Check stdin
	if !ignoreStdin && !terminalInfo.stdinIsTerminal {
		inputOptions.ReadStdin = true
	}

	// Parse --print
	if err := parsePrintFlag(printFlag, optionSet.Verbose, terminalInfo, &outputOptions); err != nil {
		return nil, flagSet, nil, err
	}

	// Parse --pretty
	if err := parsePrettyFlag(prettyFlag, terminalInfo, &outputOptions); err != nil {
		return nil, flagSet, nil, err
	}

	// Parse --timeout
	d, err := parseDurationOrSeconds(timeout)
	if err != nil {
		return nil, flagSet, nil, err
	}
	exchangeOptions.Timeout = d

	// Parse --verify
	switch strings.ToLower(verifyFlag) {
	case "yes", "true":
	case "no", "false":
		exchangeOptions.SkipVerify = true
	default:
		return nil, flagSet, nil, usageErrorf("Value of --verify must be yes or no: %s", verifyFlag)
	}

	// Parse --auth
	if authFlag != "" {
		auth, err := parseAuth(authFlag)
		if err != nil {
			return nil, flagSet, nil, err
		}
		optionSet.Auth = auth
	}
	if optionSet.Auth.Enabled && optionSet.BearerToken != "" {
		return nil, flagSet, nil, usageErrorf("--auth and --bearer cannot be used together")
	}

	optionSet.InputOptions = inputOptions
	optionSet.ExchangeOptions = exchangeOptions
	optionSet.OutputOptions = outputOptions
	return flagSet.Args(), flagSet, optionSet, nil
}

func usageErrorf(format string, args ...interface{}) error {
	return reqerr.Errorf(reqerr.InvalidArgument, format, args...)
}

func parsePrintFlag(printFlag string, verbose bool, terminalInfo terminalInfo, outputOptions *output.Options) error {
	if printFlag == "\000" {
		// --print is not specified
		switch {
		case verbose:
			outputOptions.PrintRequestHeader = true
			outputOptions.PrintRequestBody = true
			outputOptions.PrintResponseHeader = true
			outputOptions.PrintResponseBody = true
		case terminalInfo.stdoutIsTerminal:
			outputOptions.PrintResponseHeader = true
			outputOptions.PrintResponseBody = true
		default:
			outputOptions.PrintResponseBody = true
		}
		return nil
	}
	for _, c := range printFlag {
		switch c {
		case 'H':
			outputOptions.PrintRequestHeader = true
		case 'B':
			outputOptions.PrintRequestBody = true
		case 'h':
			outputOptions.PrintResponseHeader = true
		case 'b':
			outputOptions.PrintResponseBody = true
		default:
			return usageErrorf("Invalid char in --print value (must be consist of HBhb): %c", c)
		}
	}
	return nil
}

func parsePrettyFlag(prettyFlag string, terminalInfo terminalInfo, outputOptions *output.Options) error {
	switch prettyFlag {
	case "\000":
		outputOptions.EnableFormat = terminalInfo.stdoutIsTerminal
		outputOptions.EnableColor = terminalInfo.stdoutIsTerminal
	case "all", "colors":
		outputOptions.EnableFormat = true
		outputOptions.EnableColor = true
	case "format":
		outputOptions.EnableFormat = true
	case "none":
	default:
		return usageErrorf("Value of --pretty must be one of all, colors, format or none: %s", prettyFlag)
	}
	return nil
}

func parseDurationOrSeconds(timeout string) (time.Duration, error) {
	if reNumber.MatchString(timeout) {
		timeout += "s"
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return time.Duration(0), usageErrorf("Value of --timeout must be a number or duration string: %v", timeout)
	}
	return d, nil
}

func parseAuth(authFlag string) (AuthOptions, error) {
	userName, password, found := strings.Cut(authFlag, ":")
	if userName == "" {
		return AuthOptions{}, usageErrorf("Value of --auth must contain a user name: %s", authFlag)
	}
	if !found {
		p, err := askPasswordFunc()
		if err != nil {
			return AuthOptions{}, errors.Wrap(err, "asking password")
		}
		password = p
	}
	return AuthOptions{
		Enabled:  true,
		UserName: userName,
		Password: password,
	}, nil
}
