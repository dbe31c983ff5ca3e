package version

import (
	"fmt"
	"io"
)

type License struct {
	ModuleName  string
	LicenseName string
	Link        string
}

var Licenses = []License{
	{
		ModuleName:  "httpchain",
		LicenseName: "MIT License",
		Link:        "https://github.com/HexmosTech/httpchain/blob/main/LICENSE",
	},
	{
		ModuleName:  "Go",
		LicenseName: "BSD License",
		Link:        "https://golang.org/LICENSE",
	},
	{
		ModuleName:  "aurora",
		LicenseName: "WTFPL",
		Link:        "https://github.com/logrusorgru/aurora/blob/master/LICENSE",
	},
	{
		ModuleName:  "go-isatty",
		LicenseName: "MIT License",
		Link:        "https://github.com/mattn/go-isatty/blob/master/LICENSE",
	},
	{
		ModuleName:  "getopt",
		LicenseName: "BSD License",
		Link:        "https://github.com/pborman/getopt/blob/master/LICENSE",
	},
	{
		ModuleName:  "errors",
		LicenseName: "BSD License",
		Link:        "https://github.com/pkg/errors/blob/master/LICENSE",
	},
	{
		ModuleName:  "bytefmt",
		LicenseName: "Apache License",
		Link:        "https://github.com/cloudfoundry/bytefmt/blob/master/LICENSE",
	},
	{
		ModuleName:  "go-json",
		LicenseName: "MIT License",
		Link:        "https://github.com/goccy/go-json/blob/master/LICENSE",
	},
	{
		ModuleName:  "gjson",
		LicenseName: "MIT License",
		Link:        "https://github.com/tidwall/gjson/blob/master/LICENSE",
	},
	{
		ModuleName:  "go-nanoid",
		LicenseName: "MIT License",
		Link:        "https://github.com/matoous/go-nanoid/blob/main/LICENSE",
	},
	{
		ModuleName:  "tint",
		LicenseName: "MIT License",
		Link:        "https://github.com/lmittmann/tint/blob/main/LICENSE",
	},
}

func PrintLicenses(w io.Writer) {
	for _, license := range Licenses {
		fmt.Fprintf(w, "%s:\n  %s\n  %s\n\n",
			license.ModuleName,
			license.LicenseName,
			license.Link,
		)
	}
}
