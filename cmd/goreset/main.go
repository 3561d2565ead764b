// Command goreset serves the password-reset request form.
//
//	goreset serve --app-url https://app.example.com --provider local
//
// Every flag can also be set through its GORESET_* environment variable.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func App() *cli.App {
	o := &Options{}
	return &cli.App{
		Name:  "goreset",
		Usage: "password-reset request service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the reset form, its JSON API and /metrics",
				Flags: Flags(o),
				Action: func(ctx *cli.Context) error {
					return Serve(ctx.Context, o)
				},
			},
		},
	}
}
