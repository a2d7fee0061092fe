package main

import (
	"context"
	"fmt"
	"os"

	"github.com/osci-render/osci-go/cmd"
	"github.com/osci-render/osci-go/internal/buildinfo"
	"github.com/osci-render/osci-go/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	build := buildinfo.NewContext(version, buildDate, "")
	settings := &conf.Settings{}

	if err := cmd.RootCommand(settings, build).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
