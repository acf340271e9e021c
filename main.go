// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"

	"levels/cmd"
	"levels/internal/build"
	applog "levels/internal/log"
)

func main() {
	// Development builds carry no ldflags; that is not fatal.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info incomplete: %v", err)
	}

	if err := cmd.Execute(context.Background()); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}
