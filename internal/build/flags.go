// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time:
//
//	go build -ldflags "-X levels/internal/build.buildVersion=0.1.0 \
//	  -X levels/internal/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X levels/internal/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without flags and report "unknown" fields.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() Info {
	return Info{
		Name:        "levels",
		Description: "Frame energy level extraction for audio files and live input",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
}

// Initialize copies the ldflags values into the build info. Fields that
// were not set keep their defaults and are reported in the returned error.
func Initialize() error {
	var errs []error
	set := func(dst *string, v, name string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", name))
			return
		}
		*dst = v
	}

	if buildName != "" {
		buildInfo.Name = buildName
	}
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// Get returns the current build information.
func Get() Info {
	return buildInfo
}
