package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/hearth/internal/dagger"
)

// Build returns a directory holding the hearth binary for each supported
// architecture. go-sqlite3 needs cgo, so only the native OS is built.
func (h *Hearth) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	goarches := []string{"amd64", "arm64"}
	outputs := dag.Directory()

	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := h.goContainer().
			WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu", "gcc-x86-64-linux-gnu"}).
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", goarch).
			WithEnvVariable("CC", crossCompiler(goarch)).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/hearth"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned binaries with embedded version info
func (h *Hearth) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/hearth/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/hearth/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/hearth/pkg/utils.Buildtime=%s'", time.Now().UTC().Format(time.RFC3339)),
	}

	return h.Build(ctx, strings.Join(ldflags, " "))
}

func crossCompiler(goarch string) string {
	if goarch == "arm64" {
		return "aarch64-linux-gnu-gcc"
	}
	return "x86_64-linux-gnu-gcc"
}
