// Hearth CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/hearth/internal/dagger"
)

// Hearth is the CI module for the hearth household assistant
type Hearth struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Hearth CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".hearth", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Hearth {
	return &Hearth{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc and the
// sqlite headers needed by go-sqlite3 and sqlite-vec.
func (h *Hearth) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", h.Source)
}

// Test runs the unit tests with the race detector enabled.
func (h *Hearth) Test(ctx context.Context) (string, error) {
	return h.goContainer().
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
