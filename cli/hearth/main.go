package main

import (
	"os"

	hearthcmder "github.com/papercomputeco/hearth/cmd/hearth"
)

func main() {
	cmd := hearthcmder.NewHearthCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
