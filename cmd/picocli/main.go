package main

import (
	"github.com/robotalks/picoboot.go/pkg/cli/sh"
	"github.com/robotalks/picoboot.go/pkg/env"

	_ "github.com/robotalks/picoboot.go/pkg/cli/cmds/flash"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
