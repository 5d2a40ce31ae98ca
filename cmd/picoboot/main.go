package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/schollz/progressbar/v3"

	"github.com/robotalks/picoboot.go/pkg/env"
	"github.com/robotalks/picoboot.go/pkg/framework"
	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/picoboot/image"
)

var quiet bool

func init() {
	env.SetupFlags()
	flag.BoolVar(&quiet, "q", quiet, "No progress bar.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func progressBar(conf *env.Config, layout flash.Layout) picoboot.ProgressCallback {
	if quiet {
		return nil
	}
	bar := progressbar.NewOptions(layout.Pages(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("Writing %s", conf.Port)),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
	return func(p picoboot.Progress) {
		switch p.Phase {
		case picoboot.PhaseWriting:
			bar.Set(p.Page)
		case picoboot.PhaseComplete:
			bar.Finish()
		}
	}
}

func program(ctx context.Context, conf *env.Config, fn string) error {
	layout, err := conf.Layout()
	if err != nil {
		return err
	}
	mem, err := image.LoadFile(fn, layout)
	if err != nil {
		return err
	}
	reporter, q, err := conf.NewReporter()
	if err != nil {
		return err
	}
	if q != nil {
		defer q.Close()
	}
	session, err := conf.OpenSession(layout)
	if err != nil {
		return err
	}
	defer session.Close()

	callbacks := []picoboot.ProgressCallback{progressBar(conf, layout)}
	if reporter != nil {
		callbacks = append(callbacks, reporter.Progress)
	}
	opts := conf.ProgrammerOptions(picoboot.WithProgressCallback(func(p picoboot.Progress) {
		for _, cb := range callbacks {
			if cb != nil {
				cb(p)
			}
		}
	}))

	glog.Infof("programming %s (%s) to %s [%s]", fn, conf.Part, conf.Port, layout)
	result, err := picoboot.New(session, opts...).Program(ctx, mem)
	if reporter != nil {
		reporter.Result(result, err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %d pages (%d skipped), %d bytes in %s\n",
		color.HiGreenString("OK"), result.Pages, result.Skipped, result.Bytes, result.Elapsed)
	return nil
}

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	conf := env.NewConfig()
	err := framework.NewRunner().HandleSignals().Run(framework.RunFunc(func(ctx context.Context) error {
		return program(ctx, conf, flag.Arg(0))
	}))
	glog.Flush()
	if err != nil {
		if flash.IsFatal(err) {
			log.Fatalf("%s %v (the image is rejected)", color.RedString("FATAL"), err)
		}
		log.Fatalf("%s %v", color.RedString("FAILED"), err)
	}
}
