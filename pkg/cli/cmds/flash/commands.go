// Package flash provides the shell commands driving a picoboot session.
package flash

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/fatih/color"

	"github.com/robotalks/picoboot.go/pkg/cli/sh"
	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

// Status is the state of the shell as printed by status.
type Status struct {
	Port        string `json:"port,omitempty"`
	Layout      string `json:"layout,omitempty"`
	Signature   string `json:"signature,omitempty"`
	Initialized bool   `json:"initialized"`
	Image       string `json:"image,omitempty"`
	Error       string `json:"error,omitempty"`
	Frames      int    `json:"frames"`
	Writes      int    `json:"writes"`
}

// StatusOf collects the status of the shell.
func StatusOf(s *sh.Shell) Status {
	var st Status
	st.Image = s.ImagePath
	if dev := s.Device; dev != nil {
		st.Port = dev.Port
		st.Layout = dev.Layout.String()
		st.Signature = dev.Session.ReadSignature().String()
		st.Initialized = dev.Session.Initialized()
		if err := dev.Session.Err(); err != nil {
			st.Error = err.Error()
		}
		stats := dev.Session.Channel().Stats()
		st.Frames, st.Writes = stats.Frames, stats.Writes
	}
	return st
}

// WritePage writes a single page of the loaded image.
func WritePage(s *sh.Shell, addr int) (int, error) {
	if s.Image == nil {
		return 0, fmt.Errorf("no image loaded")
	}
	layout := s.Device.Layout
	if addr%layout.PageSize != 0 {
		return 0, fmt.Errorf("address 0x%04x not page aligned", addr)
	}
	return s.Device.Session.WritePage(s.Image, addr, layout.PageSize)
}

var (
	// InitCmd performs the handshake.
	InitCmd = ishell.Cmd{
		Name: "init",
		Help: "",
		Func: sh.MustBeOpened(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if err := s.Device.Session.Initialize(); err != nil {
				c.Err(err)
				return
			}
			s.OK(c)
		}),
	}

	// LoadCmd loads a firmware image.
	LoadCmd = ishell.Cmd{
		Name: "load",
		Help: "FILE",
		Func: sh.MustBeOpened(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			s := sh.ShellFrom(c)
			if err := s.Load(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			s.OK(c)
		}),
	}

	// WriteCmd writes one page.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "ADDR",
		Func: sh.MustBeOpened(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("ADDR required"))
				return
			}
			addr, err := strconv.ParseUint(c.Args[0], 0, 16)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			n, err := WritePage(s, int(addr))
			if err != nil {
				c.Err(fmt.Errorf("%s: %w", flash.Classify(err), err))
				return
			}
			s.Print(c, n)
		}),
	}

	// FlashCmd programs the loaded image.
	FlashCmd = ishell.Cmd{
		Name:    "flash",
		Aliases: []string{"f"},
		Help:    "",
		Func: sh.MustBeOpened(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			var bar ishell.ProgressBar
			if s.Interactive && !s.OutputJSON {
				bar = c.ProgressBar()
				bar.Start()
			}
			result, err := s.Flash(context.Background(), picoboot.WithProgressCallback(func(p picoboot.Progress) {
				if bar != nil && p.Phase == picoboot.PhaseWriting {
					bar.Progress(int(p.Percentage))
				}
			}))
			if bar != nil {
				bar.Stop()
			}
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.Print(c, result)
				return
			}
			c.Printf("%s %d pages, %d skipped, %d bytes in %s\n",
				color.HiGreenString("written"), result.Pages, result.Skipped, result.Bytes, result.Elapsed)
		}),
	}

	// StatusCmd prints the status.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			st := StatusOf(s)
			if s.OutputJSON {
				s.Print(c, st)
				return
			}
			if st.Port == "" {
				c.Println("device not opened")
			} else {
				c.Printf("port:      %s\nlayout:    %s\nsignature: %s\ninit:      %v\nframes:    %d in %d writes\n",
					st.Port, st.Layout, st.Signature, st.Initialized, st.Frames, st.Writes)
			}
			if st.Image != "" {
				c.Printf("image:     %s\n", st.Image)
			}
			if st.Error != "" {
				c.Printf("error:     %s\n", color.RedString(st.Error))
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&InitCmd,
		&LoadCmd,
		&WriteCmd,
		&FlashCmd,
		&StatusCmd,
	)
}
