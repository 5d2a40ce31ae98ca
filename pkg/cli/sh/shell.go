// Package sh provides the interactive picoboot shell.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/fatih/color"

	"github.com/robotalks/picoboot.go/pkg/env"
	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/picoboot/image"
	"github.com/robotalks/picoboot.go/pkg/transport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *env.Config

	// Device is the opened device, nil if not opened.
	Device *Device
	// Image is the loaded firmware image.
	Image     *flash.Memory
	ImagePath string
}

// Device is an opened programming session.
type Device struct {
	Port    string
	Layout  flash.Layout
	Session *picoboot.Session
}

const (
	shellKey         = "$shell"
	unopenedPrompt   = "[none] > "
	defaultPortLabel = "device"
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&PortsCmd,
		&PartsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unopenedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpened wraps command func requires an opened device.
func MustBeOpened(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Device == nil {
			c.Err(fmt.Errorf("device not opened"))
			return
		}
		fn(c)
	}
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// Open opens a device on port. The flash layout is from the configured
// part unless part is specified.
func (s *Shell) Open(port, part string) error {
	conf := *s.Config
	if port != "" {
		conf.Port = port
	}
	if part != "" {
		conf.Part = part
	}
	layout, err := conf.Layout()
	if err != nil {
		return err
	}
	session, err := conf.OpenSession(layout)
	if err != nil {
		return err
	}
	s.Close()
	s.Device = &Device{Port: conf.Port, Layout: layout, Session: session}
	label := conf.Port
	if label == "" {
		label = defaultPortLabel
	}
	s.setPrompt(fmt.Sprintf("%s(%s) > ", label, strings.ToLower(conf.Part)))
	return nil
}

// Close closes current device.
func (s *Shell) Close() error {
	if s.Device == nil {
		return nil
	}
	err := s.Device.Session.Close()
	s.Device = nil
	s.setPrompt(unopenedPrompt)
	return err
}

// Load loads a firmware image for the opened device.
func (s *Shell) Load(path string) error {
	if s.Device == nil {
		return fmt.Errorf("device not opened")
	}
	mem, err := image.LoadFile(path, s.Device.Layout)
	if err != nil {
		return err
	}
	s.Image, s.ImagePath = mem, path
	return nil
}

// Flash programs the loaded image.
func (s *Shell) Flash(ctx context.Context, opts ...picoboot.Option) (*picoboot.Result, error) {
	if s.Device == nil {
		return nil, fmt.Errorf("device not opened")
	}
	if s.Image == nil {
		return nil, fmt.Errorf("no image loaded")
	}
	p := picoboot.New(s.Device.Session, s.Config.ProgrammerOptions(opts...)...)
	return p.Program(ctx, s.Image)
}

// Print prints v as JSON or with fmt.
func (s *Shell) Print(c *ishell.Context, v interface{}) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(v)
}

// OK prints the success status.
func (s *Shell) OK(c *ishell.Context) {
	if s.OutputJSON {
		c.Println(`{"ok":true}`)
		return
	}
	c.Println(color.HiGreenString("OK"))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Port)
		}
		if err := s.Open("", ""); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Port, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a device.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT [PART]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var port, part string
			if len(c.Args) > 0 {
				port = c.Args[0]
			}
			if len(c.Args) > 1 {
				part = c.Args[1]
			}
			if err := s.Open(port, part); err != nil {
				c.Err(err)
				return
			}
			s.OK(c)
		},
	}

	// CloseCmd closes current device.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := transport.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.Print(c, ports)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// PartsCmd lists known parts.
	PartsCmd = ishell.Cmd{
		Name: "parts",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			parts, err := s.Config.Parts()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.Print(c, parts)
				return
			}
			for _, name := range parts.Names() {
				c.Printf("%-12s %s\n", name, parts[name])
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
