package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ent0n29/promptcrafter/internal/app"
	"github.com/ent0n29/promptcrafter/internal/config"
	"github.com/ent0n29/promptcrafter/internal/dictation"
	"github.com/ent0n29/promptcrafter/internal/promptapi"
	"github.com/ent0n29/promptcrafter/internal/tones"
)

const usage = `usage: promptcrafter <command> [flags]

commands:
  generate  turn text into a crafted prompt
  dictate   dictate input from audio, optionally generating from it
  tones     list available tones
  health    check the prompt service
`

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("config: %v", err)
	}
	c := cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}

func (c cli) run(args []string) int {
	err := c.dispatch(args)
	if err == nil {
		return 0
	}
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	fmt.Fprintf(c.stderr, "promptcrafter: %v\n", err)

	var uerr *usageError
	var verr *promptapi.ValidationError
	if errors.As(err, &uerr) || errors.As(err, &verr) {
		return 2
	}
	return 1
}

func (c cli) dispatch(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return usagef("missing command")
	}
	switch args[0] {
	case "generate":
		return c.generate(args[1:])
	case "dictate":
		return c.dictate(args[1:])
	case "tones":
		return c.tones(args[1:])
	case "health":
		return c.health(args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage)
		return nil
	default:
		fmt.Fprint(c.stderr, usage)
		return usagef("unknown command %q", args[0])
	}
}

func (c cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usagef("%s: unexpected arguments: %s", fs.Name(), strings.Join(fs.Args(), " "))
	}
	return nil
}

// build loads configuration and wires the app. finish must be called once
// the command is done; it exports metrics and releases resources.
func build(opts app.Options) (*app.BuildResult, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	b, err := app.Build(cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	finish := func() {
		if cfg.MetricsFile != "" {
			if err := b.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Printf("metrics: write %s failed: %v", cfg.MetricsFile, err)
			}
		}
		if err := b.Cleanup(); err != nil {
			log.Printf("cleanup failed: %v", err)
		}
	}
	return b, finish, nil
}

func (c cli) generate(args []string) error {
	fs := c.flagSet("generate")
	text := fs.String("text", "", "input text (read from stdin when omitted)")
	toneList := fs.String("tones", "", "comma separated tones to apply")
	voice := fs.Bool("voice", false, "mark the input as dictated")
	out := fs.String("out", "", "write the result to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	input := *text
	if !flagWasSet(fs, "text") {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = string(data)
	}

	b, finish, err := build(app.Options{})
	if err != nil {
		return err
	}
	defer finish()

	selected := selectTones(b, *toneList)
	rendered, err := b.Client.Generate(context.Background(), input, selected, *voice)
	if err != nil {
		return err
	}
	return c.emit(*out, rendered)
}

func (c cli) dictate(args []string) error {
	fs := c.flagSet("dictate")
	audioPath := fs.String("audio", "", "audio file to transcribe, or - for raw PCM on stdin")
	initial := fs.String("text", "", "text already typed before dictation starts")
	toneList := fs.String("tones", "", "comma separated tones to apply with -generate")
	generate := fs.Bool("generate", false, "send the dictated text to the prompt service")
	out := fs.String("out", "", "write the result to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	b, finish, err := build(app.Options{AudioPath: *audioPath, Stdin: c.stdin})
	if err != nil {
		return err
	}
	defer finish()
	log.Printf("dictation provider: %s", b.Dictation.Detail)

	s := b.NewSession()
	s.SetText(*initial)
	s.Subscribe(func(u dictation.Update) {
		switch {
		case u.Err != nil:
			fmt.Fprintf(c.stderr, "dictation stopped: %v\n", u.Err)
		case u.Final != "":
			fmt.Fprintf(c.stderr, "> %s\n", u.Final)
		case u.Interim != "":
			fmt.Fprintf(c.stderr, "… %s\n", u.Interim)
		}
	})

	if err := s.Start(context.Background()); err != nil {
		if errors.Is(err, dictation.ErrCapabilityUnavailable) {
			return fmt.Errorf("speech recognition is not available (%s): %w", b.Dictation.Detail, err)
		}
		return fmt.Errorf("start dictation: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	ended := make(chan struct{})
	go func() {
		s.Wait()
		close(ended)
	}()
	select {
	case <-ended:
	case <-sigCh:
		log.Printf("dictation: stop requested")
		_ = s.Stop()
		<-ended
	}

	text := s.Text()
	if !*generate {
		return c.emit(*out, text)
	}
	selected := selectTones(b, *toneList)
	rendered, err := b.Client.Generate(context.Background(), text, selected, true)
	if err != nil {
		return err
	}
	return c.emit(*out, rendered)
}

func (c cli) tones(args []string) error {
	fs := c.flagSet("tones")
	remote := fs.Bool("remote", false, "list the tone categories reported by the prompt service")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	b, finish, err := build(app.Options{})
	if err != nil {
		return err
	}
	defer finish()

	var lines []string
	if *remote {
		categories, err := b.Client.ToneCategories(context.Background())
		if err != nil {
			return err
		}
		names := make([]string, 0, len(categories))
		for name := range categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(categories[name], ", ")))
		}
	} else {
		for _, cat := range b.Catalog.Categories() {
			lines = append(lines, fmt.Sprintf("%s: %s", cat.Name, strings.Join(cat.Tones, ", ")))
		}
	}
	return c.emit("", strings.Join(lines, "\n"))
}

func (c cli) health(args []string) error {
	fs := c.flagSet("health")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	b, finish, err := build(app.Options{})
	if err != nil {
		return err
	}
	defer finish()

	status, err := b.Client.Health(context.Background())
	if err != nil {
		return err
	}
	return c.emit("", status)
}

// selectTones parses the -tones flag. Tones missing from the catalogue are
// still sent; the service decides what to do with them.
func selectTones(b *app.BuildResult, raw string) []string {
	selected := tones.ParseSelection(raw)
	if unknown := b.Catalog.Unknown(selected); len(unknown) > 0 {
		log.Printf("tones: not in catalogue: %s", strings.Join(unknown, ", "))
	}
	return selected
}

func (c cli) emit(path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(c.stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
