package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/scaffold/internal/app"
	"github.com/Makepad-fr/scaffold/internal/config"
	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/logging"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/server"
	"github.com/Makepad-fr/scaffold/internal/store/jsonstore"
	"github.com/Makepad-fr/scaffold/internal/todo"
	"github.com/Makepad-fr/scaffold/internal/tui"
	"github.com/Makepad-fr/scaffold/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool   // list todos grouped by pending/done
	Theme string // overrides TADA_THEME when set

	Stdout io.Writer
	Stderr io.Writer
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	opt.defaults()
	if len(args) == 0 {
		PrintHelp(opt.Stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		PrintHelp(opt.Stdout)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		ui.Fail(opt.Stderr, "config: "+err.Error())
		return 2
	}
	theme := cfg.Theme
	if opt.Theme != "" {
		theme = opt.Theme
	}
	ui.SetTheme(theme)

	switch cmd {
	case "tui":
		return doTUI(cfg, a, opt)
	case "stories":
		return doStories(cfg, a, opt)
	case "todo":
		return doTodo(cfg, a, opt)
	case "serve":
		return doServe(cfg, a, opt)
	}

	ui.Fail(opt.Stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Stderr)
	PrintHelp(opt.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `tada - todos and Hacker News on a reducer/epic store

Usage:
  tada [--group] [--theme classic|neon|mono] <subcommand> [args]

Subcommands:
  tui [--preload file]                 Interactive client (todos + stories)
  stories <new|top|best> [--limit N] [--json] [--out file]
                                       Fetch a listing and print it
  todo [--done id]... <title>...       Add todos, mark some done, print the list
  serve [--addr host:port]             Pre-rendering web server

Environment:
  TADA_HN_BASE_URL, TADA_PENDING_LIMIT, TADA_TODO_DELAY, TADA_ADDR,
  TADA_RENDER_TIMEOUT, TADA_HTTP_TIMEOUT, TADA_LOG_LEVEL, TADA_LOG_FILE, TADA_THEME

Examples:
  tada stories top --limit 10
  tada todo "Buy milk" "Walk the dog" --done 1
  tada serve --addr :8080
`)
}

// -------------- helpers ----------------

// parseArgs parses flags that may appear before or after positional args.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

type intList []int

func (l *intList) String() string { return fmt.Sprint([]int(*l)) }

func (l *intList) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not a number: %s", v)
	}
	*l = append(*l, n)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runStore starts st. The returned func stops it and waits for Run to return.
func runStore(ctx context.Context, st *app.Store) func() {
	ctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- st.Run(ctx) }()
	return func() {
		cancel()
		<-errc
	}
}

func openLog(cfg config.Config, interactive bool, opt Options) (zerolog.Logger, func() error, int) {
	log, closeLog, err := logging.Open(cfg.LogLevel, cfg.LogFile, interactive)
	if err != nil {
		ui.Fail(opt.Stderr, "log: "+err.Error())
		return zerolog.Nop(), nil, 2
	}
	return log, closeLog, 0
}

// -------------- subcommand impls ----------------

func doTUI(cfg config.Config, args []string, opt Options) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(opt.Stderr)
	preload := fs.String("preload", "", "start from a state snapshot written by `stories --out`")
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}

	log, closeLog, code := openLog(cfg, true, opt)
	if code != 0 {
		return code
	}
	defer closeLog()

	initial := app.NewState(cfg)
	if *preload != "" {
		s, err := jsonstore.Load[app.State](*preload)
		if err != nil {
			ui.Fail(opt.Stderr, "preload: "+err.Error())
			return 1
		}
		initial = s
	}

	ctx, cancel := signalContext()
	defer cancel()
	st := app.NewWithState(initial, cfg, app.NewFetcher(cfg), log)
	stop := runStore(ctx, st)
	defer stop()

	if err := tui.Run(ctx, st); err != nil && !errors.Is(err, context.Canceled) {
		ui.Fail(opt.Stderr, "tui: "+err.Error())
		return 1
	}
	return 0
}

func doStories(cfg config.Config, args []string, opt Options) int {
	fs := flag.NewFlagSet("stories", flag.ContinueOnError)
	fs.SetOutput(opt.Stderr)
	limit := fs.Int("limit", 0, "pending-limit for this run (default TADA_PENDING_LIMIT)")
	asJSON := fs.Bool("json", false, "print the story-client state as JSON")
	out := fs.String("out", "", "write the full state snapshot to this file")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(pos) != 1 {
		ui.Fail(opt.Stderr, "usage: tada stories <new|top|best> [--limit N] [--json] [--out file]")
		return 2
	}
	c, err := model.ParseCategory(pos[0])
	if err != nil {
		ui.Fail(opt.Stderr, "stories: "+err.Error())
		return 2
	}
	if *limit < 0 {
		ui.Fail(opt.Stderr, "stories: --limit must be positive")
		return 2
	}
	if *limit > 0 {
		cfg.PendingLimit = *limit
	}

	log, closeLog, code := openLog(cfg, false, opt)
	if code != 0 {
		return code
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()
	st := app.New(cfg, app.NewFetcher(cfg), log)
	stop := runStore(ctx, st)
	defer stop()

	if err := st.Dispatch(hn.SelectCategory{Category: c}); err != nil {
		ui.Fail(opt.Stderr, "dispatch: "+err.Error())
		return 1
	}
	if err := st.Settle(ctx); err != nil {
		ui.Fail(opt.Stderr, "stories: "+err.Error())
		return 1
	}
	state := st.State()

	if *out != "" {
		if err := jsonstore.Save(*out, state); err != nil {
			ui.Fail(opt.Stderr, "save: "+err.Error())
			return 1
		}
		ui.OK(opt.Stderr, "saved snapshot to "+*out)
	}

	if *asJSON {
		enc := json.NewEncoder(opt.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state.HN); err != nil {
			ui.Fail(opt.Stderr, "json: "+err.Error())
			return 1
		}
	} else {
		ui.Panel(opt.Stdout, storyLines(state.HN))
	}

	if state.HN.Err != "" {
		ui.Fail(opt.Stderr, state.HN.Err)
		return 1
	}
	return 0
}

func doTodo(cfg config.Config, args []string, opt Options) int {
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(opt.Stderr)
	var done intList
	fs.Var(&done, "done", "mark the todo with this id done (repeatable)")
	titles, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if len(titles) == 0 {
		ui.Fail(opt.Stderr, "usage: tada todo [--done id]... <title>...")
		return 2
	}
	for _, t := range titles {
		if strings.TrimSpace(t) == "" {
			ui.Fail(opt.Stderr, "todo: empty title")
			return 2
		}
	}
	for _, id := range done {
		if id < 1 || id > len(titles) {
			ui.Fail(opt.Stderr, fmt.Sprintf("id out of range: have %d, got %d", len(titles), id))
			return 2
		}
	}

	log, closeLog, code := openLog(cfg, false, opt)
	if code != 0 {
		return code
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()
	st := app.New(cfg, app.NewFetcher(cfg), log)
	stop := runStore(ctx, st)
	defer stop()

	// Each save settles first: SaveTodoSuccess takes the title current at that time.
	for _, t := range titles {
		if err := dispatchAndSettle(ctx, st, todo.SetTitle{Title: strings.TrimSpace(t)}, todo.SaveTodo{}); err != nil {
			ui.Fail(opt.Stderr, "todo: "+err.Error())
			return 1
		}
	}
	for _, id := range done {
		if err := dispatchAndSettle(ctx, st, todo.SetDone{ID: id}); err != nil {
			ui.Fail(opt.Stderr, "todo: "+err.Error())
			return 1
		}
	}

	ui.Panel(opt.Stdout, todoLines(st.State().Todo.Todos, opt.Group))
	return 0
}

func dispatchAndSettle(ctx context.Context, st *app.Store, actions ...todo.Action) error {
	for _, a := range actions {
		if err := st.Dispatch(a); err != nil {
			return err
		}
	}
	return st.Settle(ctx)
}

func doServe(cfg config.Config, args []string, opt Options) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(opt.Stderr)
	addr := fs.String("addr", "", "listen address (default TADA_ADDR)")
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log, closeLog, code := openLog(cfg, false, opt)
	if code != 0 {
		return code
	}
	defer closeLog()

	srv, err := server.New(cfg, app.NewFetcher(cfg), log)
	if err != nil {
		ui.Fail(opt.Stderr, "server: "+err.Error())
		return 1
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := srv.ListenAndServe(ctx); err != nil {
		ui.Fail(opt.Stderr, "serve: "+err.Error())
		return 1
	}
	return 0
}
