package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/pbaille/jot/internal/app"
	"github.com/pbaille/jot/internal/config"
	"github.com/pbaille/jot/internal/dictation"
	"github.com/pbaille/jot/internal/kv"
	"github.com/pbaille/jot/internal/logger"
	"github.com/pbaille/jot/internal/notes"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "jot",
		Short:        "Quick local notes, typed or dictated",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(dictateCmd())
	rootCmd.AddCommand(copyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

// env is everything a command needs, opened from the config.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	app     *app.App
	kv      kv.Store
	closers []io.Closer
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logger.New(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	store, err := kv.Open(ctx, cfg.KVOptions())
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	e.kv = store
	e.closers = append(e.closers, store)

	noteStore := notes.New(store,
		notes.WithKey(cfg.Storage.Key),
		notes.WithLogger(log.With().Str("component", "notes").Logger()),
	)
	if err := noteStore.Initialize(ctx); err != nil {
		e.Close()
		return nil, err
	}
	if err := noteStore.Corrupted(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stored notes were unreadable and have been set aside (%s.corrupt): %v\n",
			cfg.Storage.Key, err)
	}

	e.app = app.New(noteStore, log)
	return e, nil
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [content]",
		Short: "Add a new note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if strings.TrimSpace(content) == "" {
				return errors.New("note content is empty")
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.app.OnNoteCreated(cmd.Context(), content)
			if err != nil {
				return fmt.Errorf("note may not have been saved: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added note: %s\n", shortID(note.ID))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var limit int
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.OnSearchTextChanged(query)
			return printNotes(cmd.OutOrStdout(), e.app, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of notes to show (0 for all)")
	cmd.Flags().StringVarP(&query, "search", "s", "", "only notes containing this text")
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			e.app.OnSearchTextChanged(strings.Join(args, " "))
			return printNotes(cmd.OutOrStdout(), e.app, 0)
		},
	}
}

func printNotes(w io.Writer, a *app.App, limit int) error {
	visible := a.Visible()
	if len(visible) == 0 {
		if a.Query() != "" {
			fmt.Fprintln(w, "No matching notes found.")
		} else {
			fmt.Fprintln(w, "No notes yet. Use 'jot add' or 'jot dictate' to create one.")
		}
		return nil
	}

	if limit > 0 && len(visible) > limit {
		visible = visible[:limit]
	}
	for _, n := range visible {
		fmt.Fprintf(w, "%s  %s  %s\n", shortID(n.ID), n.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(n.Content, 60))
	}
	return nil
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.app.Store().Resolve(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:      %s\n", note.ID)
			fmt.Fprintf(w, "Created: %s\n", note.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Content:\n%s\n", note.Content)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [id]",
		Aliases: []string{"rm"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.app.Store().Resolve(args[0])
			if err != nil {
				return err
			}
			if err := e.app.OnNoteDeleted(cmd.Context(), note.ID); err != nil {
				return fmt.Errorf("note may not have been deleted: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted note: %s\n", shortID(note.ID))
			return nil
		},
	}
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy [id]",
		Short: "Copy a note's content to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.app.Store().Resolve(args[0])
			if err != nil {
				return err
			}
			if err := clipboard.WriteAll(note.Content); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Copied note %s to clipboard\n", shortID(note.ID))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all notes to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			all := e.app.Store().List()
			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			case "yaml":
				enc := yaml.NewEncoder(w)
				defer enc.Close()
				return enc.Encode(all)
			default:
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func dictateCmd() *cobra.Command {
	var language string
	var noSave bool

	cmd := &cobra.Command{
		Use:   "dictate",
		Short: "Dictate a note; press Enter or Ctrl-C to stop",
		Long: `Dictate runs the recognizer configured under dictation.command and shows
the transcript as it is recognized. When recording stops the transcript is
saved as a new note unless --no-save is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if language == "" {
				language = e.cfg.Dictation.Language
			}
			engine := dictation.NewCommandEngine(e.cfg.Dictation.Command,
				e.log.With().Str("component", "dictation").Logger())
			composer := app.NewComposer(e.app, engine, stderrNotifier{}, dictation.WithLanguage(language))

			out := cmd.OutOrStdout()
			live := isTerminal(out)
			ended := make(chan struct{})
			var mu sync.Mutex
			wasRecording := false
			composer.Watch(func(draft string, recording bool) {
				mu.Lock()
				defer mu.Unlock()
				if recording {
					wasRecording = true
				} else if wasRecording {
					wasRecording = false
					close(ended)
				}
				if live {
					fmt.Fprintf(out, "\r\033[K● %s", truncate(draft, 70))
				} else if draft != "" && recording {
					fmt.Fprintln(out, draft)
				}
			})

			if err := composer.StartRecording(); err != nil {
				return err
			}

			// The recognizer may already have given up while starting.
			if composer.Session().State() == dictation.Recording {
				fmt.Fprintln(os.Stderr, "Recording... press Enter to stop.")
				go func() {
					bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					cancel()
				}()

				select {
				case <-ctx.Done():
				case <-ended:
				}
				if err := composer.StopRecording(); err != nil {
					e.log.Warn().Err(err).Msg("stop dictation")
				}
			}
			// Saving clears the transcript, which must not redraw the live line.
			composer.Watch(nil)
			if live {
				fmt.Fprintln(out)
			}

			transcript := composer.Draft()
			if transcript == "" {
				fmt.Fprintln(out, "Nothing was dictated.")
				return nil
			}
			if noSave {
				fmt.Fprintln(out, transcript)
				return nil
			}

			note, err := composer.Save(context.Background())
			if err != nil {
				return fmt.Errorf("note may not have been saved: %w", err)
			}
			fmt.Fprintf(out, "Added note: %s\n", shortID(note.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "recognition language (default from config)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "print the transcript instead of saving it")
	return cmd
}

type stderrNotifier struct{}

func (stderrNotifier) Success(msg string) { fmt.Fprintln(os.Stderr, msg) }
func (stderrNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, "error: "+msg) }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
