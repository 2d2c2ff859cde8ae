package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wardan/internal/app"
	"wardan/internal/config"
	"wardan/internal/store"
)

// commandWiring carries everything a command touches outside the process so
// tests can point it at temp dirs and fake servers.
type commandWiring struct {
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	loadConfig   func() (config.Config, error)
	openStore    func(cfg config.Config) (store.Store, error)
	readPassword func(prompt string) (string, error)
	runUI        func(conv app.Conversation, opts app.Options) error
	logPath      func() (string, error)
	version      string
	ephemeral    *bool
}

func defaultCommandWiring(stdin io.Reader, stdout, stderr io.Writer) commandWiring {
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	w := commandWiring{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		openStore:  openConfiguredStore,
		runUI:      app.Run,
		logPath:    config.LogPath,
		version:    buildVersion(),
	}
	w.readPassword = w.promptPassword
	return w
}

func newRootCommand(w commandWiring) *cobra.Command {
	root := &cobra.Command{
		Use:           "wardan",
		Short:         "Talk to the hostel dashboard agent from a terminal",
		Version:       w.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	w.ephemeral = new(bool)
	root.PersistentFlags().BoolVar(w.ephemeral, "ephemeral", false, "keep the session token and login in memory for this run only")
	root.SetIn(w.stdin)
	root.SetOut(w.stdout)
	root.SetErr(w.stderr)

	root.AddCommand(
		newChatCommand(w),
		newAskCommand(w),
		newLoginCommand(w),
		newLogoutCommand(w),
		newWhoamiCommand(w),
		newSessionCommand(w),
		newConfigCommand(w),
	)
	return root
}

func openConfiguredStore(cfg config.Config) (store.Store, error) {
	dbPath, err := config.StorePath()
	if err != nil {
		return nil, err
	}
	jsonPath, err := config.StoreJSONPath()
	if err != nil {
		return nil, err
	}
	return store.Open(store.Paths{DBPath: dbPath, JSONPath: jsonPath}, cfg.StoreBackend())
}

// promptPassword reads without echo from a terminal and falls back to one
// line of stdin when input is piped.
func (w commandWiring) promptPassword(prompt string) (string, error) {
	fmt.Fprint(w.stderr, prompt)
	if file, ok := w.stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(w.stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(w.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

const fallbackVersion = "dev"

// buildVersion reports the VCS revision stamped into the binary, then the
// module version for `go install` builds.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fallbackVersion
	}
	settings := map[string]string{}
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := settings["vcs.revision"]
	if revision == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
		return fallbackVersion
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if settings["vcs.modified"] == "true" {
		revision += "-dirty"
	}
	return revision
}
