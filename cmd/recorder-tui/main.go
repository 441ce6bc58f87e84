// Command recorder-tui is a terminal console for a running recorder.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/okian/bodytrack/internal/client"
	"github.com/okian/bodytrack/internal/tui"
	flag "github.com/spf13/pflag"
)

func main() {
	baseURL := flag.String("url", "http://localhost:9080", "Base URL of the recorder")
	poll := flag.Duration("poll", 500*time.Millisecond, "Session poll interval")
	timeout := flag.Duration("timeout", 5*time.Second, "HTTP request timeout")
	flag.Parse()

	rec := client.New(*baseURL, client.WithTimeout(*timeout))
	program := tea.NewProgram(tui.New(rec, *poll), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "recorder-tui: %v\n", err)
		os.Exit(1)
	}
}
