package cli

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/ui"
)

// flagGroups sorts the global flags into help sections. Anything not listed
// lands under "Global Flags".
var flagGroups = []struct {
	title string
	names []string
}{
	{"Ladder Flags", []string{"strategies", "seed", "user-agent", "proxy"}},
	{"Browser Flags", []string{"chrome-path", "headful"}},
	{"Output Flags", []string{"verbose", "quiet", "json", "config"}},
}

var flagName = regexp.MustCompile(`--([\w-]+)`)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(os.Stdout, cmd, true)
	})
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		renderHelp(os.Stderr, cmd, false)
		return nil
	})
}

// flagEntry is one flag from pflag's usage text
type flagEntry struct {
	name   string
	syntax string
	desc   string
}

// parseFlagUsages splits FlagUsages output into one entry per flag,
// folding continuation lines into the description
func parseFlagUsages(usages string) []flagEntry {
	var out []flagEntry
	for _, line := range strings.Split(usages, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "-") {
			if n := len(out); n > 0 {
				out[n-1].desc += " " + trimmed
			}
			continue
		}
		syntax, desc, _ := strings.Cut(trimmed, "  ")
		e := flagEntry{syntax: strings.TrimSpace(syntax), desc: strings.TrimSpace(desc)}
		if m := flagName.FindStringSubmatch(syntax); m != nil {
			e.name = m[1]
		}
		out = append(out, e)
	}
	return out
}

// renderHelp writes the colourised help page. The short form, used for
// usage errors, leaves out the descriptions and examples.
func renderHelp(w io.Writer, cmd *cobra.Command, full bool) {
	heading := func(title string) {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
	}

	if full {
		fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorCyan, strings.ToUpper(cmd.Name()), ui.ColorReset)
		if cmd.Short != "" {
			fmt.Fprintln(w, cmd.Short)
		}
		if cmd.Long != "" && cmd.Long != cmd.Short {
			fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
		}
	}

	heading("Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s%s %s<command>%s %s[flags]%s\n",
			ui.ColorCyan, cmd.CommandPath(), ui.ColorReset,
			ui.ColorYellow, ui.ColorReset,
			ui.ColorDim, ui.ColorReset)
	}

	if full && cmd.HasExample() {
		heading("Examples")
		for _, line := range strings.Split(cmd.Example, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
				fmt.Fprintln(w)
			case strings.HasPrefix(trimmed, "#"):
				fmt.Fprintf(w, "  %s%s%s\n", ui.ColorDim, trimmed, ui.ColorReset)
			default:
				fmt.Fprintf(w, "  %s$ %s%s\n", ui.ColorGreen, trimmed, ui.ColorReset)
			}
		}
	}

	if cmd.HasAvailableSubCommands() {
		heading("Commands")
		var names []string
		var shorts []string
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() && c.Name() != "help" {
				names = append(names, c.Name())
				shorts = append(shorts, c.Short)
			}
		}
		width := longest(names)
		for i, name := range names {
			fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n", ui.ColorCyan, width, name, ui.ColorReset, ui.ColorDim, shorts[i], ui.ColorReset)
		}
	}

	global := cmd.Root().PersistentFlags()
	var local, inherited []flagEntry
	for _, e := range parseFlagUsages(cmd.LocalFlags().FlagUsages()) {
		if global.Lookup(e.name) == nil {
			local = append(local, e)
		}
	}
	inherited = parseFlagUsages(global.FlagUsages())

	printFlagSection(w, "Flags", local)
	if !full {
		fmt.Fprintf(w, "\n%sUse \"%s --help\" for more information.%s\n", ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
		return
	}

	byName := make(map[string]flagEntry, len(inherited))
	for _, e := range inherited {
		byName[e.name] = e
	}
	for _, g := range flagGroups {
		var entries []flagEntry
		for _, n := range g.names {
			if e, ok := byName[n]; ok {
				entries = append(entries, e)
				delete(byName, n)
			}
		}
		printFlagSection(w, g.title, entries)
	}
	var rest []flagEntry
	for _, e := range inherited {
		if _, ok := byName[e.name]; ok {
			rest = append(rest, e)
		}
	}
	printFlagSection(w, "Global Flags", rest)

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%sUse \"%s <command> --help\" for more information about a command.%s\n",
			ui.ColorDim, cmd.CommandPath(), ui.ColorReset)
	}
	fmt.Fprintln(w)
}

func printFlagSection(w io.Writer, title string, entries []flagEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)

	syntaxes := make([]string, len(entries))
	for i, e := range entries {
		syntaxes[i] = e.syntax
	}
	width := max(longest(syntaxes), 24)
	for _, e := range entries {
		fmt.Fprintf(w, "  %s%-*s%s  %s%s%s\n", ui.ColorGreen, width, e.syntax, ui.ColorReset, ui.ColorDim, e.desc, ui.ColorReset)
	}
}

func longest(ss []string) int {
	n := 0
	for _, s := range ss {
		n = max(n, len(s))
	}
	return n
}

// wrapText wraps each paragraph of text at width, keeping list items on
// their own lines
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
				lines = append(lines, line)
				continue
			}
			var cur strings.Builder
			for _, word := range strings.Fields(line) {
				if cur.Len() > 0 && cur.Len()+1+len(word) > width {
					lines = append(lines, cur.String())
					cur.Reset()
				}
				if cur.Len() > 0 {
					cur.WriteByte(' ')
				}
				cur.WriteString(word)
			}
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
