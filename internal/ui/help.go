package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mthorne/leaderd/internal/utils"
)

// PrintUsage displays the styled help/usage text
func PrintUsage(version string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Render(utils.ExecutableName())

	versionTag := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render("v" + version)

	fmt.Printf("%s %s\n", banner, versionTag)
	fmt.Println(Muted("Hold-a-key sequence launcher for Linux"))
	fmt.Println()

	printSection("Usage", []string{
		utils.ExecutableName() + " [flags]              Run the daemon",
		utils.ExecutableName() + " list-devices         List keyboard devices",
		utils.ExecutableName() + " set-device [args]    Configure the keyboard to grab",
		utils.ExecutableName() + " monitor              Run with a live state view",
		utils.ExecutableName() + " help                 Show this help message",
	})

	printSection("Flags", []string{
		"-config string    Path to configuration file (default \"config.yaml\")",
		"-verbose          Enable verbose logging",
		"-version          Print version and exit",
	})

	printCommandSection()

	printExamplesSection()
}

func printSection(title string, items []string) {
	fmt.Println(Bold(title))
	for _, item := range items {
		fmt.Printf("  %s\n", item)
	}
	fmt.Println()
}

func printCommandSection() {
	fmt.Println(Bold("Commands"))

	cmdStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	fmt.Printf("  %s\n", cmdStyle.Render("list-devices"))
	fmt.Printf("      List keyboard-capable input devices under /dev/input\n")
	fmt.Println()

	fmt.Printf("  %s\n", cmdStyle.Render("set-device"))
	fmt.Printf("      Set the keyboard device in the config file\n")
	fmt.Printf("      Run %s for more information\n", Code(utils.ExecutableName()+" set-device --help"))
	fmt.Println()

	fmt.Printf("  %s\n", cmdStyle.Render("monitor"))
	fmt.Printf("      Run the daemon with a live view of master-key state,\n")
	fmt.Printf("      sequence cursor and resolved actions\n")
	fmt.Println()
}

func printExamplesSection() {
	fmt.Println(Bold("Examples"))

	examples := []struct {
		cmd  string
		desc string
	}{
		{utils.ExecutableName(), "Run with default config.yaml"},
		{utils.ExecutableName() + " -config my.yaml", "Run with custom config file"},
		{utils.ExecutableName() + " list-devices", "List keyboards"},
		{utils.ExecutableName() + " set-device", "Interactive keyboard selection"},
		{utils.ExecutableName() + " set-device /dev/input/event3", "Set device by path"},
	}

	cmdStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	maxLen := 0
	for _, ex := range examples {
		if len(ex.cmd) > maxLen {
			maxLen = len(ex.cmd)
		}
	}

	for _, ex := range examples {
		padding := strings.Repeat(" ", maxLen-len(ex.cmd)+2)
		fmt.Printf("  %s%s%s\n", cmdStyle.Render(ex.cmd), padding, Muted(ex.desc))
	}
	fmt.Println()
}

// PrintSetDeviceUsage displays the styled help text for set-device subcommand
func PrintSetDeviceUsage() {
	fmt.Println(Bold("Usage:"), utils.ExecutableName()+" set-device [options] [device]")
	fmt.Println()
	fmt.Println("Set the keyboard device in the configuration file.")
	fmt.Println()
	fmt.Println(Muted("If a device path or name is provided, updates the config directly."))
	fmt.Println(Muted("Otherwise, displays a list of keyboards to choose from."))
	fmt.Println()

	fmt.Println(Bold("Arguments"))
	fmt.Printf("  %s    Device node path (/dev/input/eventN) or a name substring\n", SubtitleStyle.Render("device"))
	fmt.Println()

	fmt.Println(Bold("Options"))
	fmt.Printf("  %s    Path to configuration file (default \"config.yaml\")\n", SubtitleStyle.Render("-config string"))
	fmt.Println()

	fmt.Println(Bold("Examples"))
	examples := []struct {
		cmd  string
		desc string
	}{
		{utils.ExecutableName() + " set-device", "Interactive selection"},
		{utils.ExecutableName() + " set-device /dev/input/event3", "Direct specification"},
		{utils.ExecutableName() + " set-device -config my.yaml", "Use different config"},
	}

	cmdStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	maxLen := 0
	for _, ex := range examples {
		if len(ex.cmd) > maxLen {
			maxLen = len(ex.cmd)
		}
	}

	for _, ex := range examples {
		padding := strings.Repeat(" ", maxLen-len(ex.cmd)+2)
		fmt.Printf("  %s%s%s\n", cmdStyle.Render(ex.cmd), padding, Muted(ex.desc))
	}
	fmt.Println()
}

// PrintVersion displays the styled version information
func PrintVersion(version string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Render(utils.ExecutableName())

	versionTag := lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Render("v" + version)

	fmt.Printf("%s %s\n", banner, versionTag)
}

// PrintFatalError displays a styled fatal error message with context
func PrintFatalError(context, message string) {
	fmt.Println()
	fmt.Println(Error(context))
	fmt.Printf("  %s\n", Muted(message))
	fmt.Println()
}
