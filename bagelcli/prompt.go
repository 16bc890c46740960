package bagelcli

import (
	"github.com/manifoldco/promptui"
)

// PromptYN shows a yes/no confirmation prompt for msg, defaulting to
// defaultYes when the user just presses enter.
func PromptYN(msg string, defaultYes bool) bool {
	prompt := promptui.Prompt{
		Label:     msg,
		IsConfirm: true,
		Default:   "N",
	}
	if defaultYes {
		prompt.Default = "Y"
	}
	_, err := prompt.Run()
	if err == promptui.ErrInterrupt {
		return false
	}
	// ErrAbort is returned when the user enters "n" or accepts an "N" default.
	return err != promptui.ErrAbort
}
