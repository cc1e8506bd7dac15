package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Prompter asks interactive questions on the terminal.
type Prompter struct{}

// NewPrompter creates a Prompter reading from the current terminal.
func NewPrompter() *Prompter {
	return &Prompter{}
}

// ask runs a single readline round with the given prompt string.
func (p *Prompter) ask(prompt string) (string, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to open terminal prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", fmt.Errorf("cancelled")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Text asks for a free-text value. When required is set, empty answers are
// re-asked. A non-nil validate function is applied until it returns nil.
func (p *Prompter) Text(label string, required bool, validate func(string) error) (string, error) {
	prompt := fmt.Sprintf("%s: ", text.Bold.Sprint(label))

	for {
		answer, err := p.ask(prompt)
		if err != nil {
			return "", err
		}

		if answer == "" {
			if !required {
				return "", nil
			}
			fmt.Println(text.FgYellow.Sprint("A value is required."))
			continue
		}

		if validate != nil {
			if err := validate(answer); err != nil {
				fmt.Println(text.FgYellow.Sprint(err.Error()))
				continue
			}
		}

		return answer, nil
	}
}

// Confirm asks a yes/no question, returning def on an empty answer.
func (p *Prompter) Confirm(label string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	prompt := fmt.Sprintf("%s %s: ", text.Bold.Sprint(label), hint)

	for {
		answer, err := p.ask(prompt)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Println(text.FgYellow.Sprint("Please answer y or n."))
	}
}

// SelectOption is one choice presented by Select.
type SelectOption struct {
	// Value is returned when the option is chosen.
	Value string
	// Label is shown to the user.
	Label string
}

// Select presents a numbered list of options and returns the chosen value.
func (p *Prompter) Select(label string, options []SelectOption) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options to select from")
	}

	fmt.Println(text.Bold.Sprint(label))
	for i, opt := range options {
		fmt.Printf("  %d) %s\n", i+1, opt.Label)
	}

	for {
		answer, err := p.ask(fmt.Sprintf("Choice [1-%d]: ", len(options)))
		if err != nil {
			return "", err
		}

		idx, err := strconv.Atoi(answer)
		if err != nil || idx < 1 || idx > len(options) {
			fmt.Println(text.FgYellow.Sprintf("Please enter a number between 1 and %d.", len(options)))
			continue
		}
		return options[idx-1].Value, nil
	}
}
