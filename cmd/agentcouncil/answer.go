package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/hupe1980/agentcouncil/core"
)

const otherOption = "Other..."

// answerer obtains user input: replies to agent questions and, in chat
// mode, the next query.
type answerer interface {
	Answer(q core.QuestionPayload) (string, error)
	Query() (string, error)
}

// newAnswerer prompts interactively on a terminal and reads plain lines
// otherwise.
func newAnswerer(in io.Reader, out io.Writer) answerer {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return promptAnswerer{}
	}

	return &lineAnswerer{in: bufio.NewReader(in), out: out}
}

type promptAnswerer struct{}

func (promptAnswerer) Answer(q core.QuestionPayload) (string, error) {
	if len(q.Options) > 0 {
		items := append([]string(nil), q.Options...)
		if q.AllowCustom {
			items = append(items, otherOption)
		}

		sel := promptui.Select{Label: q.Text, Items: items, Size: 10}

		_, choice, err := sel.Run()
		if err != nil {
			return "", err
		}

		if choice != otherOption {
			return choice, nil
		}
	}

	p := promptui.Prompt{
		Label: q.Text,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	return p.Run()
}

func (promptAnswerer) Query() (string, error) {
	p := promptui.Prompt{Label: "you"}

	line, err := p.Run()
	if errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrInterrupt) {
		return "", io.EOF
	}

	return line, err
}

// lineAnswerer lists options by number and reads one line per question.
type lineAnswerer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func (a *lineAnswerer) Answer(q core.QuestionPayload) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, o := range q.Options {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, o)
	}

	line, err := a.readLine("> ")
	if err != nil {
		return "", err
	}

	return resolveAnswer(line, q), nil
}

func (a *lineAnswerer) Query() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.readLine("you> ")
}

func (a *lineAnswerer) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)

	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

// resolveAnswer maps an option number to its text.
func resolveAnswer(line string, q core.QuestionPayload) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}

	return line
}
