// Package confirmation asks the operator before operations that overwrite or
// delete store data.
package confirmation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
)

// maxAttempts bounds re-prompting on unrecognised answers
const maxAttempts = 3

// ErrNotInteractive is returned when a prompt is needed but stdin is not a
// terminal
var ErrNotInteractive = errors.New("confirmation required but input is not interactive")

// Request describes a destructive operation awaiting approval
type Request struct {
	Action string
	// Consequences are printed as a bullet list before the prompt
	Consequences []string
}

// ConfirmationService handles user confirmation for destructive operations
type ConfirmationService interface {
	Confirm(req Request, autoApprove bool) (bool, error)
}

type confirmationService struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

// NewConfirmationService reads answers from in and writes prompts to out
func NewConfirmationService(in io.Reader, out io.Writer) ConfirmationService {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &confirmationService{in: in, reader: bufio.NewReader(in), out: out}
}

// Confirm shows the request and waits for y/N. autoApprove skips the prompt.
// An interrupt while waiting returns an interruption error.
func (cs *confirmationService) Confirm(req Request, autoApprove bool) (bool, error) {
	cs.describe(req)

	if autoApprove {
		fmt.Fprintln(cs.out, "Auto-approving.")
		return true, nil
	}
	if f, ok := cs.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, appErrors.NewValidationError(ErrNotInteractive.Error(), ErrNotInteractive).
			WithUserMessage("This operation needs confirmation. Re-run with --yes to approve it non-interactively.")
	}

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	type answer struct {
		ok  bool
		err error
	}
	answers := make(chan answer, 1)
	go func() {
		ok, err := cs.ask()
		answers <- answer{ok, err}
	}()

	select {
	case <-interruptChan:
		fmt.Fprintln(cs.out, "\nOperation cancelled by user")
		return false, appErrors.NewAppError(appErrors.ErrorTypeInterruption, "confirmation interrupted", nil)
	case a := <-answers:
		return a.ok, a.err
	}
}

func (cs *confirmationService) describe(req Request) {
	fmt.Fprintln(cs.out, req.Action)
	for _, c := range req.Consequences {
		fmt.Fprintf(cs.out, "  - %s\n", c)
	}
}

func (cs *confirmationService) ask() (bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		fmt.Fprint(cs.out, "Do you want to continue? [y/N]: ")
		input, err := cs.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && input != "") {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, fmt.Errorf("failed to read input: %w", err)
		}

		ok, valid := ParseAnswer(input)
		if valid {
			return ok, nil
		}
		fmt.Fprintf(cs.out, "Invalid input '%s'. Please enter 'y' for yes or 'n' for no.\n", strings.TrimSpace(input))
	}
	return false, nil
}

// ParseAnswer interprets a reply. An empty reply means no.
func ParseAnswer(input string) (ok bool, valid bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, true
	case "n", "no", "":
		return false, true
	default:
		return false, false
	}
}
