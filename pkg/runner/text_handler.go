package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/muesli/termenv"
)

// TextHandler prints a run for a human: one header per super-step followed
// by what the step changed, then the rendered final answer.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	out *termenv.Output
	mu  sync.Mutex

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

var (
	_ IOHandler = (*TextHandler)(nil)
	_ Confirmer = (*TextHandler)(nil)
)

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerInput sets where confirmations are read from.
func WithTextHandlerInput(r io.Reader) TextHandlerOption {
	return func(h *TextHandler) {
		h.Reader = bufio.NewReader(r)
	}
}

// NewTextHandler creates a handler writing to w (stdout when nil).
// Confirmations read stdin unless WithTextHandlerInput says otherwise.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	if h.Reader == nil {
		h.Reader = bufio.NewReader(os.Stdin)
	}
	h.out = termenv.NewOutput(w)
	return h
}

func (h *TextHandler) Start(_ context.Context, runID, objective string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(h.Writer, "%s %s\n", h.out.String("Objective:").Bold(), objective)
	fmt.Fprintln(h.Writer, h.out.String("run "+runID).Faint())
	return nil
}

func (h *TextHandler) Step(_ context.Context, step domain.Step, diff *domain.StateDiff) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	header := fmt.Sprintf("[%d] %s", step.Index, step.Node)
	fmt.Fprintln(h.Writer, h.out.String(header).Bold().Foreground(h.out.Color("6")))
	if diff == nil {
		fmt.Fprintln(h.Writer, "  (no change)")
		return nil
	}

	if diff.PlanCleared {
		fmt.Fprintln(h.Writer, "  plan: (empty)")
	}
	if len(diff.Plan) > 0 {
		fmt.Fprintln(h.Writer, "  plan:")
		for i, task := range diff.Plan {
			fmt.Fprintf(h.Writer, "    %d. %s\n", i+1, task)
		}
	}
	for _, past := range diff.HistoryAppended {
		fmt.Fprintf(h.Writer, "  done: %s\n", past.Task)
		fmt.Fprintf(h.Writer, "    -> %s\n", indent(past.Result, "       "))
	}
	if diff.FinalAnswer != nil {
		fmt.Fprintln(h.Writer, "  answer ready")
	}
	return nil
}

func (h *TextHandler) Finish(_ context.Context, record *domain.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if record.Status != domain.StatusCompleted {
		msg := fmt.Sprintf("Run %s: %s", record.Status, record.Error)
		fmt.Fprintln(h.Writer, h.out.String(msg).Foreground(h.out.Color("1")))
		return nil
	}

	output := record.State.Answer()
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, h.out.String("Final answer:").Bold())
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return nil
}

// Confirm prints prompt and reads a y/yes answer. Anything else is a no.
func (h *TextHandler) Confirm(ctx context.Context, prompt string) (bool, error) {
	h.initPump()

	h.mu.Lock()
	fmt.Fprintf(h.Writer, "\n[System] %s [y/N] ", prompt)
	h.mu.Unlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res, ok := <-h.inputChan:
		if !ok {
			return false, io.EOF
		}
		if res.err != nil {
			return false, res.err
		}
		answer, err := SanitizeInput(strings.ToLower(strings.TrimSpace(res.text)))
		if err != nil {
			return false, err
		}
		return answer == "y" || answer == "yes", nil
	}
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines so that Confirm can give up on cancellation without
// losing the reader.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			return
		}
	}
}

func indent(text, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n"+prefix)
}
