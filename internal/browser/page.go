package browser

import (
	"context"
	"time"

	"binday/internal/form"
	"binday/internal/vocab"
)

// Button is a clickable control: a button element or a submit/button input.
type Button struct {
	Ref    int
	Text   string
	Value  string
	ID     string
	Hidden bool
}

// Attrs returns the attributes the button vocabulary inspects.
func (b Button) Attrs() vocab.Attrs {
	return vocab.Attrs{
		vocab.AttrText:  b.Text,
		vocab.AttrValue: b.Value,
		vocab.AttrID:    b.ID,
	}
}

// Label returns the first non-empty of text, value and id.
func (b Button) Label() string {
	for _, s := range []string{b.Text, b.Value, b.ID} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Page is the rendered calendar form. Every method after Open operates
// inside the embedded form frame. Element and button refs are only valid
// until the next Controls or Buttons call.
type Page interface {
	// Open navigates to url and waits up to timeout for the form frame.
	Open(ctx context.Context, url string, timeout time.Duration) error

	// Controls lists input and select elements in document order.
	Controls(ctx context.Context) ([]form.Element, error)

	// Buttons lists buttons and submit/button inputs in document order.
	Buttons(ctx context.Context) ([]Button, error)

	// Type replaces the element's value by typing text into it.
	Type(ctx context.Context, el form.Element, text string) error

	// PressEnter sends a carriage return to the element.
	PressEnter(ctx context.Context, el form.Element) error

	// Click clicks the button.
	Click(ctx context.Context, b Button) error

	// WaitForSelect waits up to timeout for a select element to render.
	WaitForSelect(ctx context.Context, timeout time.Duration) error

	// Options returns the visible text of each option of a select.
	Options(ctx context.Context, sel form.Element) ([]string, error)

	// Choose selects the option at index and fires a change event.
	Choose(ctx context.Context, sel form.Element, index int) error

	// Value returns the current value of the element with the given id, or
	// extract.ErrNoField.
	Value(ctx context.Context, id string) (string, error)

	// HTML returns the frame's markup.
	HTML(ctx context.Context) (string, error)

	// Text returns the frame's rendered body text.
	Text(ctx context.Context) (string, error)
}
