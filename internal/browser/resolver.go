package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"binday/internal/extract"
	"binday/internal/form"
	"binday/internal/logger"
	"binday/internal/schedule"
	"binday/internal/vocab"
)

// pageTextLimit bounds the body text kept when falling back to markup extraction.
const pageTextLimit = 2000

type state int

const (
	awaitingPostcodeEntry state = iota
	postcodeSubmitted
	awaitingAddressList
	addressSelected
	awaitingResults
	done
	errored
)

func (s state) String() string {
	switch s {
	case awaitingPostcodeEntry:
		return "AwaitingPostcodeEntry"
	case postcodeSubmitted:
		return "PostcodeSubmitted"
	case awaitingAddressList:
		return "AwaitingAddressList"
	case addressSelected:
		return "AddressSelected"
	case awaitingResults:
		return "AwaitingResults"
	case done:
		return "Done"
	case errored:
		return "Errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// resolver walks the calendar form from postcode entry to the rendered
// collection dates. Each state has exactly one transition function.
type resolver struct {
	page   Page
	rules  *vocab.Ruleset
	config Config
	query  schedule.Query
	sleep  func(context.Context, time.Duration) error

	fields  form.Fields
	address string // option chosen in the address list
	result  *schedule.Schedule
	err     error
}

func newResolver(page Page, rules *vocab.Ruleset, cfg Config, q schedule.Query) *resolver {
	return &resolver{
		page:   page,
		rules:  rules,
		config: cfg,
		query:  q,
		sleep:  sleep,
	}
}

func (r *resolver) transition(s state) func(context.Context) state {
	switch s {
	case awaitingPostcodeEntry:
		return r.enterPostcode
	case postcodeSubmitted:
		return r.awaitAddressList
	case awaitingAddressList:
		return r.selectAddress
	case addressSelected:
		return r.continueToResults
	case awaitingResults:
		return r.readResults
	}
	return nil
}

func (r *resolver) run(ctx context.Context) (*schedule.Schedule, error) {
	logger.Info("Fetching bin schedule", "number", r.query.StreetNumber, "postcode", r.query.Postcode)

	s := r.prepare(ctx)
	for s != done && s != errored {
		next := r.transition(s)(ctx)
		logger.Debug("Lookup state changed", "from", s, "to", next)
		s = next
	}
	if s == errored {
		return nil, schedule.Classify(r.err)
	}
	return r.result, nil
}

// fail records err and moves to the terminal error state.
func (r *resolver) fail(err error) state {
	r.err = err
	return errored
}

// prepare opens the page, enters the form frame and locates the postcode
// and number fields.
func (r *resolver) prepare(ctx context.Context) state {
	logger.Info("Loading webpage", "url", r.config.ServiceURL)
	if err := r.page.Open(ctx, r.config.ServiceURL, r.config.Waits.Frame); err != nil {
		return r.fail(err)
	}
	if err := r.sleep(ctx, r.config.Waits.FrameSettle); err != nil {
		return r.fail(err)
	}

	controls, err := r.page.Controls(ctx)
	if err != nil {
		return r.fail(err)
	}
	inputs, selects := countControls(controls)
	logger.Info("Form loaded", "inputs", inputs, "selects", selects)
	if logger.Enabled(slog.LevelDebug) {
		for _, c := range controls {
			logger.Debug("Control", "tag", c.Tag, "type", c.Type, "name", c.Name, "id", c.ID, "placeholder", c.Placeholder, "hidden", c.Hidden)
		}
	}

	r.fields = form.LocateFields(controls, r.rules.Locator)
	if !r.fields.Identified() {
		le := schedule.Errorf(schedule.KindFieldsNotIdentified,
			"Could not identify form fields. The website structure may have changed.")
		le.Debug = fmt.Sprintf("Found %d inputs and %d selects", inputs, selects)
		return r.fail(le)
	}
	logger.Debug("Identified postcode field", "name", r.fields.Postcode.Name, "id", r.fields.Postcode.ID)
	if r.fields.HasNumber {
		logger.Debug("Identified number field", "name", r.fields.Number.Name, "id", r.fields.Number.ID)
	}
	return awaitingPostcodeEntry
}

func (r *resolver) enterPostcode(ctx context.Context) state {
	if !r.fields.TwoStep() {
		return r.submitSingleStep(ctx)
	}

	logger.Info("Two-step form, entering postcode", "postcode", r.query.Postcode)
	if err := r.page.Type(ctx, r.fields.Postcode, r.query.Postcode); err != nil {
		return r.fail(err)
	}

	button, ok, err := r.findButton(ctx, vocab.RoleSearch)
	if err != nil {
		return r.fail(err)
	}
	if ok {
		logger.Info("Clicking search button", "button", button.Label())
		err = r.page.Click(ctx, button)
	} else {
		logger.Info("No search button found, submitting with Enter", "terms", r.rules.Buttons.Terms(vocab.RoleSearch))
		err = r.page.PressEnter(ctx, r.fields.Postcode)
	}
	if err != nil {
		return r.fail(err)
	}
	if err := r.sleep(ctx, r.config.Waits.SubmitSettle); err != nil {
		return r.fail(err)
	}
	return postcodeSubmitted
}

func (r *resolver) submitSingleStep(ctx context.Context) state {
	logger.Info("Filling in postcode and street number")
	if err := r.page.Type(ctx, r.fields.Postcode, r.query.Postcode); err != nil {
		return r.fail(err)
	}
	if err := r.page.Type(ctx, r.fields.Number, r.query.StreetNumber); err != nil {
		return r.fail(err)
	}

	button, ok, err := r.findButton(ctx, vocab.RoleSubmit)
	if err != nil {
		return r.fail(err)
	}
	if !ok {
		return r.fail(schedule.Errorf(schedule.KindFieldsNotIdentified, "Could not find submit button"))
	}
	logger.Info("Submitting form", "button", button.Label())
	if err := r.page.Click(ctx, button); err != nil {
		return r.fail(err)
	}
	if err := r.sleep(ctx, r.config.Waits.SubmitSettle); err != nil {
		return r.fail(err)
	}
	return awaitingResults
}

func (r *resolver) awaitAddressList(ctx context.Context) state {
	logger.Info("Waiting for address list")
	if err := r.page.WaitForSelect(ctx, r.config.Waits.AddressList); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return r.fail(schedule.Wrap(schedule.KindTimeout, err, "Timeout waiting for address list"))
		}
		return r.fail(err)
	}
	return awaitingAddressList
}

func (r *resolver) selectAddress(ctx context.Context) state {
	controls, err := r.page.Controls(ctx)
	if err != nil {
		return r.fail(err)
	}

	sel, ok := r.findAddressSelect(controls)
	if !ok {
		return r.fail(schedule.Errorf(schedule.KindFieldsNotIdentified,
			"Could not find address selection dropdown after postcode search"))
	}
	logger.Debug("Found address select", "name", sel.Name, "id", sel.ID)

	options, err := r.page.Options(ctx, sel)
	if err != nil {
		return r.fail(err)
	}
	logger.Info("Found address options", "count", len(options))

	idx, ok := matchAddress(options, r.query.StreetNumber)
	if !ok {
		if len(options) > 1 {
			return r.fail(&schedule.LookupError{
				Kind:       schedule.KindAddressAmbiguous,
				Message:    fmt.Sprintf("Could not find address '%s' in postcode '%s'", r.query.StreetNumber, r.query.Postcode),
				Candidates: nonBlank(options),
			})
		}
		return r.fail(schedule.Errorf(schedule.KindAddressNotFound, "No addresses found for this postcode"))
	}

	r.address = strings.TrimSpace(options[idx])
	logger.Info("Selecting address", "address", r.address)
	if err := r.page.Choose(ctx, sel, idx); err != nil {
		return r.fail(err)
	}
	if err := r.sleep(ctx, r.config.Waits.SelectSettle); err != nil {
		return r.fail(err)
	}
	return addressSelected
}

func (r *resolver) findAddressSelect(controls []form.Element) (form.Element, bool) {
	for _, c := range controls {
		if c.Tag != "select" || c.Hidden {
			continue
		}
		if r.rules.AddressSelect.Match(vocab.RoleAddress, c.Attrs()) {
			return c, true
		}
	}
	return form.Element{}, false
}

func (r *resolver) continueToResults(ctx context.Context) state {
	button, ok, err := r.findButton(ctx, vocab.RoleContinue)
	if err != nil {
		return r.fail(err)
	}
	if !ok {
		logger.Debug("No continue button, assuming the form advances by itself")
		return awaitingResults
	}

	logger.Info("Submitting address selection", "button", button.Label())
	if err := r.page.Click(ctx, button); err != nil {
		return r.fail(err)
	}
	if err := r.sleep(ctx, r.config.Waits.SubmitSettle); err != nil {
		return r.fail(err)
	}
	return awaitingResults
}

func (r *resolver) readResults(ctx context.Context) state {
	logger.Info("Extracting results")
	if err := r.sleep(ctx, r.config.Waits.ResultSettle); err != nil {
		return r.fail(err)
	}

	collections := extract.KnownFields(r.rules, func(id string) (string, error) {
		return r.page.Value(ctx, id)
	})
	if len(collections) > 0 {
		r.result = &schedule.Schedule{Address: r.address, Collections: collections}
		return done
	}
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}

	logger.Debug("No known date fields, falling back to markup extraction")
	html, err := r.page.HTML(ctx)
	if err != nil {
		return r.fail(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return r.fail(fmt.Errorf("failed to parse form frame: %w", err))
	}
	r.result = extract.Extract(doc, r.rules)
	if r.result.Address == "" {
		r.result.Address = r.address
	}

	if text, err := r.page.Text(ctx); err != nil {
		logger.Warn("Failed to read page text", "error", err)
	} else {
		r.result.PageText = extract.Truncate(text, pageTextLimit)
	}
	return done
}

// findButton returns the first visible button matching role.
func (r *resolver) findButton(ctx context.Context, role vocab.Role) (Button, bool, error) {
	buttons, err := r.page.Buttons(ctx)
	if err != nil {
		return Button{}, false, err
	}
	for _, b := range buttons {
		if b.Hidden {
			continue
		}
		if r.rules.Buttons.Match(role, b.Attrs()) {
			return b, true, nil
		}
	}
	return Button{}, false, nil
}

// matchAddress returns the index of the first option whose trimmed text
// starts with the street number followed by a space or comma.
func matchAddress(options []string, number string) (int, bool) {
	for i, opt := range options {
		text := strings.TrimSpace(opt)
		if strings.HasPrefix(text, number+" ") || strings.HasPrefix(text, number+",") {
			return i, true
		}
	}
	return -1, false
}

func nonBlank(options []string) []string {
	var out []string
	for _, opt := range options {
		if s := strings.TrimSpace(opt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func countControls(controls []form.Element) (inputs, selects int) {
	for _, c := range controls {
		if c.Tag == "select" {
			selects++
		} else {
			inputs++
		}
	}
	return inputs, selects
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
