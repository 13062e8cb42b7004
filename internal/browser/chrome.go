package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"binday/internal/extract"
	"binday/internal/form"
	"binday/internal/logger"
)

const (
	jsClick  = `function() { this.click(); }`
	jsChoose = `function(i) { this.selectedIndex = i; this.dispatchEvent(new Event('change', {bubbles: true})); }`
)

// chromePage implements Page over a chromedp browser context.
type chromePage struct {
	frameSel string
	controls []*cdp.Node
	buttons  []*cdp.Node
}

func newChromePage(frameID string) *chromePage {
	return &chromePage{frameSel: "#" + frameID}
}

func (p *chromePage) Open(ctx context.Context, url string, timeout time.Duration) error {
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(p.frameSel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for form frame %s: %w", p.frameSel, err)
	}
	return nil
}

// frame re-queries the form frame so queries see its current document.
func (p *chromePage) frame(ctx context.Context) (*cdp.Node, error) {
	var frames []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(p.frameSel, &frames, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query form frame: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("form frame %s not found", p.frameSel)
	}
	return frames[0], nil
}

// query returns every node in the frame matching sel, possibly none.
func (p *chromePage) query(ctx context.Context, sel string) ([]*cdp.Node, error) {
	frame, err := p.frame(ctx)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err = chromedp.Run(ctx, chromedp.Nodes(sel, &nodes,
		chromedp.ByQueryAll,
		chromedp.FromNode(frame),
		chromedp.AtLeast(0),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", sel, err)
	}
	return nodes, nil
}

// ids selects exactly node with chromedp.ByNodeID.
func ids(node *cdp.Node) []cdp.NodeID {
	return []cdp.NodeID{node.NodeID}
}

// call runs a JavaScript function with the node as this.
func (p *chromePage) call(ctx context.Context, node *cdp.Node, fn string, args ...any) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() {
			// Fails harmlessly once the frame has navigated away.
			_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		}()
		return chromedp.CallFunctionOn(fn, nil, func(params *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return params.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
	}))
}

// visible reports whether the node is rendered with a box.
func (p *chromePage) visible(ctx context.Context, node *cdp.Node) bool {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return err == nil
}

func (p *chromePage) Controls(ctx context.Context) ([]form.Element, error) {
	nodes, err := p.query(ctx, "input, select")
	if err != nil {
		return nil, err
	}
	p.controls = nodes

	elems := make([]form.Element, 0, len(nodes))
	for i, n := range nodes {
		typ := n.AttributeValue("type")
		if typ == "" {
			typ = "text"
		}
		if n.LocalName == "select" {
			typ = "select"
		}
		elems = append(elems, form.Element{
			Ref:         i,
			Tag:         n.LocalName,
			Type:        typ,
			Name:        n.AttributeValue("name"),
			ID:          n.AttributeValue("id"),
			Placeholder: n.AttributeValue("placeholder"),
			Hidden:      !p.visible(ctx, n),
		})
	}
	return elems, nil
}

func (p *chromePage) Buttons(ctx context.Context) ([]Button, error) {
	nodes, err := p.query(ctx, `button, input[type="submit"], input[type="button"]`)
	if err != nil {
		return nil, err
	}
	p.buttons = nodes

	buttons := make([]Button, 0, len(nodes))
	for i, n := range nodes {
		var text string
		if err := chromedp.Run(ctx, chromedp.Text(ids(n), &text, chromedp.ByNodeID)); err != nil {
			logger.Debug("Skipping unreadable button", "index", i, "error", err)
			continue
		}
		buttons = append(buttons, Button{
			Ref:    i,
			Text:   text,
			Value:  n.AttributeValue("value"),
			ID:     n.AttributeValue("id"),
			Hidden: !p.visible(ctx, n),
		})
	}
	return buttons, nil
}

func (p *chromePage) control(el form.Element) (*cdp.Node, error) {
	if el.Ref < 0 || el.Ref >= len(p.controls) {
		return nil, fmt.Errorf("stale control reference %d", el.Ref)
	}
	return p.controls[el.Ref], nil
}

func (p *chromePage) Type(ctx context.Context, el form.Element, text string) error {
	node, err := p.control(el)
	if err != nil {
		return err
	}
	if err := chromedp.Run(ctx, chromedp.SetValue(ids(node), "", chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", el.Name, err)
	}
	if err := chromedp.Run(ctx, chromedp.SendKeys(ids(node), text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("failed to type into %s: %w", el.Name, err)
	}
	return nil
}

func (p *chromePage) PressEnter(ctx context.Context, el form.Element) error {
	node, err := p.control(el)
	if err != nil {
		return err
	}
	return chromedp.Run(ctx, chromedp.KeyEventNode(node, kb.Enter))
}

func (p *chromePage) Click(ctx context.Context, b Button) error {
	if b.Ref < 0 || b.Ref >= len(p.buttons) {
		return fmt.Errorf("stale button reference %d", b.Ref)
	}
	node := p.buttons[b.Ref]
	if err := chromedp.Run(ctx, chromedp.MouseClickNode(node)); err != nil {
		logger.Debug("Mouse click failed, clicking from script", "button", b.Label(), "error", err)
		return p.call(ctx, node, jsClick)
	}
	return nil
}

func (p *chromePage) WaitForSelect(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, err := p.frame(waitCtx)
	if err != nil {
		return err
	}
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("select", chromedp.ByQuery, chromedp.FromNode(frame))); err != nil {
		return fmt.Errorf("waiting for address list: %w", err)
	}
	return nil
}

func (p *chromePage) Options(ctx context.Context, sel form.Element) ([]string, error) {
	node, err := p.control(sel)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err = chromedp.Run(ctx, chromedp.Nodes("option", &nodes,
		chromedp.ByQueryAll,
		chromedp.FromNode(node),
		chromedp.AtLeast(0),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to read options of %s: %w", sel.Name, err)
	}

	options := make([]string, 0, len(nodes))
	for _, o := range nodes {
		var text string
		if err := chromedp.Run(ctx, chromedp.TextContent(ids(o), &text, chromedp.ByNodeID)); err != nil {
			return nil, fmt.Errorf("failed to read options of %s: %w", sel.Name, err)
		}
		options = append(options, text)
	}
	return options, nil
}

func (p *chromePage) Choose(ctx context.Context, sel form.Element, index int) error {
	node, err := p.control(sel)
	if err != nil {
		return err
	}
	return p.call(ctx, node, jsChoose, index)
}

func (p *chromePage) Value(ctx context.Context, id string) (string, error) {
	nodes, err := p.query(ctx, fmt.Sprintf(`[id=%q]`, id))
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", extract.ErrNoField
	}
	var value string
	if err := chromedp.Run(ctx, chromedp.Value(ids(nodes[0]), &value, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", id, err)
	}
	return value, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	node, err := p.first(ctx, "html")
	if err != nil {
		return "", err
	}
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML(ids(node), &html, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read frame markup: %w", err)
	}
	return html, nil
}

func (p *chromePage) Text(ctx context.Context) (string, error) {
	node, err := p.first(ctx, "body")
	if err != nil {
		return "", err
	}
	var text string
	if err := chromedp.Run(ctx, chromedp.Text(ids(node), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read frame text: %w", err)
	}
	return text, nil
}

func (p *chromePage) first(ctx context.Context, sel string) (*cdp.Node, error) {
	nodes, err := p.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.New("form frame has no " + sel + " element")
	}
	return nodes[0], nil
}
