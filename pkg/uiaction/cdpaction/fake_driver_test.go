package cdpaction

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
)

// fakeElement is the in-memory state of whatever a css query resolves to.
type fakeElement struct {
	count        int
	visible      bool
	visibleAfter time.Time
	disabled     bool
	text         string
	value        string
	attrs        map[string]string
	options      []string
}

type fakeDriver struct {
	mu       sync.Mutex
	elements map[string]*fakeElement
	calls    []string
	clicks   int
	keys     []string
	url      string
	navErr   error
	hang     bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{elements: make(map[string]*fakeElement), url: "about:blank"}
}

func (d *fakeDriver) set(sel string, el *fakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[sel] = el
}

func key(q *query) string {
	if q == nil {
		return ""
	}
	k := q.Kind + ":" + q.Value
	if q.Kind == kindCSS {
		k = q.Value
	}
	if q.Within != nil {
		k = key(q.Within) + " >> " + k
	}
	if q.Nth != nil {
		k += fmt.Sprintf(" >> nth=%d", *q.Nth)
	}
	return k
}

func (d *fakeDriver) lookup(q *query) *fakeElement {
	if el, ok := d.elements[key(q)]; ok {
		return el
	}
	return &fakeElement{}
}

func (e *fakeElement) isVisible() bool {
	if e.count == 0 {
		return false
	}
	if !e.visibleAfter.IsZero() {
		return time.Now().After(e.visibleAfter)
	}
	return e.visible
}

func (d *fakeDriver) call(ctx context.Context, fn string, q *query, arg any, res any) error {
	if d.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, fn+" "+key(q))

	el := d.lookup(q)
	var out any
	switch fn {
	case "count":
		out = el.count
	case "state":
		out = map[string]any{"count": el.count, "visible": el.isVisible()}
	case "actionable":
		st := map[string]any{"count": el.count, "visible": false, "enabled": false, "x": 0, "y": 0}
		if el.count == 1 {
			st["visible"] = el.isVisible()
			st["enabled"] = !el.disabled
			st["x"], st["y"] = 10.5, 20.5
		}
		out = st
	case "focus", "scroll":
		out = el.count > 0
	case "fill":
		if el.count > 0 {
			el.value = arg.(string)
		}
		out = el.count > 0
	case "select":
		found := false
		for _, o := range el.options {
			if o == arg.(string) {
				el.value = o
				found = true
			}
		}
		out = found
	case "text":
		out = el.text
	case "attribute":
		name := arg.(string)
		if name == "value" {
			out = []any{el.value, true}
		} else {
			v, ok := el.attrs[name]
			out = []any{v, ok}
		}
	case "readyState":
		out = "complete"
	default:
		return fmt.Errorf("unexpected call %s", fn)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (d *fakeDriver) navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navErr != nil {
		return d.navErr
	}
	d.url = url
	return nil
}

func (d *fakeDriver) history(ctx context.Context, delta int) error { return nil }
func (d *fakeDriver) reload(ctx context.Context) error             { return nil }

func (d *fakeDriver) title(ctx context.Context) (string, error) { return "Sign In", nil }

func (d *fakeDriver) location(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *fakeDriver) click(ctx context.Context, x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks++
	return nil
}

func (d *fakeDriver) sendKeys(ctx context.Context, keys string, mods input.Modifier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, fmt.Sprintf("%q/%d", keys, mods))
	return nil
}

func (d *fakeDriver) screenshot(ctx context.Context) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}
