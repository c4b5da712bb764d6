package pwaction

import (
	"fmt"
	"strconv"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// handle is the Playwright Handle. Playwright locators are themselves lazy, so
// wrapping one never touches the page; it is evaluated again on every use.
type handle struct {
	loc   playwright.Locator
	desc  string
	scope *uiaction.Scope
	// err is set when a factory received options it cannot honor. It is
	// reported by the first operation that consumes the handle.
	err error
}

func (h *handle) Describe() string       { return h.desc }
func (h *handle) Scope() *uiaction.Scope { return h.scope }
func (h *handle) String() string         { return h.desc }

func (a *Action) fromQuery(q uiaction.Query) *handle {
	return &handle{
		loc:   a.page.Locator(string(q)),
		desc:  string(q),
		scope: a.pageScope,
	}
}

// within returns the parent handle for a Within option. A nil result with a
// nil error means the page itself.
func (a *Action) within(w uiaction.Handle) (*handle, error) {
	if w == nil {
		return nil, nil
	}
	parent, ok := w.(*handle)
	if !ok {
		return nil, fmt.Errorf("%w: within handle %q was created by a different engine", uiaction.ErrInvalidTarget, w.Describe())
	}
	return parent, nil
}

func (a *Action) newHandle(desc string, parent *handle, err error, build func(parent playwright.Locator) playwright.Locator) *handle {
	h := &handle{desc: desc, scope: a.pageScope, err: err}
	if err != nil {
		return h
	}
	if parent != nil {
		h.desc = parent.desc + " >> " + desc
		h.err = parent.err
		if h.err == nil {
			h.loc = build(parent.loc)
		}
		return h
	}
	h.loc = build(nil)
	return h
}

func withNth(h *handle, nth *int) *handle {
	if nth == nil || h.loc == nil {
		return h
	}
	if *nth < 0 {
		h.loc = h.loc.Last()
		h.desc += " >> nth=-1"
		return h
	}
	h.loc = h.loc.Nth(*nth)
	h.desc += " >> nth=" + strconv.Itoa(*nth)
	return h
}

// Locator returns a handle for a Playwright selector.
func (a *Action) Locator(selector string, opts ...uiaction.LocatorOptions) uiaction.Handle {
	o := uiaction.First(opts)
	parent, err := a.within(o.Within)

	desc := selector
	if o.HasText != "" {
		desc = fmt.Sprintf("%s:has-text(%q)", selector, o.HasText)
	}

	h := a.newHandle(desc, parent, err, func(p playwright.Locator) playwright.Locator {
		if p != nil {
			lo := playwright.LocatorLocatorOptions{}
			if o.HasText != "" {
				lo.HasText = o.HasText
			}
			return p.Locator(selector, lo)
		}
		po := playwright.PageLocatorOptions{}
		if o.HasText != "" {
			po.HasText = o.HasText
		}
		return a.page.Locator(selector, po)
	})
	return withNth(h, o.Nth)
}

// GetByText returns a handle for elements containing text.
func (a *Action) GetByText(text string, opts ...uiaction.TextOptions) uiaction.Handle {
	o := uiaction.First(opts)
	parent, err := a.within(o.Within)

	h := a.newHandle(fmt.Sprintf("text=%q", text), parent, err, func(p playwright.Locator) playwright.Locator {
		if p != nil {
			return p.GetByText(text, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(o.Exact)})
		}
		return a.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(o.Exact)})
	})
	return withNth(h, o.Nth)
}

// GetByRole returns a handle for elements with an ARIA role.
func (a *Action) GetByRole(role string, opts ...uiaction.RoleOptions) uiaction.Handle {
	o := uiaction.First(opts)
	parent, err := a.within(o.Within)

	desc := "role=" + role
	if o.Name != "" {
		desc += fmt.Sprintf("[name=%q]", o.Name)
	}

	h := a.newHandle(desc, parent, err, func(p playwright.Locator) playwright.Locator {
		if p != nil {
			lo := playwright.LocatorGetByRoleOptions{
				Exact:         playwright.Bool(o.Exact),
				IncludeHidden: playwright.Bool(o.IncludeHidden),
			}
			if o.Name != "" {
				lo.Name = o.Name
			}
			return p.GetByRole(playwright.AriaRole(role), lo)
		}
		po := playwright.PageGetByRoleOptions{
			Exact:         playwright.Bool(o.Exact),
			IncludeHidden: playwright.Bool(o.IncludeHidden),
		}
		if o.Name != "" {
			po.Name = o.Name
		}
		return a.page.GetByRole(playwright.AriaRole(role), po)
	})
	return withNth(h, o.Nth)
}

// GetByLabel returns a handle for form controls labelled label.
func (a *Action) GetByLabel(label string, opts ...uiaction.LabelOptions) uiaction.Handle {
	o := uiaction.First(opts)
	parent, err := a.within(o.Within)

	h := a.newHandle(fmt.Sprintf("label=%q", label), parent, err, func(p playwright.Locator) playwright.Locator {
		if p != nil {
			return p.GetByLabel(label, playwright.LocatorGetByLabelOptions{Exact: playwright.Bool(o.Exact)})
		}
		return a.page.GetByLabel(label, playwright.PageGetByLabelOptions{Exact: playwright.Bool(o.Exact)})
	})
	return withNth(h, o.Nth)
}

// CSSContainsClass returns a handle for elements whose class contains className.
func (a *Action) CSSContainsClass(className string) uiaction.Handle {
	return a.fromQuery(uiaction.CSSContainsClassQuery(className))
}
