package cdpaction

import (
	"fmt"
	"strconv"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Query kinds understood by the resolver script.
const (
	kindCSS   = "css"
	kindText  = "text"
	kindRole  = "role"
	kindLabel = "label"
)

// query is the serializable form of a handle, evaluated in the page by the
// resolver on every use.
type query struct {
	Kind          string `json:"kind"`
	Value         string `json:"value"`
	HasText       string `json:"hasText,omitempty"`
	Exact         bool   `json:"exact,omitempty"`
	Name          string `json:"name,omitempty"`
	IncludeHidden bool   `json:"includeHidden,omitempty"`
	Nth           *int   `json:"nth,omitempty"`
	Within        *query `json:"within,omitempty"`
}

type handle struct {
	q     *query
	desc  string
	scope *uiaction.Scope
	err   error
}

func (h *handle) Describe() string       { return h.desc }
func (h *handle) Scope() *uiaction.Scope { return h.scope }

func (a *Action) fromQuery(q uiaction.Query) *handle {
	return &handle{
		q:     &query{Kind: kindCSS, Value: string(q)},
		desc:  string(q),
		scope: a.pageScope,
	}
}

// build attaches within and nth to q and wraps it in a handle.
func (a *Action) build(q *query, desc string, within uiaction.Handle, nth *int) *handle {
	h := &handle{q: q, desc: desc, scope: a.pageScope}

	if within != nil {
		parent, ok := within.(*handle)
		if !ok {
			h.err = fmt.Errorf("%w: within handle %q was created by a different engine", uiaction.ErrInvalidTarget, within.Describe())
			return h
		}
		q.Within = parent.q
		h.desc = parent.desc + " >> " + desc
		h.err = parent.err
	}
	if nth != nil {
		n := *nth
		q.Nth = &n
		h.desc += " >> nth=" + strconv.Itoa(n)
	}
	return h
}

func (a *Action) Locator(selector string, opts ...uiaction.LocatorOptions) uiaction.Handle {
	o := uiaction.First(opts)
	desc := selector
	if o.HasText != "" {
		desc = fmt.Sprintf("%s:has-text(%q)", selector, o.HasText)
	}
	return a.build(&query{Kind: kindCSS, Value: selector, HasText: o.HasText}, desc, o.Within, o.Nth)
}

func (a *Action) GetByText(text string, opts ...uiaction.TextOptions) uiaction.Handle {
	o := uiaction.First(opts)
	return a.build(&query{Kind: kindText, Value: text, Exact: o.Exact}, fmt.Sprintf("text=%q", text), o.Within, o.Nth)
}

func (a *Action) GetByRole(role string, opts ...uiaction.RoleOptions) uiaction.Handle {
	o := uiaction.First(opts)
	desc := "role=" + role
	if o.Name != "" {
		desc += fmt.Sprintf("[name=%q]", o.Name)
	}
	q := &query{Kind: kindRole, Value: role, Name: o.Name, Exact: o.Exact, IncludeHidden: o.IncludeHidden}
	return a.build(q, desc, o.Within, o.Nth)
}

func (a *Action) GetByLabel(label string, opts ...uiaction.LabelOptions) uiaction.Handle {
	o := uiaction.First(opts)
	return a.build(&query{Kind: kindLabel, Value: label, Exact: o.Exact}, fmt.Sprintf("label=%q", label), o.Within, o.Nth)
}

func (a *Action) CSSContainsClass(className string) uiaction.Handle {
	return a.fromQuery(uiaction.CSSContainsClassQuery(className))
}
