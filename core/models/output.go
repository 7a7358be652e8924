package models

import (
	"errors"
	"strings"
)

// ErrNoOutputURL is returned when no variant of an output yields a URL
var ErrNoOutputURL = errors.New("output does not contain a usable url")

// OutputKind tags the shape of a generation output
type OutputKind int

const (
	OutputNone OutputKind = iota
	OutputURL
	OutputList
	OutputAccessor
)

func (k OutputKind) String() string {
	switch k {
	case OutputURL:
		return "url"
	case OutputList:
		return "list"
	case OutputAccessor:
		return "accessor"
	default:
		return "none"
	}
}

// URLAccessor is an output object that can produce its own URL
type URLAccessor interface {
	URL() string
}

// Output is the generation service's result, which arrives as a plain URL,
// a list whose first element is the asset, or an object exposing a URL.
type Output struct {
	Kind     OutputKind
	url      string
	items    []Output
	accessor URLAccessor
}

func URLOutput(u string) Output {
	return Output{Kind: OutputURL, url: u}
}

func ListOutput(items ...Output) Output {
	return Output{Kind: OutputList, items: items}
}

func AccessorOutput(a URLAccessor) Output {
	return Output{Kind: OutputAccessor, accessor: a}
}

// IsZero reports whether the output carries nothing at all
func (o Output) IsZero() bool {
	switch o.Kind {
	case OutputURL:
		return strings.TrimSpace(o.url) == ""
	case OutputList:
		return len(o.items) == 0
	case OutputAccessor:
		return o.accessor == nil
	default:
		return true
	}
}

// ResolveURL returns the first usable URL in priority order:
// direct URL, first list element, accessor.
func (o Output) ResolveURL() (string, error) {
	var u string
	switch o.Kind {
	case OutputURL:
		u = o.url
	case OutputList:
		if len(o.items) > 0 {
			first, err := o.items[0].ResolveURL()
			if err != nil {
				return "", err
			}
			u = first
		}
	case OutputAccessor:
		if o.accessor != nil {
			u = o.accessor.URL()
		}
	}
	u = strings.TrimSpace(u)
	if u == "" {
		return "", ErrNoOutputURL
	}
	return u, nil
}

// urlField exposes the "url" member of a decoded JSON object
type urlField map[string]interface{}

func (f urlField) URL() string {
	if s, ok := f["url"].(string); ok {
		return s
	}
	return ""
}

// OutputFromJSON classifies a decoded JSON value
func OutputFromJSON(raw interface{}) Output {
	switch v := raw.(type) {
	case string:
		return URLOutput(v)
	case []string:
		items := make([]Output, len(v))
		for i, s := range v {
			items[i] = URLOutput(s)
		}
		return ListOutput(items...)
	case []interface{}:
		items := make([]Output, len(v))
		for i, item := range v {
			items[i] = OutputFromJSON(item)
		}
		return ListOutput(items...)
	case map[string]interface{}:
		return AccessorOutput(urlField(v))
	case URLAccessor:
		return AccessorOutput(v)
	default:
		return Output{}
	}
}
