package runner

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}

// TemplateArgs is an argument list whose elements may be text/template
// strings rendered against the invocation options, e.g. "{{.inputFile}}".
// Referencing an option that is not set is an error; optional options are
// read with Opt, which yields nil instead. A templated element that renders
// to "" is left out, which allows optional flags such as
// "{{if .Opt "filters"}}--json{{end}}".
type TemplateArgs struct {
	elems []argElem
}

type argElem struct {
	raw  string
	tmpl *template.Template
}

// ParseTemplateArgs compiles args. Elements without "{{" are kept literally.
func ParseTemplateArgs(args []string) (TemplateArgs, error) {
	elems := make([]argElem, 0, len(args))
	for i, arg := range args {
		if !strings.Contains(arg, "{{") {
			elems = append(elems, argElem{raw: arg})
			continue
		}
		tmpl, err := template.New(fmt.Sprintf("arg%d", i)).
			Funcs(templateFuncs).
			Option("missingkey=error").
			Parse(arg)
		if err != nil {
			return TemplateArgs{}, fmt.Errorf("invalid argument template %q: %w", arg, err)
		}
		elems = append(elems, argElem{raw: arg, tmpl: tmpl})
	}
	return TemplateArgs{elems: elems}, nil
}

// templateData is the options as seen by argument templates. Options with a
// nil value are left out so they count as unset.
type templateData map[string]any

// Opt returns the named option, or nil when it is not set.
func (d templateData) Opt(name string) any {
	return d[name]
}

func (t TemplateArgs) Args(opts Options) ([]string, error) {
	data := make(templateData, len(opts))
	for k, v := range opts {
		if v != nil {
			data[k] = v
		}
	}

	args := make([]string, 0, len(t.elems))
	for i, elem := range t.elems {
		if elem.tmpl == nil {
			args = append(args, elem.raw)
			continue
		}
		var sb strings.Builder
		if err := elem.tmpl.Execute(&sb, data); err != nil {
			return nil, fmt.Errorf("error rendering argument %d %q: %w", i, elem.raw, err)
		}
		if sb.Len() == 0 {
			continue
		}
		args = append(args, sb.String())
	}
	return args, nil
}
