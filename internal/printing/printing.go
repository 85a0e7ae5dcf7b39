// Package printing renders module documentation as reStructuredText.
//
// The engine's contribution is the content: field keys, declared type
// names, descriptions, default values, the optional/transparent flags and
// the human-readable check labels. Layout is a small fixed reST vocabulary
// (titled sections and field lists) so the output drops into any Sphinx
// tree.
package printing

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/pluginrig/internal/fields"
	"github.com/vk/pluginrig/internal/manager"
	"github.com/vk/pluginrig/internal/module"
	"github.com/vk/pluginrig/internal/proptype"
)

// sectionRunes are the reST underline characters by nesting level.
var sectionRunes = []rune{'#', '=', '-', '~'}

func section(w io.Writer, title string, level int) {
	if level >= len(sectionRunes) {
		level = len(sectionRunes) - 1
	}
	fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat(string(sectionRunes[level]), len(title)))
}

// DocumentModule writes one module's reference page.
func DocumentModule(w io.Writer, key string, mod *module.Module) {
	section(w, key, 0)

	if d := mod.Description(); d != "" {
		fmt.Fprintf(w, "%s\n\n", d)
	}

	if pts := mod.PropertyTypes(); len(pts) > 0 {
		names := make([]string, len(pts))
		for n, id := range pts {
			names[n] = proptype.Name(id)
		}
		fmt.Fprintf(w, "Satisfies: %s\n\n", strings.Join(names, ", "))
	}

	if cites := mod.Citations(); len(cites) > 0 {
		section(w, "Citations", 1)
		for _, c := range cites {
			fmt.Fprintf(w, "* %s\n", c)
		}
		fmt.Fprintln(w)
	}

	section(w, "Inputs", 1)
	if mod.Inputs().Len() == 0 {
		fmt.Fprint(w, "The module defines no inputs.\n\n")
	}
	mod.Inputs().Each(func(k string, in *fields.Input) bool {
		printInput(w, k, in)
		return true
	})

	section(w, "Results", 1)
	results, err := mod.Results()
	if err != nil || results.Len() == 0 {
		fmt.Fprint(w, "The module defines no results.\n\n")
	} else {
		results.Each(func(k string, r *fields.Result) bool {
			fmt.Fprintf(w, ":%s: %s", k, r.Type())
			if d := r.Description(); d != "" {
				fmt.Fprintf(w, " - %s", d)
			}
			fmt.Fprintln(w)
			return true
		})
		fmt.Fprintln(w)
	}

	if mod.Submods().Len() > 0 {
		section(w, "Submodules", 1)
		mod.Submods().Each(func(k string, req *module.SubmoduleRequest) bool {
			fmt.Fprintf(w, ":%s: requires %s", k, proptype.Name(req.PT()))
			if d := req.Description(); d != "" {
				fmt.Fprintf(w, " - %s", d)
			}
			fmt.Fprintln(w)
			return true
		})
		fmt.Fprintln(w)
	}
}

func printInput(w io.Writer, key string, in *fields.Input) {
	fmt.Fprintf(w, ":%s: %s", key, in.Type())

	var traits []string
	if in.IsOptional() {
		traits = append(traits, "optional")
	}
	if in.IsTransparent() {
		traits = append(traits, "transparent")
	}
	if len(traits) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(traits, ", "))
	}
	if d := in.Description(); d != "" {
		fmt.Fprintf(w, " - %s", d)
	}
	fmt.Fprintln(w)

	if in.HasValue() {
		fmt.Fprintf(w, "   Default: %s\n", in.Field())
	}
	if labels := in.CheckLabels(); len(labels) > 1 {
		fmt.Fprintf(w, "   Checks: %s\n", strings.Join(labels[1:], "; "))
	}
	fmt.Fprintln(w)
}

// DocumentModules writes an index followed by one page per registered
// module, in registration order.
func DocumentModules(w io.Writer, mm *manager.Manager) {
	section(w, "Available modules", 0)
	mm.Each(func(key string, _ *module.Module) bool {
		fmt.Fprintf(w, "* %s\n", key)
		return true
	})
	fmt.Fprintln(w)
	mm.Each(func(key string, mod *module.Module) bool {
		DocumentModule(w, key, mod)
		return true
	})
}
