// Package manifest loads HCL run manifests: declarative configuration of
// module instances, input overrides, submodule wiring and property-type
// defaults, applied against a populated manager.
//
// A manifest looks like:
//
//	defaults {
//	  area = "Rectangle"
//	}
//
//	module "My Prism" {
//	  use     = "Prism"
//	  memoize = true
//
//	  input "Dimensions" {
//	    value = [1.23, 4.56, 7.89]
//	  }
//
//	  submodule "area" {
//	    use = "Rectangle"
//	  }
//	}
//
// A module block addresses a registered module by its label, or copies an
// existing one under the label with `use`. Input values are HCL
// expressions converted to each input's declared Go type.
//
// Each attribute of the defaults block maps a property-type alias to a
// module key. HCL attribute names are bare identifiers and cannot be
// quoted, so an alias that is not a valid identifier (one containing a
// space, such as "prism volume") cannot be named in a manifest.
package manifest

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/pluginrig/internal/ctxlog"
	"github.com/vk/pluginrig/internal/fault"
	"github.com/vk/pluginrig/internal/manager"
	"github.com/vk/pluginrig/internal/proptype"
)

// Manifest is the parsed, not-yet-applied form of a manifest file.
type Manifest struct {
	Defaults map[string]string
	Modules  []ModuleConfig
}

// ModuleConfig is one module block.
type ModuleConfig struct {
	Key     string
	Use     string
	Memoize *bool
	Inputs  []InputConfig
	Submods []SubmodConfig
}

// InputConfig is one input override, still in cty form.
type InputConfig struct {
	Key   string
	Value cty.Value
}

// SubmodConfig is one submodule binding.
type SubmodConfig struct {
	Key string
	Use string
}

type fileSchema struct {
	Defaults *defaultsSchema `hcl:"defaults,block"`
	Modules  []*moduleSchema `hcl:"module,block"`
}

type defaultsSchema struct {
	Body hcl.Body `hcl:",remain"`
}

type moduleSchema struct {
	Key     string          `hcl:"key,label"`
	Use     *string         `hcl:"use,optional"`
	Memoize *bool           `hcl:"memoize,optional"`
	Inputs  []*inputSchema  `hcl:"input,block"`
	Submods []*submodSchema `hcl:"submodule,block"`
}

type inputSchema struct {
	Key   string    `hcl:"key,label"`
	Value cty.Value `hcl:"value"`
}

type submodSchema struct {
	Key string `hcl:"key,label"`
	Use string `hcl:"use"`
}

// Load parses the manifest at path.
func Load(ctx context.Context, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing manifest file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, diags)
	}
	return decode(file)
}

// LoadBytes parses manifest source held in memory, filename only naming it
// in diagnostics.
func LoadBytes(src []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing manifest %s: %w", filename, diags)
	}
	return decode(file)
}

func decode(file *hcl.File) (*Manifest, error) {
	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, fmt.Errorf("decoding manifest: %w", diags)
	}

	m := &Manifest{Defaults: make(map[string]string)}

	if schema.Defaults != nil {
		attrs, diags := schema.Defaults.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("decoding defaults block: %w", diags)
		}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("evaluating default %q: %w", name, diags)
			}
			if val.Type() != cty.String {
				return nil, fault.New(fault.BadType, "default %q must name a module key", name)
			}
			m.Defaults[name] = val.AsString()
		}
	}

	for _, mb := range schema.Modules {
		mc := ModuleConfig{Key: mb.Key, Memoize: mb.Memoize}
		if mb.Use != nil {
			mc.Use = *mb.Use
		}
		for _, in := range mb.Inputs {
			mc.Inputs = append(mc.Inputs, InputConfig{Key: in.Key, Value: in.Value})
		}
		for _, sm := range mb.Submods {
			mc.Submods = append(mc.Submods, SubmodConfig{Key: sm.Key, Use: sm.Use})
		}
		m.Modules = append(m.Modules, mc)
	}
	return m, nil
}

// Apply replays the manifest onto the manager: copies, input overrides,
// submodule bindings and memoization toggles, in that order per module
// block, and then the defaults once all module blocks are applied.
func (m *Manifest) Apply(ctx context.Context, mm *manager.Manager) error {
	logger := ctxlog.FromContext(ctx)

	for _, mc := range m.Modules {
		if mc.Use != "" && !mm.Count(mc.Key) {
			logger.Debug("Copying module for manifest block.", "from", mc.Use, "to", mc.Key)
			if err := mm.CopyModule(mc.Use, mc.Key); err != nil {
				return err
			}
		}
		mod, err := mm.At(mc.Key)
		if err != nil {
			return err
		}

		for _, in := range mc.Inputs {
			decl, err := mod.Inputs().At(in.Key)
			if err != nil {
				return err
			}
			gv, err := toGoValue(in.Value, decl.Type())
			if err != nil {
				return fmt.Errorf("input %q of module %q: %w", in.Key, mc.Key, err)
			}
			if err := mod.ChangeInput(in.Key, gv); err != nil {
				return err
			}
		}

		for _, sm := range mc.Submods {
			if err := mm.ChangeSubmod(mc.Key, sm.Key, sm.Use); err != nil {
				return err
			}
		}

		if mc.Memoize != nil {
			if *mc.Memoize {
				err = mod.TurnOnMemoization()
			} else {
				err = mod.TurnOffMemoization()
			}
			if err != nil {
				return err
			}
		}
	}

	for alias, key := range m.Defaults {
		pt, ok := proptype.LookupNamed(alias)
		if !ok {
			return fault.New(fault.NotFound, "no property type registered under alias %q", alias)
		}
		if err := mm.SetDefaultFor(proptype.IDFor(pt), pt.Inputs(), key); err != nil {
			return err
		}
	}
	return nil
}

// toGoValue converts an HCL-provided cty value into the input's declared
// Go type.
func toGoValue(val cty.Value, want reflect.Type) (any, error) {
	wantCty, err := gocty.ImpliedType(reflect.Zero(want).Interface())
	if err != nil {
		return nil, fault.Wrap(fault.BadType, err, "input type %s has no HCL representation", want)
	}
	conv, err := convert.Convert(val, wantCty)
	if err != nil {
		return nil, fault.Wrap(fault.BadType, err, "cannot convert %s to %s",
			val.Type().FriendlyName(), want)
	}
	box := reflect.New(want)
	if err := gocty.FromCtyValue(conv, box.Interface()); err != nil {
		return nil, fault.Wrap(fault.BadType, err, "decoding %s value", want)
	}
	return box.Elem().Interface(), nil
}
