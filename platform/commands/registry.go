// Package commands holds the bot's command table, the dispatcher that runs
// an invocation through it, and the handlers themselves.
package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/net/context"

	"github.com/fuad-daoud/warden/platform"
)

type Category string

const (
	CategoryModeration Category = "🛡️ Moderation"
	CategoryFun        Category = "🎮 Fun"
	CategoryUtility    Category = "🔧 Utility"
	CategoryStatistics Category = "📊 Statistics"
	CategoryServer     Category = "🌍 Server"
	CategoryBackup     Category = "💾 Backup"
)

var Categories = []Category{CategoryModeration, CategoryFun, CategoryUtility, CategoryStatistics, CategoryServer, CategoryBackup}

type Option struct {
	Name        string
	Description string
	Kind        platform.OptionKind
	Required    bool
	// Greedy takes every remaining prefix token, joined by spaces.
	Greedy  bool
	Default string
}

type HandlerFunc func(ctx context.Context, inv *Invocation) error

type Descriptor struct {
	Name        string
	Description string
	Category    Category
	Options     []Option
	Permission  platform.Permissions
	Ephemeral   bool
	// Timeout overrides the dispatcher's default.
	Timeout time.Duration
	Handler HandlerFunc
}

// Signature renders the options the way help and usage errors show them.
func (d *Descriptor) Signature() string {
	parts := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		switch {
		case o.Required:
			parts = append(parts, "<"+o.Name+">")
		case o.Default != "":
			parts = append(parts, "["+o.Name+"="+o.Default+"]")
		default:
			parts = append(parts, "["+o.Name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// Usage is "`+name signature`".
func (d *Descriptor) Usage(prefix string) string {
	if sig := d.Signature(); sig != "" {
		return "`" + prefix + d.Name + " " + sig + "`"
	}
	return "`" + prefix + d.Name + "`"
}

// Registry is the static command table. Lookup is by name only.
type Registry struct {
	ordered []*Descriptor
	byName  map[string]*Descriptor
}

func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d == nil || d.Name == "" || d.Handler == nil {
			return nil, errors.New("command descriptor needs a name and a handler")
		}
		name := strings.ToLower(d.Name)
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("command %q registered twice", name)
		}
		if err := checkOptions(d); err != nil {
			return nil, err
		}
		r.byName[name] = d
		r.ordered = append(r.ordered, d)
	}
	return r, nil
}

// checkOptions enforces what slash commands require: required options come
// first and only the last option may be greedy.
func checkOptions(d *Descriptor) error {
	optional := false
	for i, o := range d.Options {
		if o.Required && optional {
			return fmt.Errorf("command %s: required option %s follows an optional one", d.Name, o.Name)
		}
		if !o.Required {
			optional = true
		}
		if o.Greedy && i != len(d.Options)-1 {
			return fmt.Errorf("command %s: greedy option %s is not last", d.Name, o.Name)
		}
	}
	return nil
}

func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[strings.ToLower(name)]
	return d, ok
}

func (r *Registry) All() []*Descriptor {
	return append([]*Descriptor(nil), r.ordered...)
}

func (r *Registry) InCategory(category Category) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.ordered {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Specs is the table as application commands.
func (r *Registry) Specs() []platform.CommandSpec {
	specs := make([]platform.CommandSpec, 0, len(r.ordered))
	for _, d := range r.ordered {
		spec := platform.CommandSpec{Name: d.Name, Description: d.Description, Permission: d.Permission}
		for _, o := range d.Options {
			spec.Options = append(spec.Options, platform.OptionSpec{
				Name:        o.Name,
				Description: o.Description,
				Kind:        o.Kind,
				Required:    o.Required,
			})
		}
		specs = append(specs, spec)
	}
	return specs
}

const suggestCutoff = 0.6

// Suggest returns up to n command names similar to name, closest first.
func (r *Registry) Suggest(name string, n int) []string {
	type scored struct {
		name  string
		score float64
	}
	name = strings.ToLower(name)
	var matches []scored
	for _, d := range r.ordered {
		if s := similarity(name, d.Name); s >= suggestCutoff {
			matches = append(matches, scored{d.Name, s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
