package bufrcore

import (
	"github.com/bufrgo/bufrcore/compiledcache"
	"github.com/bufrgo/bufrcore/internal/options"
	"github.com/bufrgo/bufrcore/table"
)

// TableProvider resolves a table.Key to the already-materialized table
// group it names. Reading the three table JSON files themselves
// (spec.md §6 "table file layout") is an external collaborator's job;
// the core only ever consumes the in-memory table.Group shape a
// TableProvider hands back.
type TableProvider interface {
	TableGroup(key table.Key) (*table.Group, error)
}

// TableProviderFunc adapts a plain function to TableProvider.
type TableProviderFunc func(table.Key) (*table.Group, error)

func (f TableProviderFunc) TableGroup(key table.Key) (*table.Group, error) { return f(key) }

// Options holds the configuration surface spec.md §6 lists for the core.
type Options struct {
	TablesRootDir              string
	IgnoreValueExpectation     bool
	IgnoreDeclaredLength       bool
	CompiledTemplateCacheMax   int
	MasterTableVersionOverride *uint8
	Normalize                  int // 0 = strict, 1 = apply defaults
	TableProvider              TableProvider

	cache *compiledcache.Cache
}

// Option configures Options; build one with the With* constructors.
type Option = options.Option[*Options]

// WithTablesRootDir sets the directory a TableProvider may consult when
// resolving a requested table.Key.
func WithTablesRootDir(dir string) Option {
	return options.NoError[*Options](func(o *Options) { o.TablesRootDir = dir })
}

// WithIgnoreValueExpectation sets Options.IgnoreValueExpectation. Decode
// performs no checks of section-parameter "expected" values, so the
// setting has no effect on decoding.
func WithIgnoreValueExpectation(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.IgnoreValueExpectation = v })
}

// WithIgnoreDeclaredLength forces Encode to always recompute section and
// total lengths rather than trusting caller-declared ones.
func WithIgnoreDeclaredLength(v bool) Option {
	return options.NoError[*Options](func(o *Options) { o.IgnoreDeclaredLength = v })
}

// WithCompiledTemplateCacheMax sets the compiled-template cache's
// capacity; 0 disables compilation entirely (every message re-resolves
// its descriptor list from scratch).
func WithCompiledTemplateCacheMax(n int) Option {
	return options.NoError[*Options](func(o *Options) { o.CompiledTemplateCacheMax = n })
}

// WithMasterTableVersion overrides the §1 master table version parameter
// on encode.
func WithMasterTableVersion(v uint8) Option {
	return options.NoError[*Options](func(o *Options) { o.MasterTableVersionOverride = &v })
}

// WithNormalize sets Options.Normalize (0 = strict, 1 = table.Normalize's
// defaults). Decode does not consult it: the TableProvider receives only
// the requested table.Key, and table.Normalize is not called.
func WithNormalize(n int) Option {
	return options.NoError[*Options](func(o *Options) { o.Normalize = n })
}

// WithTableProvider supplies the callback used to resolve a table.Key to
// a table.Group. Required for any operation that touches section 3/4.
func WithTableProvider(p TableProvider) Option {
	return options.NoError[*Options](func(o *Options) { o.TableProvider = p })
}

const defaultCompiledTemplateCacheMax = compiledcache.DefaultCapacity

func newOptions(opts ...Option) (*Options, error) {
	o := &Options{CompiledTemplateCacheMax: defaultCompiledTemplateCacheMax}
	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}

	if o.CompiledTemplateCacheMax > 0 {
		o.cache = compiledcache.NewCache(o.CompiledTemplateCacheMax)
	}

	return o, nil
}
