package include

import (
	"context"
	"errors"
	"path"
	"strconv"

	"zealbuild/internal/trace"
	"zealbuild/internal/vfs"
)

// Default namespaces of the Zeal 8-bit file server.
const (
	DefaultLocalPrefix    = "user"
	DefaultPrimaryPrefix  = "files/headers"
	DefaultFallbackPrefix = "files"
)

// Resolver follows directives through Local, then Primary, then Fallback.
// A Resolver holds no per-run state and may serve concurrent Resolve calls.
type Resolver struct {
	Local       vfs.Store // optional
	LocalPrefix string
	Primary     Location
	Fallback    Location
}

// New returns a resolver with the default namespaces. Either argument may
// be nil to disable that source.
func New(local vfs.Store, remote Fetcher) *Resolver {
	r := &Resolver{Local: local, LocalPrefix: DefaultLocalPrefix}
	if remote != nil {
		r.Primary = Location{Prefix: DefaultPrimaryPrefix, Fetcher: remote}
		r.Fallback = Location{Prefix: DefaultFallbackPrefix, Fetcher: remote}
	}
	return r
}

// Result is the outcome of one resolution.
type Result struct {
	Bundle  Bundle        // every dependency, root excluded
	Skipped []*FetchError // directives no location could satisfy
}

type frame struct {
	unit string
	dirs []Directive
	next int
}

// Resolve expands the directives of root depth-first, fetching one
// dependency at a time. Each name is visited at most once, so cyclic and
// diamond include graphs terminate with one entry per name. Missing
// dependencies are recorded in Result.Skipped; a transport fault aborts
// with a *TransportError.
func (r *Resolver) Resolve(ctx context.Context, rootName string, root []byte) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeStage, "resolve", trace.CurrentSpan(ctx))
	span.WithExtra("root", rootName)
	ctx = trace.WithSpan(ctx, span)

	if name, ok := Canonical(rootName); ok {
		rootName = name
	}
	seen := map[string]struct{}{rootName: {}}
	res := &Result{Bundle: Bundle{}}
	stack := []frame{{unit: rootName, dirs: Scan(root)}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return nil, err
		}
		top := &stack[len(stack)-1]
		if top.next == len(top.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := top.dirs[top.next]
		top.next++
		parent := top.unit

		unit, found, err := r.lookup(ctx, parent, d, seen, res)
		if err != nil {
			span.End("transport error")
			return nil, err
		}
		if !found {
			continue
		}
		res.Bundle[unit.Name] = unit
		if !unit.Binary {
			stack = append(stack, frame{unit: unit.Name, dirs: Scan(unit.Data)})
		}
	}

	span.WithExtra("units", strconv.Itoa(len(res.Bundle))).
		WithExtra("skipped", strconv.Itoa(len(res.Skipped))).
		End("")
	return res, nil
}

// lookup resolves one directive. found is false when the target was
// already visited or could not be fetched; the latter is appended to
// res.Skipped.
func (r *Resolver) lookup(ctx context.Context, parent string, d Directive, seen map[string]struct{}, res *Result) (Unit, bool, error) {
	tracer := trace.FromContext(ctx)
	spanID := trace.CurrentSpan(ctx)

	name, ok := Canonical(d.Path)
	if !ok {
		r.skip(ctx, res, &FetchError{Unit: parent, Directive: d, Err: ErrInvalidPath})
		return Unit{}, false, nil
	}

	if r.Local != nil {
		if _, dup := seen[name]; dup {
			return Unit{}, false, nil
		}
		data, err := r.Local.ReadFile(path.Join(r.LocalPrefix, name))
		switch {
		case err == nil:
			seen[name] = struct{}{}
			trace.Point(tracer, trace.ScopeInclude, "local", spanID, name)
			// Local files are always expanded as text.
			return Unit{Name: name, Data: data}, true, nil
		case errors.Is(err, vfs.ErrNotFound), errors.Is(err, vfs.ErrIsDir):
		default:
			return Unit{}, false, &TransportError{Name: name, Location: "local", Err: err}
		}
	}

	locations := []struct {
		label string
		loc   Location
	}{
		{"primary", r.Primary},
		{"fallback", r.Fallback},
	}
	for _, l := range locations {
		if !l.loc.enabled() {
			continue
		}
		if _, dup := seen[l.loc.Name(name)]; dup {
			return Unit{}, false, nil
		}
	}

	var tried []string
	for _, l := range locations {
		if !l.loc.enabled() {
			continue
		}
		key := l.loc.Name(name)
		tried = append(tried, key)
		data, err := l.loc.Fetcher.Fetch(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Unit{}, false, &TransportError{Name: key, Location: l.label, Err: err}
		}
		seen[key] = struct{}{}
		trace.Point(tracer, trace.ScopeInclude, l.label, spanID, key)
		return Unit{Name: key, Data: data, Binary: d.Kind == KindIncbin}, true, nil
	}

	r.skip(ctx, res, &FetchError{Unit: parent, Directive: d, Tried: tried, Err: ErrNotFound})
	return Unit{}, false, nil
}

func (r *Resolver) skip(ctx context.Context, res *Result, fe *FetchError) {
	res.Skipped = append(res.Skipped, fe)
	trace.Point(trace.FromContext(ctx), trace.ScopeInclude, "skip", trace.CurrentSpan(ctx), fe.Error())
}
