package objdb

// Restriction narrows the set of objects a query may return. The zero
// value restricts nothing. A nil Refs or Types map leaves that dimension
// open; a non-nil empty Refs map admits no object at all. Restrictions
// only ever narrow: composing two produces the intersection.
type Restriction struct {
	Refs  map[DBRef]struct{}
	Types map[string]struct{}
	Where func(*Object) bool
}

// Unrestricted is the zero Restriction, spelled out for call sites.
func Unrestricted() Restriction {
	return Restriction{}
}

// WithRefs narrows to the given refs. Called with none it admits nothing.
// Called on a Restriction that already carries refs it intersects.
func (r Restriction) WithRefs(refs ...DBRef) Restriction {
	set := make(map[DBRef]struct{}, len(refs))
	for _, ref := range refs {
		if r.Refs != nil {
			if _, ok := r.Refs[ref]; !ok {
				continue
			}
		}
		set[ref] = struct{}{}
	}
	r.Refs = set
	return r
}

// WithTypes narrows to objects whose TypePath is one of the given paths.
func (r Restriction) WithTypes(paths ...string) Restriction {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if r.Types != nil {
			if _, ok := r.Types[p]; !ok {
				continue
			}
		}
		set[p] = struct{}{}
	}
	r.Types = set
	return r
}

// WithWhere adds a predicate. An existing predicate is conjoined.
func (r Restriction) WithWhere(fn func(*Object) bool) Restriction {
	if fn == nil {
		return r
	}
	if prev := r.Where; prev != nil {
		r.Where = func(o *Object) bool { return prev(o) && fn(o) }
	} else {
		r.Where = fn
	}
	return r
}

// Allows reports whether the object passes every dimension of the
// restriction.
func (r Restriction) Allows(o *Object) bool {
	if o == nil {
		return false
	}
	if r.Refs != nil {
		if _, ok := r.Refs[o.DBRef]; !ok {
			return false
		}
	}
	if r.Types != nil {
		if _, ok := r.Types[o.TypePath]; !ok {
			return false
		}
	}
	if r.Where != nil && !r.Where(o) {
		return false
	}
	return true
}
