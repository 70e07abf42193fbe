package record

// Record is one business entity's current state: an ordered mapping from
// attribute name to Value. Order is insertion order, which for rows read
// from the database is the column order of the result set.
type Record struct {
	names  []string
	fields map[string]Value
}

// New creates an empty Record.
func New() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Set stores an attribute value. A new name is appended to the attribute
// order; setting an existing name replaces its value in place.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.fields[name]; !ok {
		r.names = append(r.names, name)
	}
	r.fields[name] = v
}

// Get returns the value for an attribute and whether it is present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Names returns the attribute names in order. The slice is a copy.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of attributes.
func (r *Record) Len() int {
	return len(r.names)
}

// Native returns the record as a name -> Go scalar map, mainly for
// diagnostics and JSON output.
func (r *Record) Native() map[string]any {
	out := make(map[string]any, len(r.names))
	for _, n := range r.names {
		out[n] = r.fields[n].Native()
	}
	return out
}
