package dbdconf

// Pair is one key=value element of a pair-list token such as
// AuthAltParameters or StorageParameters.
type Pair struct {
	Key   string
	Value string
}

// document is the in-memory form of one slurmdbd.conf file: recognized
// token to raw canonical string, in first-set order. It is only reached
// through the Editor's accessors so that validation cannot be bypassed.
type document struct {
	values map[Token]string
	order  []Token
}

func newDocument() *document {
	return &document{values: make(map[Token]string)}
}

func (d *document) len() int { return len(d.order) }

func (d *document) get(t Token) (string, bool) {
	v, ok := d.values[t]
	return v, ok
}

// set stores raw for t. A key keeps its original position when
// overwritten; new keys append.
func (d *document) set(t Token, raw string) {
	if _, ok := d.values[t]; !ok {
		d.order = append(d.order, t)
	}
	d.values[t] = raw
}

func (d *document) delete(t Token) error {
	if _, ok := d.values[t]; !ok {
		return &KeyNotPresentError{Key: t}
	}
	delete(d.values, t)
	for i, o := range d.order {
		if o == t {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *document) tokens() []Token {
	out := make([]Token, len(d.order))
	copy(out, d.order)
	return out
}
