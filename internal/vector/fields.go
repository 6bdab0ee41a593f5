package vector

// Field is one key/value entry of an object's custom fields.
type Field struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Fields is an ordered multimap; a key may appear more than once.
type Fields []Field

// Add appends a key/value pair.
func (f *Fields) Add(key, value string) {
	*f = append(*f, Field{Key: key, Value: value})
}

// Set replaces the first value of key or appends it.
func (f *Fields) Set(key, value string) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	f.Add(key, value)
}

// Get returns the first value of key.
func (f Fields) Get(key string) (string, bool) {
	for _, e := range f {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Value returns the first value of key or an empty string.
func (f Fields) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// All returns every value stored under key.
func (f Fields) All(key string) []string {
	var out []string
	for _, e := range f {
		if e.Key == key {
			out = append(out, e.Value)
		}
	}
	return out
}

// Delete removes all entries of key.
func (f *Fields) Delete(key string) {
	out := (*f)[:0]
	for _, e := range *f {
		if e.Key != key {
			out = append(out, e)
		}
	}
	*f = out
}
