// Package encoding works with values that carry their own wire form.
package encoding

// Serializable is a value that encodes and decodes itself.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// Decode allocates a T and fills it from data. The error is the one returned
// by Deserialize, unwrapped.
func Decode[T any, PT interface {
	*T
	Serializable
}](data []byte) (*T, error) {
	v := PT(new(T))
	if err := v.Deserialize(data); err != nil {
		return nil, err
	}
	return v, nil
}

// Encode serializes v. When that fails, the error is handed to fallback and
// its result is encoded instead; a failing fallback yields nil.
func Encode(v Serializable, fallback func(error) Serializable) []byte {
	out, err := v.Serialize()
	if err == nil {
		return out
	}
	if fallback == nil {
		return nil
	}
	out, _ = fallback(err).Serialize()
	return out
}
