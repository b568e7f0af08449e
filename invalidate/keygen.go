package invalidate

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// KeyGenerator derives the cache key to remove for an invocation.
//
// Contract:
// - Determinism: the key is a pure function of the identity and arguments.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a returned error means no key exists; callers must not guess one.
type KeyGenerator interface {
	GenerateKey(inv *Invocation) (string, error)
}

// KeyGeneratorFunc adapts a function to KeyGenerator.
type KeyGeneratorFunc func(inv *Invocation) (string, error)

// GenerateKey calls f(inv).
func (f KeyGeneratorFunc) GenerateKey(inv *Invocation) (string, error) { return f(inv) }

// ArgsKeyGenerator joins a prefix and the named argument values with ":".
// With Prefix "order" and Args [id], the call (id=7) yields "order:7".
//
// Argument values are escaped so that distinct argument lists never share a
// key: a ":" inside a value becomes "\:" and a backslash becomes "\\".
// Values must be scalars, non-nil pointers to scalars, or implement
// encoding.TextMarshaler or fmt.Stringer. Anything else is
// ErrUnsupportedArgument.
type ArgsKeyGenerator struct {
	// Prefix defaults to the operation name. It is used verbatim.
	Prefix string

	// Args lists argument names in key order.
	Args []string
}

// GenerateKey builds the key. A missing or unsupported argument is an error.
func (g ArgsKeyGenerator) GenerateKey(inv *Invocation) (string, error) {
	prefix := g.Prefix
	if prefix == "" {
		prefix = inv.Identity.Operation
	}

	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range g.Args {
		v, ok := inv.Arg(name)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingArgument, name)
		}
		part, err := argText(v)
		if err != nil {
			return "", fmt.Errorf("argument %q: %w", name, err)
		}
		b.WriteByte(':')
		keyEscaper.WriteString(&b, part)
	}
	return b.String(), nil
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// argText renders one argument value. Pointers are followed so the key
// depends on the value, never on its address.
func argText(v any) (string, error) {
	rv := reflect.ValueOf(v)
	for {
		if !rv.IsValid() {
			return "", fmt.Errorf("%w: nil", ErrUnsupportedArgument)
		}
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", fmt.Errorf("%w: nil %s", ErrUnsupportedArgument, rv.Type())
		}
		switch t := rv.Interface().(type) {
		case encoding.TextMarshaler:
			text, err := t.MarshalText()
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrUnsupportedArgument, err)
			}
			return string(text), nil
		case fmt.Stringer:
			return t.String(), nil
		}
		if rv.Kind() != reflect.Pointer {
			break
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(rv.Interface()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArgument, rv.Type())
	}
}

// HashKeyGenerator hashes the full argument set.
// Format: cache:<prefix>:<first 16 hex chars of SHA-256(canonical JSON(args))>
type HashKeyGenerator struct {
	// Prefix defaults to the identity string.
	Prefix string
}

// GenerateKey builds the key. Arguments that cannot be encoded are an error.
func (g HashKeyGenerator) GenerateKey(inv *Invocation) (string, error) {
	prefix := g.Prefix
	if prefix == "" {
		prefix = inv.Identity.String()
	}

	// encoding/json writes map keys in sorted order.
	canonical, err := json.Marshal(normalizeArgs(inv.Args))
	if err != nil {
		return "", fmt.Errorf("invalidate: failed to canonicalize arguments: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return "cache:" + prefix + ":" + hex.EncodeToString(hash[:8]), nil
}

// normalizeArgs maps nil and empty argument sets to the same encoding.
func normalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

var (
	_ KeyGenerator = KeyGeneratorFunc(nil)
	_ KeyGenerator = ArgsKeyGenerator{}
	_ KeyGenerator = HashKeyGenerator{}
)
