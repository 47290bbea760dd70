package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/commons/internal/localization"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownOption = errors.New("config: unknown option")
	ErrOptionType    = errors.New("config: option type mismatch")
)

// OptionType is the declared type of one plugin option.
type OptionType int

const (
	TypeBool OptionType = iota
	TypeInt
	TypeInt64
	TypeFloat
	TypeString
	TypeBoolList
	TypeIntList
	TypeInt64List
	TypeFloatList
	TypeStringList
)

func (t OptionType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeInt64:
		return "int64"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBoolList:
		return "[]bool"
	case TypeIntList:
		return "[]int"
	case TypeInt64List:
		return "[]int64"
	case TypeFloatList:
		return "[]float"
	case TypeStringList:
		return "[]string"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Option declares one key the plugin reads. Keys may be dotted to reach
// into TOML tables ("database.port"). Default is used when the key is absent.
type Option struct {
	Key     string
	Type    OptionType
	Default any
}

// Manager is the typed option table of a plugin.
type Manager struct {
	mu      sync.RWMutex
	raw     map[string]any
	meta    toml.MetaData
	options map[string]Option
	values  map[string]any
	log     zerolog.Logger
	loc     *localization.Localizer
}

// Load decodes the TOML file at path.
func Load(path string, logger zerolog.Logger, loc *localization.Localizer) (*Manager, error) {
	raw := map[string]any{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load plugin config: %w", err)
	}
	return newManager(raw, meta, logger, loc), nil
}

// Parse decodes a TOML document held in memory.
func Parse(doc string, logger zerolog.Logger, loc *localization.Localizer) (*Manager, error) {
	raw := map[string]any{}
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse plugin config: %w", err)
	}
	return newManager(raw, meta, logger, loc), nil
}

func newManager(raw map[string]any, meta toml.MetaData, logger zerolog.Logger, loc *localization.Localizer) *Manager {
	if loc == nil {
		loc = localization.NewLocalizer(nil, localization.BaseLocale)
	}
	return &Manager{
		raw:     raw,
		meta:    meta,
		options: make(map[string]Option),
		values:  make(map[string]any),
		log:     logger.With().Str("component", "config").Logger(),
		loc:     loc,
	}
}

// Initialize coerces every declared option from the document. Options that
// are missing without a default, or hold the wrong type, are logged and
// skipped; their keys are returned.
func (m *Manager) Initialize(opts []Option) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	declared, values, bad := m.evaluate(m.raw, m.meta, opts)
	for key, opt := range declared {
		m.options[key] = opt
		delete(m.values, key)
	}
	for key, v := range values {
		m.values[key] = v
	}
	return bad
}

// Reload re-reads the TOML file at path and re-initializes every declared
// option against it. The new table replaces the old one in a single step,
// so readers see either the previous values or the reloaded ones. The
// previous values are kept if the file cannot be decoded.
func (m *Manager) Reload(path string) ([]string, error) {
	raw := map[string]any{}
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("reload plugin config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	opts := make([]Option, 0, len(m.options))
	for _, opt := range m.options {
		opts = append(opts, opt)
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Key < opts[j].Key })

	declared, values, bad := m.evaluate(raw, meta, opts)
	m.raw, m.meta = raw, meta
	m.options, m.values = declared, values
	return bad, nil
}

// evaluate coerces opts against one decoded document into fresh tables.
func (m *Manager) evaluate(raw map[string]any, meta toml.MetaData, opts []Option) (map[string]Option, map[string]any, []string) {
	declared := make(map[string]Option, len(opts))
	values := make(map[string]any, len(opts))
	var bad []string
	for _, opt := range opts {
		key := strings.TrimSpace(opt.Key)
		if key == "" {
			continue
		}
		opt.Key = key
		declared[key] = opt

		var (
			v   any
			err error
		)
		if meta.IsDefined(strings.Split(key, ".")...) {
			v, err = coerce(opt.Type, lookup(raw, key))
		} else if opt.Default != nil {
			v, err = coerce(opt.Type, opt.Default)
		} else {
			err = fmt.Errorf("%w: %s is not defined", ErrUnknownOption, key)
		}
		if err != nil {
			delete(values, key)
			bad = append(bad, key)
			m.log.Warn().
				Err(err).
				Str("option", key).
				Stringer("type", opt.Type).
				Msg(m.loc.Format(localization.CodeBadConfigSetting, key))
			continue
		}
		values[key] = v
	}
	return declared, values, bad
}

// Keys returns the initialized option keys, sorted.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the coerced value of key.
func (m *Manager) Lookup(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Describe renders the value of key for display.
func (m *Manager) Describe(key string) (string, bool) {
	v, ok := m.Lookup(key)
	if !ok {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (m *Manager) GetBool(key string) (bool, bool)           { return get[bool](m, key) }
func (m *Manager) GetInt(key string) (int, bool)             { return get[int](m, key) }
func (m *Manager) GetInt64(key string) (int64, bool)         { return get[int64](m, key) }
func (m *Manager) GetFloat(key string) (float64, bool)       { return get[float64](m, key) }
func (m *Manager) GetString(key string) (string, bool)       { return get[string](m, key) }
func (m *Manager) GetBoolList(key string) ([]bool, bool)     { return getList[bool](m, key) }
func (m *Manager) GetIntList(key string) ([]int, bool)       { return getList[int](m, key) }
func (m *Manager) GetInt64List(key string) ([]int64, bool)   { return getList[int64](m, key) }
func (m *Manager) GetFloatList(key string) ([]float64, bool) { return getList[float64](m, key) }
func (m *Manager) GetStringList(key string) ([]string, bool) { return getList[string](m, key) }

// Set replaces the value of a declared option.
func (m *Manager) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	opt, ok := m.options[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	v, err := coerce(opt.Type, value)
	if err != nil {
		return err
	}
	m.values[key] = v
	return nil
}

// SetString parses raw according to the option's type and stores it. List
// types take comma-separated items.
func (m *Manager) SetString(key, raw string) error {
	m.mu.RLock()
	opt, ok := m.options[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	v, err := parseString(opt.Type, raw)
	if err != nil {
		return err
	}
	return m.Set(key, v)
}

// Encode writes the initialized values back to TOML, nesting dotted keys.
func (m *Manager) Encode(w io.Writer) error {
	m.mu.RLock()
	doc := map[string]any{}
	for key, v := range m.values {
		parts := strings.Split(key, ".")
		node := doc
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = v
	}
	m.mu.RUnlock()

	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encode plugin config: %w", err)
	}
	return nil
}

func get[T any](m *Manager, key string) (T, bool) {
	var zero T
	v, ok := m.Lookup(key)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

func getList[T any](m *Manager, key string) ([]T, bool) {
	list, ok := get[[]T](m, key)
	if !ok {
		return nil, false
	}
	out := make([]T, len(list))
	copy(out, list)
	return out, true
}

func lookup(raw map[string]any, key string) any {
	parts := strings.Split(key, ".")
	var node any = raw
	for _, part := range parts {
		table, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = table[part]
	}
	return node
}

func coerce(t OptionType, v any) (any, error) {
	switch t {
	case TypeBool:
		return scalarBool(v)
	case TypeInt:
		n, err := scalarInt(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, fmt.Errorf("%w: %d overflows int", ErrOptionType, n)
		}
		return int(n), nil
	case TypeInt64:
		return scalarInt(v)
	case TypeFloat:
		return scalarFloat(v)
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: want string, got %T", ErrOptionType, v)
		}
		return s, nil
	case TypeBoolList:
		return coerceList(v, scalarBool)
	case TypeIntList:
		return coerceList(v, func(item any) (int, error) {
			n, err := coerce(TypeInt, item)
			if err != nil {
				return 0, err
			}
			return n.(int), nil
		})
	case TypeInt64List:
		return coerceList(v, scalarInt)
	case TypeFloatList:
		return coerceList(v, scalarFloat)
	case TypeStringList:
		return coerceList(v, func(item any) (string, error) {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("%w: want string item, got %T", ErrOptionType, item)
			}
			return s, nil
		})
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrOptionType, t)
	}
}

func coerceList[T any](v any, item func(any) (T, error)) ([]T, error) {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []T:
		out := make([]T, len(list))
		copy(out, list)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: want list, got %T", ErrOptionType, v)
	}
	out := make([]T, 0, len(items))
	for _, raw := range items {
		x, err := item(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func scalarBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: want bool, got %T", ErrOptionType, v)
	}
	return b, nil
}

func scalarInt(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: want integer, got %T", ErrOptionType, v)
	}
}

func scalarFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: want number, got %T", ErrOptionType, v)
	}
}

func parseString(t OptionType, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t {
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOptionType, err)
		}
		return b, nil
	case TypeInt, TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOptionType, err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOptionType, err)
		}
		return f, nil
	case TypeString:
		return raw, nil
	case TypeBoolList, TypeIntList, TypeInt64List, TypeFloatList, TypeStringList:
		var items []any
		if raw != "" {
			scalar := map[OptionType]OptionType{
				TypeBoolList:   TypeBool,
				TypeIntList:    TypeInt,
				TypeInt64List:  TypeInt64,
				TypeFloatList:  TypeFloat,
				TypeStringList: TypeString,
			}[t]
			for _, part := range strings.Split(raw, ",") {
				x, err := parseString(scalar, part)
				if err != nil {
					return nil, err
				}
				items = append(items, x)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrOptionType, t)
	}
}
