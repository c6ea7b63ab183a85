// Package settings implements the configuration store the daemon consumes:
// a YAML document of schema -> key -> value, reloaded when the file changes
// and diffed so that subscribers hear about each changed key exactly once.
package settings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Reader is the read side of the store.
type Reader interface {
	Get(schema, key string) (any, bool)
	Bool(schema, key string) (bool, bool)
	Int(schema, key string) (int, bool)
	Float(schema, key string) (float64, bool)
	String(schema, key string) (string, bool)
}

// Writer persists a single key.
type Writer interface {
	Set(schema, key string, value any) error
}

// ChangeFunc receives the key that changed inside a subscribed schema.
type ChangeFunc func(key string)

type document map[string]map[string]any

type Store struct {
	mu          sync.RWMutex
	path        string
	values      document
	subscribers map[string][]*subscriber
}

type subscriber struct {
	fn ChangeFunc
}

var (
	_ Reader = (*Store)(nil)
	_ Writer = (*Store)(nil)
)

// Open loads the store at path. A missing file yields an empty store that is
// created on the first Set.
func Open(path string) (*Store, error) {
	s := &Store{
		path:        path,
		values:      document{},
		subscribers: make(map[string][]*subscriber),
	}
	values, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// NewMemory returns a store that is never persisted.
func NewMemory(initial map[string]map[string]any) *Store {
	values := document{}
	for schema, keys := range initial {
		values[schema] = make(map[string]any, len(keys))
		for k, v := range keys {
			values[schema][k] = normalize(v)
		}
	}
	return &Store{
		values:      values,
		subscribers: make(map[string][]*subscriber),
	}
}

// Path returns the backing file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Subscribe registers fn for changes inside schema. The returned func
// removes the subscription.
func (s *Store) Subscribe(schema string, fn ChangeFunc) func() {
	sub := &subscriber{fn: fn}
	s.mu.Lock()
	s.subscribers[schema] = append(s.subscribers[schema], sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[schema]
		for i, candidate := range subs {
			if candidate == sub {
				s.subscribers[schema] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) Get(schema, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[schema][key]
	return v, ok
}

func (s *Store) Bool(schema, key string) (bool, bool) {
	v, ok := s.Get(schema, key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (s *Store) Int(schema, key string) (int, bool) {
	v, ok := s.Get(schema, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func (s *Store) Float(schema, key string) (float64, bool) {
	v, ok := s.Get(schema, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func (s *Store) String(schema, key string) (string, bool) {
	v, ok := s.Get(schema, key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Set stores value, persists the document when file-backed and notifies the
// schema's subscribers if the value changed.
func (s *Store) Set(schema, key string, value any) error {
	value = normalize(value)

	s.mu.Lock()
	old, existed := s.values[schema][key]
	if existed && reflect.DeepEqual(old, value) {
		s.mu.Unlock()
		return nil
	}
	if s.values[schema] == nil {
		s.values[schema] = make(map[string]any)
	}
	s.values[schema][key] = value
	snapshot := s.values.clone()
	s.mu.Unlock()

	if s.path != "" {
		if err := writeDocument(s.path, snapshot); err != nil {
			return err
		}
	}
	s.notify([]change{{schema: schema, key: key}})
	return nil
}

// Reload re-reads the backing file and notifies subscribers about every key
// whose value differs from the previous state. On a parse error the previous
// state is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	values, err := readDocument(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	changes := diff(s.values, values)
	s.values = values
	s.mu.Unlock()

	s.notify(changes)
	return nil
}

type change struct {
	schema string
	key    string
}

func (s *Store) notify(changes []change) {
	for _, c := range changes {
		s.mu.RLock()
		subs := append([]*subscriber(nil), s.subscribers[c.schema]...)
		s.mu.RUnlock()
		for _, sub := range subs {
			sub.fn(c.key)
		}
	}
}

func diff(old, current document) []change {
	schemas := make(map[string]struct{})
	for schema := range old {
		schemas[schema] = struct{}{}
	}
	for schema := range current {
		schemas[schema] = struct{}{}
	}

	var changes []change
	for _, schema := range sortedKeys(schemas) {
		keys := make(map[string]struct{})
		for k := range old[schema] {
			keys[k] = struct{}{}
		}
		for k := range current[schema] {
			keys[k] = struct{}{}
		}
		for _, k := range sortedKeys(keys) {
			before, hadBefore := old[schema][k]
			after, hasAfter := current[schema][k]
			if hadBefore != hasAfter || !reflect.DeepEqual(before, after) {
				changes = append(changes, change{schema: schema, key: k})
			}
		}
	}
	return changes
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d document) clone() document {
	out := make(document, len(d))
	for schema, keys := range d {
		out[schema] = make(map[string]any, len(keys))
		for k, v := range keys {
			out[schema][k] = v
		}
	}
	return out
}

// normalize folds the integer widths callers may pass onto int so that
// comparisons against decoded YAML values hold.
func normalize(v any) any {
	switch n := v.(type) {
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case float32:
		return float64(n)
	}
	return v
}

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	values := make(document, len(raw))
	for schema, keys := range raw {
		values[schema] = make(map[string]any, len(keys))
		for k, v := range keys {
			values[schema][k] = normalize(v)
		}
	}
	return values, nil
}

func writeDocument(path string, values document) error {
	data, err := yaml.Marshal(map[string]map[string]any(values))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
