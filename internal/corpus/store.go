package corpus

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

var (
	// ErrDuplicateIdentity is returned when an identity is loaded twice.
	ErrDuplicateIdentity = errors.New("duplicate document identity")
	// ErrMatchesTemplate is returned for documents identical to the configured template.
	ErrMatchesTemplate = errors.New("document matches template")
)

// DuplicateIdentityError names the identity that was already present.
type DuplicateIdentityError struct {
	ID string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateIdentity, e.ID)
}

func (e *DuplicateIdentityError) Unwrap() error {
	return ErrDuplicateIdentity
}

// Document is a normalized, immutable submission.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"-"`
}

// Entry is raw input for LoadDocuments.
type Entry struct {
	ID   string `json:"id"`
	Text string `json:"content"`
}

// Store holds the corpus in insertion order.
//
// Load is not safe for concurrent use. Once loading is done the store is
// only read, and concurrent readers need no locking.
type Store struct {
	policy   Normalization
	template *string
	docs     []Document
	index    map[string]int
	skipped  []string
}

type Option func(*Store)

// WithTemplate skips documents whose normalized content equals the normalized template.
func WithTemplate(raw string) Option {
	return func(s *Store) {
		t := s.policy.Apply(raw)
		s.template = &t
	}
}

func NewStore(policy Normalization, opts ...Option) *Store {
	s := &Store{
		policy: policy,
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load normalizes rawText and stores it under id.
func (s *Store) Load(id, rawText string) (Document, error) {
	if _, exists := s.index[id]; exists {
		return Document{}, &DuplicateIdentityError{ID: id}
	}

	doc := Document{ID: id, Content: s.policy.Apply(rawText)}
	if s.template != nil && doc.Content == *s.template {
		s.skipped = append(s.skipped, id)
		return doc, ErrMatchesTemplate
	}

	s.index[id] = len(s.docs)
	s.docs = append(s.docs, doc)
	return doc, nil
}

// All returns the documents in insertion order.
func (s *Store) All() []Document {
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *Store) Get(id string) (Document, bool) {
	i, ok := s.index[id]
	if !ok {
		return Document{}, false
	}
	return s.docs[i], true
}

func (s *Store) Len() int {
	return len(s.docs)
}

// Skipped lists identities dropped because they matched the template.
func (s *Store) Skipped() []string {
	out := make([]string, len(s.skipped))
	copy(out, s.skipped)
	return out
}

func (s *Store) Policy() Normalization {
	return s.policy
}

// LoadDocuments builds a store from ordered entries. The first duplicate
// identity aborts the load; the duplicate is never stored.
func LoadDocuments(entries []Entry, policy Normalization, opts ...Option) (*Store, error) {
	store := NewStore(policy, opts...)
	for _, entry := range entries {
		if _, err := store.Load(entry.ID, entry.Text); err != nil {
			if errors.Is(err, ErrMatchesTemplate) {
				log.Debug().Str("document", entry.ID).Msg("Skipping document identical to template")
				continue
			}
			return nil, err
		}
	}
	return store, nil
}

// LoadMap loads an identity→text mapping with identities in lexicographic order.
func LoadMap(texts map[string]string, policy Normalization, opts ...Option) (*Store, error) {
	ids := make([]string, 0, len(texts))
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{ID: id, Text: texts[id]})
	}
	return LoadDocuments(entries, policy, opts...)
}
