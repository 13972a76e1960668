package app

import (
	"context"
	"sort"
	"sync"

	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/fileutil"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// ContactsFile is the address book file name under the home directory.
const ContactsFile = "contacts.yaml"

type contactsDoc struct {
	Contacts []dapp.Contact `yaml:"contacts"`
}

// ContactBook is a YAML-backed address book. An empty path keeps it in
// memory only.
type ContactBook struct {
	mu       sync.RWMutex
	path     string
	contacts map[string]dapp.Contact
}

// LoadContacts reads the address book at path; a missing file is empty.
func LoadContacts(path string) (*ContactBook, error) {
	b := &ContactBook{path: path, contacts: make(map[string]dapp.Contact)}
	if path == "" {
		return b, nil
	}
	var doc contactsDoc
	if _, err := fileutil.ReadYAML(path, &doc); err != nil {
		return nil, err
	}
	for _, c := range doc.Contacts {
		b.contacts[c.ID] = c
	}
	return b, nil
}

// Get returns the contact with id.
func (b *ContactBook) Get(_ context.Context, id string) (*dapp.Contact, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contacts[id]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

// Put adds or replaces a contact.
func (b *ContactBook) Put(_ context.Context, c dapp.Contact) error {
	if c.ID == "" {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "contact id is required"})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, had := b.contacts[c.ID]
	b.contacts[c.ID] = c
	if err := b.persist(); err != nil {
		if had {
			b.contacts[c.ID] = prev
		} else {
			delete(b.contacts, c.ID)
		}
		return err
	}
	return nil
}

// Remove deletes a contact.
func (b *ContactBook) Remove(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.contacts[id]
	if !ok {
		return cwerr.WithDetails(cwerr.ErrNotFound, map[string]string{"contact": id})
	}
	delete(b.contacts, id)
	if err := b.persist(); err != nil {
		b.contacts[id] = c
		return err
	}
	return nil
}

// List returns the contacts ordered by name then id.
func (b *ContactBook) List() []dapp.Contact {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sorted()
}

func (b *ContactBook) sorted() []dapp.Contact {
	out := make([]dapp.Contact, 0, len(b.contacts))
	for _, c := range b.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// persist must be called with mu held.
func (b *ContactBook) persist() error {
	if b.path == "" {
		return nil
	}
	return fileutil.WriteYAML(b.path, contactsDoc{Contacts: b.sorted()}, 0o600)
}
