package keybox

import "github.com/rbrich/keybox/internal/store"

// Header returns the active column order.
func (k *Keybox) Header() []string { return k.Store.Header() }

// Records returns all records in stable insertion order.
func (k *Keybox) Records() []*store.Record { return k.Store.Records() }

// Find returns records matching query; see store.Store.Find.
func (k *Keybox) Find(query string) []*store.Record { return k.Store.Find(query) }

// DeleteRecord removes r from the store.
func (k *Keybox) DeleteRecord(r *store.Record) { k.Store.Delete(r) }

// SetHeader redefines the active column order; see store.Store.SetHeader.
func (k *Keybox) SetHeader(columns []string, force bool) error {
	return k.Store.SetHeader(columns, force)
}
