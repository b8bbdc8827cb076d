package core

import (
	"context"
	"iter"
)

// DocumentStore is the single place that creates, reads, moves and deletes
// documents. Implementations never write audit entries; callers do.
type DocumentStore interface {
	// Create stores a new document. It fails with ErrAlreadyExists if the
	// stage already holds a document with that name.
	Create(ctx context.Context, stage Stage, name, content string) (Ref, error)

	// Read returns the raw content. It fails with ErrNotFound if the document
	// is gone.
	Read(ctx context.Context, ref Ref) (string, error)

	// Write rewrites an existing document in place.
	Write(ctx context.Context, ref Ref, content string) error

	// Move relocates a document in one atomic step. rename computes the new
	// leaf name. A vanished source yields ErrNotFound, a colliding target
	// ErrAlreadyExists; there is never a moment with two copies.
	Move(ctx context.Context, ref Ref, target Stage, rename RenameFunc) (Ref, error)

	// List returns the documents of a stage whose names match glob. The
	// sequence is a snapshot taken at call time.
	List(ctx context.Context, stage Stage, glob string) (iter.Seq[Ref], error)

	// Delete removes a document. Only the approval decision consumer calls it.
	Delete(ctx context.Context, ref Ref) error
}

// Surface stores the vault-root files that are not stage documents
// (dashboard, its template, business goals).
type Surface interface {
	ReadSurface(ctx context.Context, name string) (string, error)
	WriteSurface(ctx context.Context, name, content string) error
}

// Vault is a store that also exposes the root surface.
type Vault interface {
	DocumentStore
	Surface
}

// Load reads and parses a document.
func Load(ctx context.Context, store DocumentStore, ref Ref) (Document, error) {
	raw, err := store.Read(ctx, ref)
	if err != nil {
		return Document{}, err
	}
	return ParseDocument(ref, raw), nil
}

// Collect drains a listing into a slice.
func Collect(ctx context.Context, store DocumentStore, stage Stage, glob string) ([]Ref, error) {
	seq, err := store.List(ctx, stage, glob)
	if err != nil {
		return nil, err
	}
	var refs []Ref
	for ref := range seq {
		refs = append(refs, ref)
	}
	return refs, nil
}

// Count returns the number of documents in a stage matching glob.
func Count(ctx context.Context, store DocumentStore, stage Stage, glob string) (int, error) {
	refs, err := Collect(ctx, store, stage, glob)
	return len(refs), err
}

// Locate finds every stage holding a document with the given identity.
func Locate(ctx context.Context, store DocumentStore, identity string) ([]Ref, error) {
	var found []Ref
	for _, stage := range Stages() {
		refs, err := Collect(ctx, store, stage, "*"+FileName(identity))
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if ref.Identity() == identity {
				found = append(found, ref)
			}
		}
	}
	return found, nil
}
