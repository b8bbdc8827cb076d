package core

import (
	"context"
	"errors"
)

// Transition moves a document along the stage graph. Moves the graph forbids
// fail with ErrInvalidTransition before touching the store.
func Transition(ctx context.Context, store DocumentStore, ref Ref, target Stage, rename RenameFunc) (Ref, error) {
	if err := CheckTransition(ref.Stage, target); err != nil {
		return Ref{}, err
	}
	return store.Move(ctx, ref, target, rename)
}

// Derive creates a derived document. A document already present under that
// name counts as produced by an earlier run: created is false and err nil.
func Derive(ctx context.Context, store DocumentStore, stage Stage, name, content string) (ref Ref, created bool, err error) {
	ref, err = store.Create(ctx, stage, name, content)
	if errors.Is(err, ErrAlreadyExists) {
		return Ref{Stage: stage, Name: FileName(name)}, false, nil
	}
	if err != nil {
		return Ref{}, false, err
	}
	return ref, true, nil
}

// Update rewrites a document's header with updates merged in.
func Update(ctx context.Context, store DocumentStore, doc Document, updates Header) (Document, error) {
	content, err := WithHeader(doc, updates)
	if err != nil {
		return Document{}, err
	}
	if err := store.Write(ctx, doc.Ref, content); err != nil {
		return Document{}, err
	}
	return ParseDocument(doc.Ref, content), nil
}
