// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package store

import (
	"strings"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
)

// nsSeparator joins segments in the storage encoding. U+001F (unit separator)
// sorts below every character allowed in a segment, so the encoded form
// preserves the segment-wise lexicographic order of namespaces.
const nsSeparator = "\x1f"

// Namespace is an immutable ordered sequence of path segments identifying a
// logical partition of stored items, e.g. ["users", "u-42", "notes"].
// Construct via ParseNamespace or Join; never mutate the backing slice.
type Namespace []string

// ParseNamespace validates segments and returns a Namespace.
// Segments must be non-empty and must not contain '.' (the API separator)
// or control characters below U+0020 (U+001F is reserved for the storage
// encoding). The input slice is copied.
func ParseNamespace(segments []string) (Namespace, error) {
	if len(segments) == 0 {
		return nil, cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "namespace must have at least one segment")
	}

	for i, seg := range segments {
		if seg == "" {
			return nil, cairnerr.Errorf(cairnerr.CodeStoreNamespaceInvalid, "namespace segment %d is empty", i)
		}
		if strings.ContainsRune(seg, '.') {
			return nil, cairnerr.Errorf(cairnerr.CodeStoreNamespaceInvalid, "namespace segment %q contains reserved separator '.'", seg)
		}
		for _, r := range seg {
			if r < 0x20 {
				return nil, cairnerr.Errorf(cairnerr.CodeStoreNamespaceInvalid, "namespace segment %q contains control character %U", seg, r)
			}
		}
	}

	ns := make(Namespace, len(segments))
	copy(ns, segments)
	return ns, nil
}

// ParseNamespaceString parses a dotted namespace string ("users.u-42.notes").
// Empty segments produced by leading, trailing, or doubled dots are rejected.
func ParseNamespaceString(s string) (Namespace, error) {
	if s == "" {
		return nil, cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "namespace must not be empty")
	}
	return ParseNamespace(strings.Split(s, "."))
}

// String returns the dotted API form.
func (ns Namespace) String() string {
	return strings.Join(ns, ".")
}

// Encode returns the storage form: segments joined by U+001F.
func (ns Namespace) Encode() string {
	return strings.Join(ns, nsSeparator)
}

// DecodeNamespace reverses Encode. The encoded form is unambiguous because
// ParseNamespace rejects segments containing the separator.
func DecodeNamespace(encoded string) (Namespace, error) {
	if encoded == "" {
		return nil, cairnerr.New(cairnerr.CodeStoreNamespaceInvalid, "encoded namespace must not be empty")
	}
	segments := strings.Split(encoded, nsSeparator)
	ns := make(Namespace, len(segments))
	copy(ns, segments)
	return ns, nil
}

// Equal reports whether both namespaces have identical segment sequences.
func (ns Namespace) Equal(other Namespace) bool {
	if len(ns) != len(other) {
		return false
	}
	for i := range ns {
		if ns[i] != other[i] {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether candidate's segments equal ns's segments for
// the full length of ns, in order. Every namespace is a prefix of itself.
func (ns Namespace) IsPrefixOf(candidate Namespace) bool {
	if len(ns) > len(candidate) {
		return false
	}
	for i := range ns {
		if ns[i] != candidate[i] {
			return false
		}
	}
	return true
}

// Join returns a new Namespace with the suffix segments appended.
// The suffix segments are validated the same way as ParseNamespace input.
func (ns Namespace) Join(suffix ...string) (Namespace, error) {
	joined := make([]string, 0, len(ns)+len(suffix))
	joined = append(joined, ns...)
	joined = append(joined, suffix...)
	return ParseNamespace(joined)
}

// Compare imposes a deterministic total order: lexicographic over segments,
// with a shorter namespace ordering before any namespace it prefixes.
// Used as the pagination tie-break.
func (ns Namespace) Compare(other Namespace) int {
	n := len(ns)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(ns[i], other[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ns) < len(other):
		return -1
	case len(ns) > len(other):
		return 1
	default:
		return 0
	}
}
