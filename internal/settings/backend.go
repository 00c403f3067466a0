package settings

import "errors"

// Collection layout in the backing store.
const (
	// RootCollection holds everything the add-on persists.
	RootCollection = "Italics"

	// ClassificationTypesCollection holds one boolean property per name.
	ClassificationTypesCollection = "ClassificationTypes"

	// CollectionPath is the canonical location of the classification set.
	CollectionPath = RootCollection + PathSeparator + ClassificationTypesCollection

	// LegacyKey is the comma-joined string property, under RootCollection,
	// written by early releases. It is read when CollectionPath is absent
	// and never written.
	LegacyKey = "ClassificationTypes"

	// PathSeparator separates collection path segments.
	PathSeparator = `\`
)

// Errors returned by Backend implementations.
var (
	ErrCollectionNotFound = errors.New("settings: collection not found")
	ErrPropertyNotFound   = errors.New("settings: property not found")
	ErrInvalidPath        = errors.New("settings: invalid collection path")
)

// Backend is a hierarchical key-value store with collection semantics.
//
// Collections are addressed by PathSeparator-joined paths. Creating a
// collection creates its parents; deleting one deletes its children.
// DeleteCollection on a missing collection is not an error.
type Backend interface {
	CollectionExists(path string) (bool, error)
	CreateCollection(path string) error
	DeleteCollection(path string) error

	// GetString returns ErrPropertyNotFound (wrapped) when the property or
	// collection is missing.
	GetString(path, key string) (string, error)
	SetString(path, key, value string) error
	SetBoolean(path, key string, value bool) error

	// PropertyNamesAndValues returns every property in the collection.
	// Values are string or bool.
	PropertyNamesAndValues(path string) (map[string]any, error)
}
