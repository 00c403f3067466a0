package settings

import "errors"

func isNotFound(err error) bool {
	return errors.Is(err, ErrPropertyNotFound) || errors.Is(err, ErrCollectionNotFound)
}
