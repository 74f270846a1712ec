package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type missingTravelerError struct {
	key string
}

func (e missingTravelerError) Error() string {
	return fmt.Sprintf("%s has no traveler_id; pass --traveler", e.key)
}

func errMissingTraveler(key string) error {
	return missingTravelerError{key: key}
}
